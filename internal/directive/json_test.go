package directive

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sokinpui/graft/model"
)

func TestParseDirective(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want []model.Target
	}{
		{
			name: "clean json",
			body: `{"module_path":"pkg/m.py","targets":[{"type":"class","name":"B"},{"type":"function","name":"f"}]}`,
			want: []model.Target{
				{Kind: model.TargetClass, Name: "B"},
				{Kind: model.TargetFunction, Name: "f"},
			},
		},
		{
			name: "single quotes and trailing comma",
			body: `{'module_path':'pkg/m.py','targets':[{'type':'class','name':'A'},]}`,
			want: []model.Target{{Kind: model.TargetClass, Name: "A"}},
		},
		{
			name: "comments",
			body: "{\n  // what to drop\n  \"module_path\": \"pkg/m.py\", /* the rest */\n  \"targets\": [{\"type\": \"variable\", \"name\": \"X\"}]\n}\n",
			want: []model.Target{{Kind: model.TargetVariable, Name: "X"}},
		},
		{
			name: "trailing comma behind a comment",
			body: "{\"module_path\": \"pkg/m.py\", // c\n \"targets\": [{\"type\": \"class\", \"name\": \"A\"}, // x\n ]}",
			want: []model.Target{{Kind: model.TargetClass, Name: "A"}},
		},
		{
			name: "surrounding prose",
			body: `Remove this: {"module_path": "pkg/m.py", "targets": [{"type": "method", "name": "f", "class_name": "C"}]} done`,
			want: []model.Target{{Kind: model.TargetMethod, Name: "f", ClassName: "C"}},
		},
		{
			name: "kind is case-insensitive and unknown kinds pass through",
			body: `{"module_path": "pkg/m.py", "targets": [{"type": "Class", "name": "A"}, {"type": "lambda", "name": "g"}]}`,
			want: []model.Target{
				{Kind: model.TargetClass, Name: "A"},
				{Kind: "lambda", Name: "g"},
			},
		},
	}

	p := New(model.DefaultConfig(), nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			edit, err := p.ParseDirective(tc.body)
			if err != nil {
				t.Fatalf("ParseDirective() error = %v", err)
			}
			if want := filepath.FromSlash("pkg/m.py"); edit.ModulePath != want {
				t.Errorf("ModulePath = %q, want %q", edit.ModulePath, want)
			}
			if diff := cmp.Diff(tc.want, edit.Targets); diff != "" {
				t.Errorf("Targets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDirectiveErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"not json", "remove class A please"},
		{"no module path", `{"targets": [{"type": "class", "name": "A"}]}`},
		{"module path not a string", `{"module_path": 3, "targets": []}`},
		{"no targets", `{"module_path": "pkg/m.py"}`},
		{"targets null", `{"module_path": "pkg/m.py", "targets": null}`},
		{"targets not a list", `{"module_path": "pkg/m.py", "targets": {"type": "class"}}`},
		{"unbalanced", `{"module_path": "pkg/m.py", "targets": [`},
	}

	p := New(model.DefaultConfig(), nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.ParseDirective(tc.body)
			if !errors.Is(err, model.ErrDirtyJSON) {
				t.Fatalf("ParseDirective() error = %v, want %s", err, model.KindDirtyJSON)
			}
		})
	}
}

func TestRepairRungs(t *testing.T) {
	if got := stripComments(`{"url": "http://x//y", /* c */ "a": 1} // tail`); got != `{"url": "http://x//y",  "a": 1} ` {
		t.Errorf("stripComments() = %q", got)
	}
	if got := extractObject(`noise {"a": {"b": "}"}} more`); got != `{"a": {"b": "}"}}` {
		t.Errorf("extractObject() = %q", got)
	}
	if got := extractObject("no braces"); got != "no braces" {
		t.Errorf("extractObject() = %q", got)
	}
}
