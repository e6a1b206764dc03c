package syntax

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSegment(t *testing.T) {
	src := "import os\n" +
		"from a import (b,\n" +
		"    c)\n" +
		"\n" +
		"\n" +
		"def f()\n" +
		"    return 1\n" +
		"\n" +
		"\n" +
		"@dec\n" +
		"class C:\n" +
		"    x = 1\n" +
		"\n" +
		"    def m(self):\n" +
		"        return '''multi\n" +
		"def not_a_def():\n" +
		"'''\n" +
		"\n" +
		"# trailing\n"

	if Validate("m.py", src) == nil {
		t.Fatalf("source is expected to be invalid Python")
	}

	m := Segment(src)
	want := []shape{
		{Kind: KindImport},
		{Kind: KindImport},
		{Kind: KindFunction, Name: "f"},
		{Kind: KindClass, Name: "C", Members: []shape{
			{Kind: KindAssign, Targets: []string{"x"}},
			{Kind: KindFunction, Name: "m"},
		}},
	}
	if diff := cmp.Diff(want, shapes(m.Nodes)); diff != "" {
		t.Fatalf("Segment() shapes mismatch (-want +got):\n%s", diff)
	}
	if got := Emit(m); got != src {
		t.Errorf("Emit(Segment(src)) = %q, want %q", got, src)
	}

	wantImport := &Import{From: true, Module: "a", Names: []ImportName{{Name: "b"}, {Name: "c"}}}
	if diff := cmp.Diff(wantImport, m.Nodes[1].Import); diff != "" {
		t.Errorf("multi-line import mismatch (-want +got):\n%s", diff)
	}
	if m.Nodes[3].Decorators != "@dec\n" {
		t.Errorf("Decorators = %q", m.Nodes[3].Decorators)
	}
	if m.Trailer != "\n# trailing\n" {
		t.Errorf("Trailer = %q", m.Trailer)
	}
}

func TestSegmentNoFinalNewline(t *testing.T) {
	for _, src := range []string{"x = 1", "x = 1\n", "def f():\n    pass", ""} {
		if got := Emit(Segment(src)); got != src {
			t.Errorf("Emit(Segment(%q)) = %q", src, got)
		}
	}
}
