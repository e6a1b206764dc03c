package integrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sokinpui/graft/model"
)

func removal(targets ...model.Target) *model.RemoveEdit {
	return &model.RemoveEdit{ModulePath: "m.py", Targets: targets}
}

func TestApplyRemove(t *testing.T) {
	testCases := []struct {
		name    string
		target  string
		edit    *model.RemoveEdit
		want    string
		applied int
	}{
		{
			name:   "class and function",
			target: "class A:\n    pass\n\n\nclass B:\n    pass\n\n\ndef f():\n    return 1\n",
			edit: removal(
				model.Target{Kind: model.TargetClass, Name: "B"},
				model.Target{Kind: model.TargetFunction, Name: "f"},
			),
			want:    "class A:\n    pass\n",
			applied: 2,
		},
		{
			name:    "first statement hands its header to the next",
			target:  "# header\n\nclass A:\n    pass\n\n\n# about B\nclass B:\n    pass\n",
			edit:    removal(model.Target{Kind: model.TargetClass, Name: "A"}),
			want:    "# header\n\n# about B\nclass B:\n    pass\n",
			applied: 1,
		},
		{
			name:    "method",
			target:  "class C:\n    def f(self):\n        return 1\n\n    def g(self):\n        return 2\n",
			edit:    removal(model.Target{Kind: model.TargetMethod, Name: "g", ClassName: "C"}),
			want:    "class C:\n    def f(self):\n        return 1\n",
			applied: 1,
		},
		{
			name:    "last method leaves pass",
			target:  "class C:\n    def f(self):\n        pass\n",
			edit:    removal(model.Target{Kind: model.TargetMethod, Name: "f", ClassName: "C"}),
			want:    "class C:\n    pass\n",
			applied: 1,
		},
		{
			name:    "every assignment binding the variable",
			target:  "X = 1\nY = 2\nX, Z = 3, 4\n",
			edit:    removal(model.Target{Kind: model.TargetVariable, Name: "X"}),
			want:    "Y = 2\n",
			applied: 1,
		},
		{
			name:    "only the first of duplicate functions",
			target:  "def f():\n    return 1\n\n\ndef f():\n    return 2\n",
			edit:    removal(model.Target{Kind: model.TargetFunction, Name: "f"}),
			want:    "def f():\n    return 2\n",
			applied: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, report := apply(t, tc.target, tc.edit)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.applied, report.Applied)
			require.Empty(t, report.Missed)
		})
	}
}

func TestRemoveMissesAndSkips(t *testing.T) {
	target := "class A:\n    def f(self):\n        pass\n"
	missing := model.Target{Kind: model.TargetFunction, Name: "nope"}
	noClass := model.Target{Kind: model.TargetMethod, Name: "f", ClassName: "B"}
	unknown := model.Target{Kind: "module", Name: "m"}

	got, report := apply(t, target, removal(missing, noClass, unknown))
	require.Equal(t, target, got)
	require.Zero(t, report.Applied)
	require.Equal(t, []model.Target{missing, noClass}, report.Missed)
	require.Equal(t, []model.Target{unknown}, report.Skipped)
}

func TestRemoveNeverAddsDefinitions(t *testing.T) {
	target := "import os\n\n\nclass A:\n    def f(self):\n        pass\n\n    def g(self):\n        pass\n\n\ndef h():\n    pass\n\n\nX = 1\n"
	edits := []*model.RemoveEdit{
		removal(model.Target{Kind: model.TargetMethod, Name: "g", ClassName: "A"}),
		removal(model.Target{Kind: model.TargetFunction, Name: "h"}),
		removal(model.Target{Kind: model.TargetVariable, Name: "X"}),
		removal(model.Target{Kind: model.TargetClass, Name: "A"}),
	}

	defs := func(src string) int {
		return strings.Count(src, "def ") + strings.Count(src, "class ")
	}
	cur := target
	for _, e := range edits {
		next, _ := apply(t, cur, e)
		require.Less(t, defs(next)+strings.Count(next, "X ="), defs(cur)+strings.Count(cur, "X ="))
		cur = next
	}
	require.Equal(t, "import os\n", cur)
}
