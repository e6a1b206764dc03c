package syntax

import "testing"

func TestDedent(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"    a\n      b\n", "a\n  b\n"},
		{"    a\n\n    b\n", "a\n\nb\n"},
		{"\ta\n\t\tb", "a\n\tb"},
		{"a\n    b\n", "a\n    b\n"},
		{"  \n    x\n", "\nx\n"},
	}
	for _, tc := range testCases {
		if got := Dedent(tc.in); got != tc.want {
			t.Errorf("Dedent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNodeReindent(t *testing.T) {
	m, err := Parse("m.py", "class C:\n    def f(self):\n        return 1\n")
	if err != nil {
		t.Fatal(err)
	}
	cls := m.Nodes[0]
	cls.Reindent("    ")
	want := "    class C:\n        def f(self):\n            return 1"
	if got := cls.Source(); got != want {
		t.Errorf("Source() = %q, want %q", got, want)
	}
	if cls.Body.Indent != "        " {
		t.Errorf("Body.Indent = %q", cls.Body.Indent)
	}
}

func TestBlankLinesAndComments(t *testing.T) {
	leading := "# a\n\n# b\n\n\n"
	if got := BlankLines(leading); got != 2 {
		t.Errorf("BlankLines(%q) = %d, want 2", leading, got)
	}
	if got := Comments(leading); got != "# a\n# b\n" {
		t.Errorf("Comments(%q) = %q", leading, got)
	}
	if got := BlankLines(""); got != 0 {
		t.Errorf("BlankLines(\"\") = %d", got)
	}
}
