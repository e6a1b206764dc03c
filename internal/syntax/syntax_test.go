package syntax

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sokinpui/graft/model"
)

const sample = `#!/usr/bin/env python
"""Module docstring."""
from __future__ import annotations

import os, sys as system
from .pkg import (b as bee, a)

X = Y = 1
a, b = 1, 2


@decorator
def f(x):
    return x


async def g():
    pass


class C(Base):
    """Doc."""

    attr = 1

    def m(self):
        return 1
    # trailing comment in class


x = 1; y = 2
# trailing
`

type shape struct {
	Kind    Kind
	Name    string
	Async   bool
	Targets []string
	Members []shape
}

func shapes(nodes []*Node) []shape {
	var out []shape
	for _, n := range nodes {
		s := shape{Kind: n.Kind, Name: n.Name, Async: n.Async, Targets: n.Targets}
		if n.Body != nil {
			s.Members = shapes(n.Body.Members)
		}
		out = append(out, s)
	}
	return out
}

func TestParseClassifiesStatements(t *testing.T) {
	m, err := Parse("sample.py", sample)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []shape{
		{Kind: KindOther},
		{Kind: KindImport},
		{Kind: KindImport},
		{Kind: KindImport},
		{Kind: KindAssign, Targets: []string{"X", "Y"}},
		{Kind: KindAssign, Targets: []string{"a", "b"}},
		{Kind: KindFunction, Name: "f"},
		{Kind: KindFunction, Name: "g", Async: true},
		{Kind: KindClass, Name: "C", Members: []shape{
			{Kind: KindOther},
			{Kind: KindAssign, Targets: []string{"attr"}},
			{Kind: KindFunction, Name: "m"},
		}},
		{Kind: KindOther},
	}
	if diff := cmp.Diff(want, shapes(m.Nodes)); diff != "" {
		t.Fatalf("Parse() shapes mismatch (-want +got):\n%s", diff)
	}

	if m.Nodes[0].Leading != "#!/usr/bin/env python\n" {
		t.Errorf("first Leading = %q", m.Nodes[0].Leading)
	}
	if m.Nodes[6].Decorators != "@decorator\n" {
		t.Errorf("Decorators = %q", m.Nodes[6].Decorators)
	}
	if m.Trailer != "# trailing\n" {
		t.Errorf("Trailer = %q", m.Trailer)
	}

	imports := []*Import{m.Nodes[1].Import, m.Nodes[2].Import, m.Nodes[3].Import}
	wantImports := []*Import{
		{From: true, Module: "__future__", Names: []ImportName{{Name: "annotations"}}},
		{Names: []ImportName{{Name: "os"}, {Name: "sys", Alias: "system"}}},
		{From: true, Module: ".pkg", Names: []ImportName{{Name: "a"}, {Name: "b", Alias: "bee"}}},
	}
	if diff := cmp.Diff(wantImports, imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitRoundTrip(t *testing.T) {
	sources := []string{
		"",
		"x = 1",
		"x = 1\n",
		sample,
		"class Empty: pass\n",
		"class C:\n    def f(self): return 1\n",
		"if True:\n    import os\nelse:\n    os = None\n",
		"def a(): return 1\n\n\n\n# end\n\n",
		"class Ünïcode:\n    def método(self):\n        return 'ñ'\n",
		"class Outer:\n    class Inner:\n        z = 3\n\n    @property\n    def p(self):\n        return self.z\n",
	}
	for _, src := range sources {
		m, err := Parse("m.py", src)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", src, err)
		}
		if got := Emit(m); got != src {
			t.Errorf("Emit(Parse(%q)) = %q", src, got)
		}
		again, err := Parse("m.py", Emit(m))
		if err != nil {
			t.Fatalf("re-parse of %q failed: %v", src, err)
		}
		if !Equivalent(m, again) {
			t.Errorf("Parse(Emit(m)) not equivalent to m for %q", src)
		}
	}
}

func TestParseUnicodeNames(t *testing.T) {
	m, err := Parse("m.py", "class Ünïcode:\n    def método(self):\n        return 'ñ'\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if i := m.Find(KindClass, "Ünïcode"); i != 0 {
		t.Fatalf("Find(class Ünïcode) = %d", i)
	}
	if i := m.Nodes[0].Body.Member(KindFunction, "método"); i != 0 {
		t.Errorf("Member(método) = %d", i)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"def f(:\n    pass\n",
		"x = 1\nclass C\n    pass\n",
		"def f():\nreturn 1\n",
	} {
		_, err := Parse("bad.py", src)
		if !errors.Is(err, model.ErrParse) {
			t.Fatalf("Parse(%q) error = %v, want %s", src, err, model.KindParse)
		}
		var perr *model.Error
		if !errors.As(err, &perr) || perr.Line < 1 || perr.Module != "bad.py" {
			t.Errorf("Parse(%q) error = %#v, want a line and module", src, err)
		}
		if Validate("bad.py", src) == nil {
			t.Errorf("Validate(%q) = nil", src)
		}
	}
}

func TestEquivalentIgnoresTrivia(t *testing.T) {
	a, err := Parse("a.py", "import os\n\n\ndef f():\n    return 1\n")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("b.py", "# header\nimport os\ndef f():\n    return 1\n")
	if err != nil {
		t.Fatal(err)
	}
	if !Equivalent(a, b) {
		t.Errorf("modules differing only in trivia are not equivalent")
	}
	c, err := Parse("c.py", "import os\ndef f():\n    return 2\n")
	if err != nil {
		t.Fatal(err)
	}
	if Equivalent(a, c) {
		t.Errorf("modules with different bodies are equivalent")
	}
}

func TestImportEqual(t *testing.T) {
	a := &Import{From: true, Module: "x", Names: []ImportName{{Name: "a"}, {Name: "b", Alias: "c"}}}
	b := &Import{From: true, Module: "x", Names: []ImportName{{Name: "b", Alias: "c"}, {Name: "a"}}}
	c := &Import{From: true, Module: "x", Names: []ImportName{{Name: "a"}, {Name: "b"}}}
	if !a.Equal(b) {
		t.Errorf("name order should not matter")
	}
	if a.Equal(c) {
		t.Errorf("aliases should matter")
	}
	if a.Equal(nil) {
		t.Errorf("nil should not equal an import")
	}
}

func TestCloneIsDeep(t *testing.T) {
	m, err := Parse("m.py", "class C:\n    x = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	c := m.Clone()
	c.Nodes[0].Body.Members[0].Text = "    x = 2"
	if Emit(m) != "class C:\n    x = 1\n" {
		t.Errorf("Clone shares members with the original")
	}
}
