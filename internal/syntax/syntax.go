// Package syntax models a Python module as an ordered list of top-level
// statements. Each statement keeps its verbatim source, so emitting an
// unmodified module reproduces the input byte for byte, and emitting a
// modified module only changes the statements that were touched.
package syntax

import (
	"sort"
	"strings"
)

// Kind classifies a statement for the integrator.
type Kind int

const (
	KindOther Kind = iota
	KindImport
	KindAssign
	KindFunction
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindAssign:
		return "assignment"
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	default:
		return "other"
	}
}

// ImportName is one imported name with its optional alias.
type ImportName struct {
	Name  string
	Alias string
}

// Import is the structure of an import statement. Module is empty for
// simple `import x` statements and holds the (possibly relative) source
// module for from-imports.
type Import struct {
	From     bool
	Module   string
	Names    []ImportName
	Wildcard bool
}

// Equal reports structural equality: same module and the same set of
// names with the same aliases.
func (i *Import) Equal(o *Import) bool {
	if i == nil || o == nil {
		return i == o
	}
	if i.From != o.From || i.Module != o.Module || i.Wildcard != o.Wildcard {
		return false
	}
	a, b := i.nameSet(), o.nameSet()
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func (i *Import) nameSet() map[ImportName]struct{} {
	set := make(map[ImportName]struct{}, len(i.Names))
	for _, n := range i.Names {
		set[n] = struct{}{}
	}
	return set
}

// Node is a single statement.
type Node struct {
	Kind  Kind
	Name  string
	Async bool
	// Targets is the sorted set of names an assignment binds.
	Targets []string
	Import  *Import

	// Leading is the verbatim text (blank lines, comments) between the
	// previous statement and this one.
	Leading string
	// Decorators is the verbatim decorator prefix of Text, if any.
	Decorators string
	// Text is the verbatim statement from the start of its first line,
	// without the final newline. For a class with a Body it is stale once
	// the body is modified; use Source.
	Text string
	// Indent is the whitespace in front of the statement.
	Indent string
	// Body is set for classes whose suite is an indented block.
	Body *Suite
}

// Suite is the indented body of a class.
type Suite struct {
	// Header runs from the first decorator through the newline that ends
	// the `class ...:` line.
	Header  string
	Indent  string
	Members []*Node
	// Trailer is text inside the class after its last member.
	Trailer string
}

// Module is a parsed source file.
type Module struct {
	Nodes []*Node
	// Trailer is the text after the last statement.
	Trailer string
	// NoEOL is set when the source ended in a statement without a final
	// newline.
	NoEOL bool
}

// Source returns the current text of the statement.
func (n *Node) Source() string {
	if n.Body == nil {
		return n.Text
	}
	var b strings.Builder
	b.WriteString(n.Body.Header)
	for _, m := range n.Body.Members {
		b.WriteString(m.Leading)
		b.WriteString(m.Source())
		b.WriteByte('\n')
	}
	b.WriteString(n.Body.Trailer)
	return strings.TrimSuffix(b.String(), "\n")
}

// Emit renders the module back to text.
func Emit(m *Module) string {
	var b strings.Builder
	for _, n := range m.Nodes {
		b.WriteString(n.Leading)
		b.WriteString(n.Source())
		b.WriteByte('\n')
	}
	b.WriteString(m.Trailer)
	if m.NoEOL && m.Trailer == "" {
		return strings.TrimSuffix(b.String(), "\n")
	}
	return b.String()
}

// Member returns the index of the first member of the given kind and name
// in the class body, or -1.
func (s *Suite) Member(kind Kind, name string) int {
	for i, m := range s.Members {
		if m.Kind == kind && m.Name == name {
			return i
		}
	}
	return -1
}

// Find returns the index of the first top-level node of the given kind and
// name, or -1.
func (m *Module) Find(kind Kind, name string) int {
	for i, n := range m.Nodes {
		if n.Kind == kind && n.Name == name {
			return i
		}
	}
	return -1
}

// Imports returns the top-level import nodes in order.
func (m *Module) Imports() []*Node {
	var out []*Node
	for _, n := range m.Nodes {
		if n.Kind == KindImport {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	c := &Module{Trailer: m.Trailer, NoEOL: m.NoEOL, Nodes: make([]*Node, len(m.Nodes))}
	for i, n := range m.Nodes {
		c.Nodes[i] = n.Clone()
	}
	return c
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Targets != nil {
		c.Targets = append([]string(nil), n.Targets...)
	}
	if n.Import != nil {
		imp := *n.Import
		imp.Names = append([]ImportName(nil), n.Import.Names...)
		c.Import = &imp
	}
	if n.Body != nil {
		body := *n.Body
		body.Members = make([]*Node, len(n.Body.Members))
		for i, mem := range n.Body.Members {
			body.Members[i] = mem.Clone()
		}
		c.Body = &body
	}
	return &c
}

// SameTargets reports whether two assignments bind the same set of names.
func SameTargets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HasTarget reports whether the assignment binds name.
func (n *Node) HasTarget(name string) bool {
	i := sort.SearchStrings(n.Targets, name)
	return i < len(n.Targets) && n.Targets[i] == name
}

// Equivalent compares two modules statement by statement, ignoring the
// trivia between statements.
func Equivalent(a, b *Module) bool {
	return equivalentNodes(a.Nodes, b.Nodes)
}

func equivalentNodes(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equivalentNode(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equivalentNode(a, b *Node) bool {
	if a.Kind != b.Kind || a.Name != b.Name || a.Async != b.Async {
		return false
	}
	if !SameTargets(a.Targets, b.Targets) || !a.Import.Equal(b.Import) {
		return false
	}
	if (a.Body == nil) != (b.Body == nil) {
		return false
	}
	if a.Body != nil {
		return strings.TrimSpace(a.Body.Header) == strings.TrimSpace(b.Body.Header) &&
			equivalentNodes(a.Body.Members, b.Body.Members)
	}
	return a.Source() == b.Source()
}

func sortedUnique(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	out := names[:1]
	for _, n := range names[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}
