package integrate

import (
	"regexp"
	"strings"

	"github.com/sokinpui/graft/internal/syntax"
)

var docstringRegex = regexp.MustCompile(`^[rRuUbBfF]{0,2}("""|'''|"|')`)

// container is an ordered statement list at one indentation level: the
// module body or a class body.
type container struct {
	nodes  *[]*syntax.Node
	indent string
	class  bool
}

func moduleContainer(m *syntax.Module) container {
	return container{nodes: &m.Nodes}
}

func classContainer(n *syntax.Node) container {
	return container{nodes: &n.Body.Members, indent: n.Body.Indent, class: true}
}

func (c container) find(kind syntax.Kind, name string) int {
	for i, n := range *c.nodes {
		if n.Kind == kind && n.Name == name {
			return i
		}
	}
	return -1
}

func (c container) findAssign(targets []string) int {
	for i, n := range *c.nodes {
		if n.Kind == syntax.KindAssign && syntax.SameTargets(n.Targets, targets) {
			return i
		}
	}
	return -1
}

func (c container) hasStatement(n *syntax.Node) bool {
	want := normalized(n)
	for _, existing := range *c.nodes {
		if normalized(existing) == want {
			return true
		}
	}
	return false
}

func normalized(n *syntax.Node) string {
	return strings.TrimSpace(syntax.Dedent(n.Source()))
}

// replace puts repl at index i, keeping the old statement's leading trivia
// and, when repl has none, its decorators.
func (c container) replace(i int, repl *syntax.Node) {
	old := (*c.nodes)[i]
	n := repl.Clone()
	n.Reindent(old.Indent)
	n.Leading = old.Leading
	keepDecorators(old, n)
	(*c.nodes)[i] = n
}

func keepDecorators(old, n *syntax.Node) {
	if n.Decorators != "" || old.Decorators == "" {
		return
	}
	n.Decorators = old.Decorators
	n.Text = old.Decorators + n.Text
	if n.Body != nil {
		n.Body.Header = old.Decorators + n.Body.Header
	}
}

// append adds a statement at the end with conventional spacing.
func (c container) append(add *syntax.Node) {
	n := add.Clone()
	n.Reindent(c.indent)
	comments := syntax.Comments(n.Leading)
	n.Leading = ""
	if len(*c.nodes) > 0 {
		prev := (*c.nodes)[len(*c.nodes)-1]
		n.Leading = strings.Repeat("\n", c.blankLines(prev, n))
	}
	n.Leading += comments
	*c.nodes = append(*c.nodes, n)
}

func (c container) blankLines(prev, n *syntax.Node) int {
	isDef := func(x *syntax.Node) bool {
		return x.Kind == syntax.KindFunction || x.Kind == syntax.KindClass
	}
	switch {
	case !isDef(prev) && !isDef(n):
		return 0
	case c.class:
		return 1
	default:
		return 2
	}
}

// insert places nodes at index i.
func (c container) insert(i int, nodes ...*syntax.Node) {
	out := make([]*syntax.Node, 0, len(*c.nodes)+len(nodes))
	out = append(out, (*c.nodes)[:i]...)
	out = append(out, nodes...)
	out = append(out, (*c.nodes)[i:]...)
	*c.nodes = out
}

// remove deletes the statement at index i. The first statement's leading
// trivia (shebangs, headers) passes to its successor, which keeps only its
// own comments.
func (c container) remove(i int) {
	nodes := *c.nodes
	if i == 0 && len(nodes) > 1 {
		nodes[1].Leading = nodes[0].Leading + syntax.Comments(nodes[1].Leading)
	}
	*c.nodes = append(nodes[:i], nodes[i+1:]...)
}

func isDocstring(n *syntax.Node) bool {
	return n.Kind == syntax.KindOther && docstringRegex.MatchString(strings.TrimSpace(n.Text))
}

func isPlaceholder(n *syntax.Node) bool {
	if n.Kind != syntax.KindOther {
		return false
	}
	switch strings.TrimSpace(n.Text) {
	case "pass", "...":
		return true
	}
	return false
}

// passStatement builds a `pass` member for a class body left empty.
func passStatement(indent string) *syntax.Node {
	return &syntax.Node{Kind: syntax.KindOther, Text: indent + "pass", Indent: indent}
}
