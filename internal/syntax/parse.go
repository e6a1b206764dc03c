package syntax

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/sokinpui/graft/model"
)

// Parse parses Python source into a Module. A source with any syntax error
// fails with a parse-error carrying the first offending line; a partial
// module is never returned.
func Parse(filename, src string) (*Module, error) {
	content := []byte(src)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, model.WrapError(model.KindParse, filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, msg := firstError(root, src)
		return nil, &model.Error{Kind: model.KindParse, Module: filename, Line: line, Msg: msg}
	}

	b := &builder{src: src}
	nodes, cursor := b.collect(statements(root), 0)
	m := &Module{Nodes: nodes, Trailer: src[cursor:]}
	m.NoEOL = len(nodes) > 0 && m.Trailer == "" && !strings.HasSuffix(src, "\n")
	return m, nil
}

// Validate reports whether src parses.
func Validate(filename, src string) error {
	_, err := Parse(filename, src)
	return err
}

func firstError(n *sitter.Node, src string) (int, string) {
	if n.IsMissing() {
		return int(n.StartPoint().Row) + 1, fmt.Sprintf("missing %q", n.Type())
	}
	if n.Type() == "ERROR" {
		row := int(n.StartPoint().Row)
		lines := strings.Split(src, "\n")
		near := ""
		if row < len(lines) {
			near = strings.TrimSpace(lines[row])
		}
		return row + 1, fmt.Sprintf("invalid syntax near %q", near)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if line, msg := firstError(child, src); line > 0 {
			return line, msg
		}
	}
	if n.HasError() {
		return int(n.StartPoint().Row) + 1, "invalid syntax"
	}
	return 0, ""
}

// statements returns the named children of a module or block, without
// comments.
func statements(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

type builder struct {
	src string
}

func (b *builder) text(n *sitter.Node) string {
	return b.src[n.StartByte():n.EndByte()]
}

func (b *builder) lineStart(i int) int {
	return strings.LastIndexByte(b.src[:i], '\n') + 1
}

// lineEnd returns the index of the newline ending the line that holds
// byte i, or len(src).
func (b *builder) lineEnd(i int) int {
	if i >= len(b.src) {
		return len(b.src)
	}
	idx := strings.IndexByte(b.src[i:], '\n')
	if idx < 0 {
		return len(b.src)
	}
	return i + idx
}

func (b *builder) next(end int) int {
	if end < len(b.src) {
		return end + 1
	}
	return end
}

// span returns the line-aligned [start, end) range of a node.
func (b *builder) span(n *sitter.Node) (int, int) {
	start, end := int(n.StartByte()), int(n.EndByte())
	if end > start {
		end--
	}
	return b.lineStart(start), b.lineEnd(end)
}

// collect turns sibling statements into Nodes, assigning the text between
// them to Leading. Statements sharing a line are folded into one opaque
// statement.
func (b *builder) collect(children []*sitter.Node, cursor int) ([]*Node, int) {
	var nodes []*Node
	prevStart := 0
	for _, child := range children {
		start, end := b.span(child)
		if len(nodes) > 0 && start < cursor {
			prev := nodes[len(nodes)-1]
			*prev = Node{
				Kind:    KindOther,
				Leading: prev.Leading,
				Indent:  prev.Indent,
				Text:    b.src[prevStart:end],
			}
			cursor = b.next(end)
			continue
		}
		n := b.node(child, start, end)
		n.Leading = b.src[cursor:start]
		nodes = append(nodes, n)
		prevStart = start
		cursor = b.next(end)
	}
	return nodes, cursor
}

func (b *builder) node(c *sitter.Node, start, end int) *Node {
	n := &Node{
		Text:   b.src[start:end],
		Indent: indentOf(b.src[start:]),
	}

	def := c
	if c.Type() == "decorated_definition" {
		if inner := c.ChildByFieldName("definition"); inner != nil {
			def = inner
			n.Decorators = b.src[start:b.lineStart(int(inner.StartByte()))]
		}
	}

	switch def.Type() {
	case "import_statement", "import_from_statement", "future_import_statement":
		n.Kind = KindImport
		n.Import = b.importOf(def)
	case "expression_statement":
		if def.NamedChildCount() == 1 && def.NamedChild(0).Type() == "assignment" {
			n.Kind = KindAssign
			n.Targets = b.targets(def.NamedChild(0))
		}
	case "function_definition":
		n.Kind = KindFunction
		n.Name = b.name(def)
		if first := def.Child(0); first != nil && first.Type() == "async" {
			n.Async = true
		}
	case "class_definition":
		n.Kind = KindClass
		n.Name = b.name(def)
		n.Body = b.suite(def, start, end)
	}
	return n
}

func (b *builder) name(def *sitter.Node) string {
	if name := def.ChildByFieldName("name"); name != nil {
		return b.text(name)
	}
	return ""
}

// suite splits a class into header and members. Classes whose body sits on
// the header line stay opaque.
func (b *builder) suite(cls *sitter.Node, start, end int) *Suite {
	body := cls.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	members := statements(body)
	if len(members) == 0 {
		return nil
	}

	var colon *sitter.Node
	for i := 0; i < int(cls.ChildCount()); i++ {
		if child := cls.Child(i); child.Type() == ":" {
			colon = child
		}
	}
	if colon == nil {
		return nil
	}
	hdrEnd := b.lineEnd(int(colon.EndByte()) - 1)
	if int(members[0].StartByte()) <= hdrEnd || hdrEnd >= len(b.src) {
		return nil
	}

	nodes, cursor := b.collect(members, hdrEnd+1)
	s := &Suite{
		Header:  b.src[start : hdrEnd+1],
		Indent:  nodes[0].Indent,
		Members: nodes,
	}
	if cursor <= end {
		s.Trailer = b.src[cursor:min(end+1, len(b.src))]
	}
	return s
}

func (b *builder) importOf(stmt *sitter.Node) *Import {
	imp := &Import{}
	var module *sitter.Node
	switch stmt.Type() {
	case "import_from_statement":
		imp.From = true
		if module = stmt.ChildByFieldName("module_name"); module != nil {
			imp.Module = compact(b.text(module))
		}
	case "future_import_statement":
		imp.From = true
		imp.Module = "__future__"
	}

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if module != nil && child.StartByte() == module.StartByte() && child.EndByte() == module.EndByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name", "identifier":
			imp.Names = append(imp.Names, ImportName{Name: compact(b.text(child))})
		case "aliased_import":
			var in ImportName
			if name := child.ChildByFieldName("name"); name != nil {
				in.Name = compact(b.text(name))
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				in.Alias = b.text(alias)
			}
			imp.Names = append(imp.Names, in)
		case "wildcard_import":
			imp.Wildcard = true
		}
	}
	sortImportNames(imp.Names)
	return imp
}

func sortImportNames(names []ImportName) {
	sort.Slice(names, func(i, j int) bool {
		if names[i].Name != names[j].Name {
			return names[i].Name < names[j].Name
		}
		return names[i].Alias < names[j].Alias
	})
}

func (b *builder) targets(assign *sitter.Node) []string {
	var names []string
	for a := assign; a != nil && a.Type() == "assignment"; a = a.ChildByFieldName("right") {
		if left := a.ChildByFieldName("left"); left != nil {
			names = b.appendTargets(names, left)
		}
	}
	return sortedUnique(names)
}

func (b *builder) appendTargets(names []string, n *sitter.Node) []string {
	switch n.Type() {
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list", "tuple", "list",
		"list_splat_pattern", "list_splat", "parenthesized_expression":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			names = b.appendTargets(names, n.NamedChild(i))
		}
		return names
	}
	return append(names, compact(b.text(n)))
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
