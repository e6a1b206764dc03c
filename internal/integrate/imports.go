package integrate

import (
	"go.uber.org/zap"

	"github.com/sokinpui/graft/internal/syntax"
)

// mergeImports inserts the imports mod does not already have, as a group,
// at the front of the module: after a docstring and any __future__ imports.
// It returns the number of imports added.
func (in *Integrator) mergeImports(mod *syntax.Module, imports []*syntax.Node) int {
	var add []*syntax.Node
	for _, imp := range imports {
		if hasImport(mod.Nodes, imp) || hasImport(add, imp) {
			continue
		}
		n := imp.Clone()
		n.Reindent("")
		n.Leading = ""
		add = append(add, n)
	}
	if len(add) == 0 {
		return 0
	}

	body := moduleContainer(mod)
	pos := importPosition(mod)
	if pos == 0 && len(mod.Nodes) > 0 {
		add[0].Leading = mod.Nodes[0].Leading
		mod.Nodes[0].Leading = ""
	} else if pos > 0 && mod.Nodes[pos-1].Kind != syntax.KindImport {
		add[0].Leading = "\n"
	}
	body.insert(pos, add...)

	if next := pos + len(add); next < len(mod.Nodes) {
		if n := mod.Nodes[next]; n.Kind != syntax.KindImport && syntax.BlankLines(n.Leading) == 0 {
			n.Leading = "\n" + n.Leading
		}
	}
	for _, n := range add {
		in.log.Debug("import added", zap.String("import", n.Source()))
	}
	return len(add)
}

func hasImport(nodes []*syntax.Node, imp *syntax.Node) bool {
	for _, n := range nodes {
		if n.Kind == syntax.KindImport && n.Import.Equal(imp.Import) {
			return true
		}
	}
	return false
}

func importPosition(mod *syntax.Module) int {
	pos := 0
	if len(mod.Nodes) > 0 && isDocstring(mod.Nodes[0]) {
		pos = 1
	}
	for pos < len(mod.Nodes) {
		n := mod.Nodes[pos]
		if n.Kind != syntax.KindImport || n.Import == nil || n.Import.Module != "__future__" {
			break
		}
		pos++
	}
	return pos
}
