// Package integrate merges edits into a parsed module. It never touches the
// filesystem: the input module is cloned and the clone is returned.
package integrate

import (
	"go.uber.org/zap"

	"github.com/sokinpui/graft/internal/syntax"
	"github.com/sokinpui/graft/model"
)

// Report describes what an Apply call did.
type Report struct {
	// Applied counts integrated statements, grafted methods and merged
	// imports for updates, and removed targets for removals.
	Applied int
	Missed  []model.Target
	Skipped []model.Target
}

// Integrator applies edits to module trees.
type Integrator struct {
	cfg model.Config
	log *zap.Logger
}

// New creates an Integrator. A nil logger discards output.
func New(cfg model.Config, log *zap.Logger) *Integrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Integrator{cfg: cfg, log: log}
}

// Apply returns a copy of mod with edit applied. The input is not modified.
func (in *Integrator) Apply(mod *syntax.Module, edit model.Edit) (*syntax.Module, Report, error) {
	out := mod.Clone()
	switch e := edit.(type) {
	case *model.UpdateEdit:
		report, err := in.update(out, e)
		return out, report, err
	case *model.RemoveEdit:
		return out, in.remove(out, e), nil
	default:
		return nil, Report{}, model.NewError(model.KindParse, edit.Module(), "unsupported edit %T", edit)
	}
}

// parseLenient parses code, falling back to indentation-based segmentation
// so that broken code still reaches validation.
func (in *Integrator) parseLenient(module, code string) *syntax.Module {
	tree, err := syntax.Parse(module, code)
	if err == nil {
		return tree
	}
	in.log.Warn("new code does not parse, segmenting by indentation",
		zap.String("module", module), zap.Error(err))
	return syntax.Segment(code)
}

func (in *Integrator) update(mod *syntax.Module, e *model.UpdateEdit) (Report, error) {
	var report Report
	tree := in.parseLenient(e.ModulePath, syntax.Dedent(e.CodeBody))
	if len(tree.Nodes) == 0 && len(e.UpdatedMethods) == 0 && len(e.Imports) == 0 {
		return report, model.NewError(model.KindParse, e.ModulePath, "code block has no statements")
	}

	report.Applied += in.mergeImports(mod, tree.Imports())

	body := moduleContainer(mod)
	for _, n := range tree.Nodes {
		switch n.Kind {
		case syntax.KindImport:
			continue
		case syntax.KindFunction:
			if i := body.find(n.Kind, n.Name); i >= 0 {
				body.replace(i, n)
			} else {
				body.append(n)
			}
		case syntax.KindClass:
			if i := body.find(n.Kind, n.Name); i >= 0 {
				in.mergeClass(body, i, n)
			} else {
				body.append(n)
			}
		case syntax.KindAssign:
			if i := body.findAssign(n.Targets); i >= 0 {
				body.replace(i, n)
			} else {
				body.append(n)
			}
		default:
			if body.hasStatement(n) {
				in.log.Debug("statement already present", zap.String("module", e.ModulePath))
				continue
			}
			body.append(n)
		}
		report.Applied++
	}

	for _, um := range e.UpdatedMethods {
		if in.graftMethod(mod, e, um) {
			report.Applied++
		}
	}

	for _, line := range e.Imports {
		report.Applied += in.mergeImports(mod, in.parseLenient(e.ModulePath, line).Imports())
	}
	return report, nil
}

// mergeClass folds the members of repl into the class at index i. Members
// are replaced in place or appended, so content the new code omits stays.
func (in *Integrator) mergeClass(body container, i int, repl *syntax.Node) {
	old := (*body.nodes)[i]
	if old.Body == nil || repl.Body == nil {
		body.replace(i, repl)
		return
	}

	merged := old.Clone()
	hdr := repl.Clone()
	hdr.Reindent(old.Indent)
	merged.Body.Header = hdr.Body.Header
	merged.Decorators = hdr.Decorators
	keepDecorators(old, merged)

	members := classContainer(merged)
	for _, m := range repl.Body.Members {
		switch {
		case m.Kind == syntax.KindFunction || m.Kind == syntax.KindClass:
			if j := members.find(m.Kind, m.Name); j >= 0 {
				members.replace(j, m)
			} else {
				members.append(m)
			}
		case m.Kind == syntax.KindAssign:
			if j := members.findAssign(m.Targets); j >= 0 {
				members.replace(j, m)
			} else {
				members.append(m)
			}
		case isPlaceholder(m):
			continue
		case isDocstring(m):
			if len(merged.Body.Members) > 0 && isDocstring(merged.Body.Members[0]) {
				members.replace(0, m)
			} else {
				doc := m.Clone()
				doc.Reindent(members.indent)
				doc.Leading = ""
				members.insert(0, doc)
			}
		default:
			if !members.hasStatement(m) {
				members.append(m)
			}
		}
	}
	dropPlaceholders(merged)
	(*body.nodes)[i] = merged
}

// dropPlaceholders removes `pass` and `...` members once a class has real
// content.
func dropPlaceholders(cls *syntax.Node) {
	var kept []*syntax.Node
	for _, m := range cls.Body.Members {
		if !isPlaceholder(m) {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 || len(kept) == len(cls.Body.Members) {
		return
	}
	if kept[0] != cls.Body.Members[0] {
		kept[0].Leading = syntax.Comments(kept[0].Leading)
	}
	cls.Body.Members = kept
}

// graftMethod replaces or adds one updated method. The class named by the
// edit is preferred; otherwise a top-level function, then the first class
// defining the method, is used.
func (in *Integrator) graftMethod(mod *syntax.Module, e *model.UpdateEdit, um model.UpdatedMethod) bool {
	var fn *syntax.Node
	for _, n := range in.parseLenient(e.ModulePath, um.Text).Nodes {
		if n.Kind == syntax.KindFunction {
			fn = n
			break
		}
	}
	if fn == nil {
		in.log.Warn("updated method has no definition",
			zap.String("module", e.ModulePath), zap.String("method", um.Name))
		return false
	}

	body := moduleContainer(mod)
	if e.ClassName != "" {
		if i := body.find(syntax.KindClass, e.ClassName); i >= 0 && mod.Nodes[i].Body != nil {
			members := classContainer(mod.Nodes[i])
			if j := members.find(syntax.KindFunction, fn.Name); j >= 0 {
				members.replace(j, fn)
			} else {
				members.append(fn)
			}
			dropPlaceholders(mod.Nodes[i])
			return true
		}
	}
	if i := body.find(syntax.KindFunction, fn.Name); i >= 0 {
		body.replace(i, fn)
		return true
	}
	for _, n := range mod.Nodes {
		if n.Kind != syntax.KindClass || n.Body == nil {
			continue
		}
		members := classContainer(n)
		if j := members.find(syntax.KindFunction, fn.Name); j >= 0 {
			members.replace(j, fn)
			return true
		}
	}
	in.log.Warn("no place to graft updated method",
		zap.String("module", e.ModulePath),
		zap.String("kind", string(model.KindMiss)),
		zap.String("class", e.ClassName),
		zap.String("method", fn.Name))
	return false
}
