package integrate

import (
	"go.uber.org/zap"

	"github.com/sokinpui/graft/internal/syntax"
	"github.com/sokinpui/graft/model"
)

func (in *Integrator) remove(mod *syntax.Module, e *model.RemoveEdit) Report {
	var report Report
	body := moduleContainer(mod)

	for _, t := range e.Targets {
		var found bool
		switch t.Kind {
		case model.TargetClass:
			found = removeFirst(body, syntax.KindClass, t.Name)
		case model.TargetFunction:
			found = removeFirst(body, syntax.KindFunction, t.Name)
		case model.TargetMethod:
			found = in.removeMethod(mod, e.ModulePath, t)
		case model.TargetVariable:
			found = removeAssignments(body, t.Name)
		default:
			in.log.Warn("skipping removal target",
				zap.String("module", e.ModulePath),
				zap.String("kind", string(model.KindUnknownTargetKind)),
				zap.String("target", t.String()))
			report.Skipped = append(report.Skipped, t)
			continue
		}
		if !found {
			in.log.Warn("removal target not found",
				zap.String("module", e.ModulePath),
				zap.String("kind", string(model.KindMiss)),
				zap.String("target", t.String()))
			report.Missed = append(report.Missed, t)
			continue
		}
		report.Applied++
	}
	return report
}

func removeFirst(body container, kind syntax.Kind, name string) bool {
	i := body.find(kind, name)
	if i < 0 {
		return false
	}
	body.remove(i)
	return true
}

func removeAssignments(body container, name string) bool {
	removed := false
	for i := 0; i < len(*body.nodes); {
		n := (*body.nodes)[i]
		if n.Kind == syntax.KindAssign && n.HasTarget(name) {
			body.remove(i)
			removed = true
			continue
		}
		i++
	}
	return removed
}

func (in *Integrator) removeMethod(mod *syntax.Module, module string, t model.Target) bool {
	i := mod.Find(syntax.KindClass, t.ClassName)
	if i < 0 {
		in.log.Warn("class for method removal not found",
			zap.String("module", module),
			zap.String("kind", string(model.KindMiss)),
			zap.String("class", t.ClassName))
		return false
	}
	cls := mod.Nodes[i]
	if cls.Body == nil {
		return false
	}
	members := classContainer(cls)
	if !removeFirst(members, syntax.KindFunction, t.Name) {
		return false
	}
	if len(cls.Body.Members) == 0 {
		cls.Body.Members = []*syntax.Node{passStatement(cls.Body.Indent)}
	}
	return true
}
