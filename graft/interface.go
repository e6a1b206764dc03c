package graft

import (
	"context"
	"fmt"
	"strings"

	"github.com/sokinpui/graft/model"
)

// Apply parses the given content string and applies every edit in it with
// cfg. It returns the touched modules grouped by outcome. No undo history
// is recorded.
func Apply(ctx context.Context, content string, cfg model.Config) (map[string][]string, error) {
	p, err := NewProcessor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize graft processor: %w", err)
	}

	_, results := p.ProcessText(ctx, content, true)
	out := map[string][]string{
		"Created":  {},
		"Modified": {},
		"Skipped":  {},
		"Failed":   {},
	}
	for _, r := range results {
		name := r.Path
		if name == "" && r.Edit != nil {
			name = r.Edit.Module()
		}
		switch {
		case !r.OK:
			out["Failed"] = append(out["Failed"], fmt.Sprintf("%s: %s", name, r.Message))
		case r.Created:
			out["Created"] = append(out["Created"], name)
		case r.Path == "" || strings.HasPrefix(r.Message, "no changes"):
			out["Skipped"] = append(out["Skipped"], name)
		default:
			out["Modified"] = append(out["Modified"], name)
		}
	}
	return out, nil
}
