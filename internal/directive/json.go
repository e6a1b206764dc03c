package directive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/graft/model"
)

var trailingCommaRegex = regexp.MustCompile(`,\s*([\]}])`)

// repair is one rung of the dirty-JSON ladder. Rungs are applied
// cumulatively, and decoding is retried after each.
type repair struct {
	name string
	fix  func(string) string
}

var repairs = []repair{
	{"single-quotes", func(s string) string { return strings.ReplaceAll(s, "'", `"`) }},
	{"trailing-commas", func(s string) string { return trailingCommaRegex.ReplaceAllString(s, "$1") }},
	{"comments", stripComments},
	{"balanced-braces", extractObject},
}

type rawTarget struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
}

// ParseDirective decodes a JSON removal directive, repairing it if needed.
func (p *Parser) ParseDirective(body string) (*model.RemoveEdit, error) {
	fields, err := p.decode(body)
	if err != nil {
		return nil, err
	}

	var modulePath string
	raw, ok := fields["module_path"]
	if !ok || json.Unmarshal(raw, &modulePath) != nil || strings.TrimSpace(modulePath) == "" {
		return nil, model.NewError(model.KindDirtyJSON, "", "directive has no module_path string")
	}
	var rawTargets []json.RawMessage
	raw, ok = fields["targets"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) || json.Unmarshal(raw, &rawTargets) != nil {
		return nil, model.NewError(model.KindDirtyJSON, modulePath, "directive has no targets list")
	}

	edit := &model.RemoveEdit{
		ModulePath: p.normalizePath(modulePath),
		SourcePath: strings.TrimSpace(modulePath),
	}
	for i, rt := range rawTargets {
		var t rawTarget
		if err := json.Unmarshal(rt, &t); err != nil {
			p.log.Warn("skipping malformed target",
				zap.String("module", modulePath), zap.Int("index", i), zap.Error(err))
			continue
		}
		edit.Targets = append(edit.Targets, model.Target{
			Kind:      model.TargetKind(strings.ToLower(strings.TrimSpace(t.Type))),
			Name:      t.Name,
			ClassName: t.ClassName,
		})
	}
	return edit, nil
}

func (p *Parser) decode(body string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal([]byte(body), &fields)
	if err == nil {
		return fields, nil
	}
	p.log.Debug("strict json decode failed", zap.Error(err))

	// The ladder repeats until the text stops changing: stripping a comment
	// can expose a trailing comma.
	text := body
	for pass := 1; ; pass++ {
		before := text
		for _, r := range repairs {
			text = r.fix(text)
			fields = nil
			if err = json.Unmarshal([]byte(text), &fields); err == nil {
				p.log.Info("repaired json directive", zap.String("repair", r.name), zap.Int("pass", pass))
				return fields, nil
			}
			p.log.Debug("json repair did not decode",
				zap.String("repair", r.name), zap.Int("pass", pass), zap.Error(err))
		}
		if text == before {
			break
		}
	}
	return nil, model.WrapError(model.KindDirtyJSON, "", fmt.Errorf("undecodable directive: %w", err))
}

// stripComments removes // and /* */ comments outside of string literals.
func stripComments(s string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case strings.HasPrefix(s[i:], "//"):
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += end + 3
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// extractObject returns the first balanced {...} substring, or s when there
// is none.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s
}
