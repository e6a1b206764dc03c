// Package directive turns scanned blocks into edits. JSON blocks become
// removal directives; code blocks become updates once a module path can be
// recovered from them.
package directive

import (
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/graft/internal/syntax"
	"github.com/sokinpui/graft/model"
)

const (
	specialImportSentinel = "#¤#"
	unchangedMarker       = "## ..."
)

var (
	pathSegment = `[\p{L}\p{N}_.\-]+`
	pathPattern = `(?:` + pathSegment + `[/\\])*` + pathSegment + `\.py`
	identifier  = `[\p{L}_][\p{L}\p{N}_]*`

	titleLineRegex = regexp.MustCompile(`^[ \t]*#[ \t]*(` + pathPattern + `)[ \t]*$`)
	pathCommentRegex = regexp.MustCompile(
		`(?m)^[ \t]*#[^\n]*?(?:(?:file(?:name)?|path|module)[ \t]*[:=][ \t]*)?(` + pathPattern + `)\b[^\n]*$`)
	quotedPathRegex   = regexp.MustCompile(`(?m)^[ \t]*["'](` + pathPattern + `)["'][ \t]*$`)
	embeddedPathRegex = regexp.MustCompile(`((?:` + pathSegment + `[/\\])+` + pathSegment + `\.py)\b`)

	markedRemovalRegex = regexp.MustCompile(`(?s)#"""(.*?)"""`)
	updatedMethodRegex = regexp.MustCompile(
		`(?ms)^[ \t]*#[ \t]*BEGIN UPDATED METHOD[^\n]*\n(.*?)^[ \t]*#[ \t]*END UPDATED METHOD[^\n]*(?:\n|\z)`)

	classHintRegex = regexp.MustCompile(`(?m)^([ \t]*)class[ \t]+(` + identifier + `)[ \t]*(?:\([^)]*\))?[ \t]*:`)
	defHintRegex   = regexp.MustCompile(`(?m)^([ \t]*)(?:async[ \t]+)?def[ \t]+(` + identifier + `)[ \t]*\(`)
)

// Parser converts blocks into edits.
type Parser struct {
	cfg model.Config
	log *zap.Logger
}

// New creates a Parser. A nil logger discards output.
func New(cfg model.Config, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{cfg: cfg, log: log}
}

// Parse converts one block into an edit.
func (p *Parser) Parse(block model.Block) (model.Edit, error) {
	if block.Kind == model.BlockDirective {
		return p.ParseDirective(block.Body)
	}
	return p.ParseCode(block)
}

// pathMatch is the location of a recovered module path.
type pathMatch struct {
	rung string
	path string
	// line is the [start, end) range of the line to strip, or nil when the
	// path sits inside code that must stay.
	line []int
}

// ParseCode extracts an update edit from a code block.
func (p *Parser) ParseCode(block model.Block) (*model.UpdateEdit, error) {
	body := strings.ReplaceAll(block.Body, "\r\n", "\n")

	match := p.findModulePath(body)
	if match == nil {
		return nil, model.NewError(model.KindNoModulePath, "", "no module path in %s block", langOrDefault(block.Lang))
	}
	if match.line != nil {
		body = body[:match.line[0]] + body[match.line[1]:]
	}

	body = markedRemovalRegex.ReplaceAllString(body, "")
	body, imports := extractSpecialImports(body)
	body = strings.ReplaceAll(body, unchangedMarker, "")
	body = syntax.Dedent(body)

	edit := &model.UpdateEdit{
		ModulePath: p.normalizePath(match.path),
		SourcePath: strings.TrimSpace(match.path),
		Lang:       block.Lang,
		Imports:    imports,
	}
	edit.ClassName, edit.MethodName = structuralHints(body)
	edit.CodeBody, edit.UpdatedMethods = extractUpdatedMethods(body)

	p.log.Debug("parsed code block",
		zap.String("module", edit.ModulePath),
		zap.String("class", edit.ClassName),
		zap.String("method", edit.MethodName),
		zap.Int("imports", len(edit.Imports)),
		zap.Int("updated_methods", len(edit.UpdatedMethods)))
	return edit, nil
}

// findModulePath tries each path pattern in priority order. The first
// match wins.
func (p *Parser) findModulePath(body string) *pathMatch {
	rungs := []func(string) *pathMatch{
		titleLinePath,
		pathCommentPath,
		quotedLiteralPath,
		embeddedPath,
	}
	for _, rung := range rungs {
		if m := rung(body); m != nil {
			p.log.Info("module path found", zap.String("rung", m.rung), zap.String("path", m.path))
			return m
		}
	}
	p.log.Debug("no module path pattern matched")
	return nil
}

func titleLinePath(body string) *pathMatch {
	offset := 0
	for _, line := range strings.SplitAfter(body, "\n") {
		if strings.TrimSpace(line) == "" {
			offset += len(line)
			continue
		}
		m := titleLineRegex.FindStringSubmatch(strings.TrimRight(line, "\n"))
		if m == nil {
			return nil
		}
		return &pathMatch{rung: "title-line", path: m[1], line: []int{offset, offset + len(line)}}
	}
	return nil
}

func pathCommentPath(body string) *pathMatch {
	return lineMatch("path-comment", pathCommentRegex, body)
}

func quotedLiteralPath(body string) *pathMatch {
	return lineMatch("quoted-literal", quotedPathRegex, body)
}

func lineMatch(rung string, re *regexp.Regexp, body string) *pathMatch {
	loc := re.FindStringSubmatchIndex(body)
	if loc == nil {
		return nil
	}
	end := loc[1]
	if end < len(body) && body[end] == '\n' {
		end++
	}
	return &pathMatch{rung: rung, path: body[loc[2]:loc[3]], line: []int{loc[0], end}}
}

func embeddedPath(body string) *pathMatch {
	loc := embeddedPathRegex.FindStringSubmatchIndex(body)
	if loc == nil {
		return nil
	}
	m := &pathMatch{rung: "embedded", path: body[loc[2]:loc[3]]}
	start := strings.LastIndexByte(body[:loc[0]], '\n') + 1
	if strings.HasPrefix(strings.TrimSpace(body[start:]), "#") {
		end := len(body)
		if i := strings.IndexByte(body[loc[1]:], '\n'); i >= 0 {
			end = loc[1] + i + 1
		}
		m.line = []int{start, end}
	}
	return m
}

// normalizePath strips a leading ./, applies the workspace root policy and
// converts separators to the platform form.
func (p *Parser) normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, `\`, "/")
	path = strings.TrimPrefix(path, "./")
	if p.cfg.UseWorkspaceRoot && p.cfg.WorkspaceRoot != "" && !filepath.IsAbs(path) {
		path = strings.TrimRight(strings.ReplaceAll(p.cfg.WorkspaceRoot, `\`, "/"), "/") + "/" + path
	}
	return filepath.Clean(filepath.FromSlash(path))
}

func extractSpecialImports(body string) (string, []string) {
	var imports []string
	lines := strings.SplitAfter(body, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, specialImportSentinel) {
			if stmt := strings.TrimSpace(strings.TrimPrefix(trimmed, specialImportSentinel)); stmt != "" {
				imports = append(imports, stmt)
			}
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, ""), imports
}

// structuralHints finds the first class and the first method inside it, or
// the first top-level function when there is no class.
func structuralHints(body string) (className, methodName string) {
	if m := classHintRegex.FindStringSubmatchIndex(body); m != nil {
		className = body[m[4]:m[5]]
		classIndent := body[m[2]:m[3]]
		for _, d := range defHintRegex.FindAllStringSubmatchIndex(body[m[1]:], -1) {
			indent := body[m[1]+d[2] : m[1]+d[3]]
			if len(indent) <= len(classIndent) {
				break
			}
			return className, body[m[1]+d[4] : m[1]+d[5]]
		}
		return className, ""
	}
	for _, d := range defHintRegex.FindAllStringSubmatchIndex(body, -1) {
		if d[3] == d[2] {
			return "", body[d[4]:d[5]]
		}
	}
	return "", ""
}

// extractUpdatedMethods cuts the delimited method regions out of body.
func extractUpdatedMethods(body string) (string, []model.UpdatedMethod) {
	var methods []model.UpdatedMethod
	for _, m := range updatedMethodRegex.FindAllStringSubmatch(body, -1) {
		text := syntax.Dedent(strings.TrimRight(m[1], " \t\n"))
		d := defHintRegex.FindStringSubmatch(text)
		if d == nil {
			continue
		}
		methods = append(methods, model.UpdatedMethod{Name: d[2], Text: text + "\n"})
	}
	if len(methods) == 0 {
		return body, nil
	}
	return updatedMethodRegex.ReplaceAllString(body, ""), methods
}

func langOrDefault(lang string) string {
	if lang == "" {
		return "untagged"
	}
	return lang
}
