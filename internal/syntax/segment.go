package syntax

import (
	"regexp"
	"strings"
)

var (
	identPattern = `[\p{L}_][\p{L}\p{N}_]*`

	funcLineRegex   = regexp.MustCompile(`^(async\s+)?def\s+(` + identPattern + `)`)
	classLineRegex  = regexp.MustCompile(`^class\s+(` + identPattern + `)`)
	importLineRegex = regexp.MustCompile(`^import\s+(.+)$`)
	fromLineRegex   = regexp.MustCompile(`^from\s+(\S+)\s+import\s+\(?([^)#]*)\)?`)
	assignLineRegex = regexp.MustCompile(
		`^(` + identPattern + `(?:\.` + identPattern + `)*` +
			`(?:\s*,\s*` + identPattern + `(?:\.` + identPattern + `)*)*)` +
			`\s*(?::[^=]+)?=(?:[^=]|$)`)
)

// Segment splits source into statements using indentation alone. It is the
// lenient counterpart of Parse: it never fails, and statements it cannot
// classify become KindOther with their text kept verbatim.
func Segment(src string) *Module {
	lines := strings.Split(src, "\n")
	nodes, trailer := segmentLines(lines, "")
	m := &Module{Nodes: nodes, Trailer: strings.Join(trailer, "\n")}
	m.NoEOL = len(nodes) > 0 && m.Trailer == "" && !strings.HasSuffix(src, "\n")
	return m
}

func segmentLines(lines []string, ind string) ([]*Node, []string) {
	var (
		nodes         []*Node
		pending       []string
		cur           []string
		leading       []string
		decoratorOnly bool
		lex           lexState
	)
	flush := func() {
		if cur != nil {
			nodes = append(nodes, segmentNode(leading, cur, ind))
			cur, leading = nil, nil
		}
	}

	for _, line := range lines {
		open := lex.open()
		lex.feed(line)

		if open {
			cur = append(cur, pending...)
			cur = append(cur, line)
			pending = nil
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") && len(indentOf(line)) <= len(ind) {
			pending = append(pending, line)
			continue
		}

		starts := indentOf(line) == ind && !strings.ContainsAny(trimmed[:1], ")]}")
		if starts && cur != nil && decoratorOnly {
			cur = append(cur, pending...)
			cur = append(cur, line)
			pending = nil
			decoratorOnly = strings.HasPrefix(trimmed, "@")
			continue
		}
		if starts || cur == nil {
			flush()
			leading, pending = pending, nil
			cur = []string{line}
			decoratorOnly = strings.HasPrefix(trimmed, "@")
			continue
		}
		cur = append(cur, pending...)
		cur = append(cur, line)
		pending = nil
	}
	flush()
	return nodes, pending
}

func segmentNode(leading, lines []string, ind string) *Node {
	n := &Node{
		Text:   strings.Join(lines, "\n"),
		Indent: ind,
	}
	if len(leading) > 0 {
		n.Leading = strings.Join(leading, "\n") + "\n"
	}

	head := 0
	for head < len(lines)-1 && strings.HasPrefix(strings.TrimSpace(lines[head]), "@") {
		head++
	}
	if head > 0 {
		n.Decorators = strings.Join(lines[:head], "\n") + "\n"
	}
	first := strings.TrimPrefix(lines[head], ind)

	switch {
	case funcLineRegex.MatchString(first):
		m := funcLineRegex.FindStringSubmatch(first)
		n.Kind, n.Name, n.Async = KindFunction, m[2], m[1] != ""
	case classLineRegex.MatchString(first):
		n.Kind = KindClass
		n.Name = classLineRegex.FindStringSubmatch(first)[1]
		n.Body = segmentSuite(lines, head, ind)
	case importLineRegex.MatchString(first) || fromLineRegex.MatchString(first):
		n.Kind = KindImport
		n.Import = importFromText(strings.Join(strings.Fields(strings.TrimPrefix(n.Text[len(n.Decorators):], ind)), " "))
	case assignLineRegex.MatchString(first):
		n.Kind = KindAssign
		var targets []string
		for _, t := range strings.Split(assignLineRegex.FindStringSubmatch(first)[1], ",") {
			targets = append(targets, strings.TrimSpace(t))
		}
		n.Targets = sortedUnique(targets)
	}
	return n
}

// segmentSuite splits a class statement after its header line.
func segmentSuite(lines []string, head int, ind string) *Suite {
	hdr := head
	for hdr < len(lines) && !strings.HasSuffix(stripComment(lines[hdr]), ":") {
		hdr++
	}
	if hdr >= len(lines)-1 {
		return nil
	}
	body := lines[hdr+1:]
	bodyInd := ""
	for _, line := range body {
		if strings.TrimSpace(line) != "" {
			bodyInd = indentOf(line)
			break
		}
	}
	if len(bodyInd) <= len(ind) {
		return nil
	}
	members, trailer := segmentLines(body, bodyInd)
	if len(members) == 0 {
		return nil
	}
	s := &Suite{
		Header:  strings.Join(lines[:hdr+1], "\n") + "\n",
		Indent:  bodyInd,
		Members: members,
	}
	if len(trailer) > 0 {
		s.Trailer = strings.Join(trailer, "\n") + "\n"
	}
	return s
}

func importFromText(stmt string) *Import {
	imp := &Import{}
	var list string
	if m := fromLineRegex.FindStringSubmatch(stmt); m != nil {
		imp.From, imp.Module, list = true, m[1], m[2]
	} else if m := importLineRegex.FindStringSubmatch(stmt); m != nil {
		list = m[1]
	}
	if i := strings.IndexByte(list, '#'); i >= 0 {
		list = list[:i]
	}
	for _, part := range strings.Split(list, ",") {
		fields := strings.Fields(part)
		switch {
		case len(fields) == 1 && fields[0] == "*":
			imp.Wildcard = true
		case len(fields) == 1:
			imp.Names = append(imp.Names, ImportName{Name: fields[0]})
		case len(fields) == 3 && fields[1] == "as":
			imp.Names = append(imp.Names, ImportName{Name: fields[0], Alias: fields[2]})
		}
	}
	sortImportNames(imp.Names)
	return imp
}

func stripComment(line string) string {
	var lex lexState
	cut := lex.scan(line)
	return strings.TrimSpace(line[:cut])
}

// lexState tracks just enough of Python's lexical structure to know when a
// line continues the previous statement.
type lexState struct {
	depth  int
	triple string
	cont   bool
}

func (l *lexState) open() bool {
	return l.depth > 0 || l.triple != "" || l.cont
}

func (l *lexState) feed(line string) {
	l.cont = false
	end := l.scan(line)
	code := strings.TrimRight(line[:end], " \t")
	if l.triple == "" && strings.HasSuffix(code, "\\") {
		l.cont = true
	}
}

// scan advances over one line and returns the offset where a trailing
// comment starts, or len(line).
func (l *lexState) scan(line string) int {
	for i := 0; i < len(line); i++ {
		if l.triple != "" {
			if strings.HasPrefix(line[i:], l.triple) {
				i += len(l.triple) - 1
				l.triple = ""
			} else if line[i] == '\\' {
				i++
			}
			continue
		}
		switch c := line[i]; c {
		case '#':
			return i
		case '(', '[', '{':
			l.depth++
		case ')', ']', '}':
			if l.depth > 0 {
				l.depth--
			}
		case '\'', '"':
			q := string(c)
			if strings.HasPrefix(line[i:], q+q+q) {
				l.triple = q + q + q
				i += 2
				continue
			}
			for i++; i < len(line) && line[i] != c; i++ {
				if line[i] == '\\' {
					i++
				}
			}
		}
	}
	return len(line)
}
