package syntax

import "strings"

func indentOf(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}

// Dedent removes the whitespace prefix shared by every non-blank line.
func Dedent(text string) string {
	lines := strings.Split(text, "\n")
	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ind := indentOf(line)
		if first {
			prefix, first = ind, false
			continue
		}
		for !strings.HasPrefix(ind, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if prefix == "" {
		return text
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = strings.TrimLeft(line, " \t")
			continue
		}
		lines[i] = line[len(prefix):]
	}
	return strings.Join(lines, "\n")
}

// Reindent replaces the indentation prefix `from` with `to` on every line
// that carries it. Blank lines are left alone.
func Reindent(text, from, to string) string {
	if from == to || text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, from) {
			continue
		}
		lines[i] = to + line[len(from):]
	}
	return strings.Join(lines, "\n")
}

// Reindent moves the statement to a new indentation level.
func (n *Node) Reindent(to string) {
	from := n.Indent
	if from == to {
		return
	}
	n.Leading = Reindent(n.Leading, from, to)
	n.Decorators = Reindent(n.Decorators, from, to)
	n.Text = Reindent(n.Text, from, to)
	n.Indent = to
	if n.Body != nil {
		n.Body.Header = Reindent(n.Body.Header, from, to)
		n.Body.Trailer = Reindent(n.Body.Trailer, from, to)
		inner := to + strings.TrimPrefix(n.Body.Indent, from)
		for _, m := range n.Body.Members {
			m.Reindent(inner)
		}
		n.Body.Indent = inner
	}
}

// BlankLines returns the number of blank lines at the end of leading
// trivia, i.e. directly above the statement.
func BlankLines(leading string) int {
	lines := strings.Split(leading, "\n")
	count := 0
	for i := len(lines) - 2; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			break
		}
		count++
	}
	return count
}

// Comments returns the comment lines of leading trivia, without the blank
// lines around them.
func Comments(leading string) string {
	var b strings.Builder
	for _, line := range strings.Split(leading, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
