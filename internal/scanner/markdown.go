package scanner

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sokinpui/graft/model"
)

// scanMarkdown uses a markdown AST to find fenced code blocks. It accepts
// fences the regex pass does not, such as tilde fences, fences nested in
// list items, and a final fence left unclosed.
func scanMarkdown(source []byte) []model.Block {
	var blocks []model.Block
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var lang string
		if fenced.Info != nil {
			lang = string(fenced.Language(source))
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}

		blocks = append(blocks, newBlock(lang, content.String()))
		return ast.WalkSkipChildren, nil
	}

	// The walker never returns an error.
	_ = ast.Walk(root, walker)
	return blocks
}
