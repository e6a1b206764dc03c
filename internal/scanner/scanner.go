package scanner

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/graft/model"
)

var (
	// fenceRegex finds a backtick fence, its contiguous language tag and the
	// body up to the next closing fence line.
	fenceRegex = regexp.MustCompile(
		`(?m)^[ \t]*` + "```" + `(?P<lang>[^\s` + "`" + `]*)[^\n]*\n` +
			`(?P<body>[\s\S]*?)` +
			`^[ \t]*` + "```" + `[ \t]*$`)

	langIndex = fenceRegex.SubexpIndex("lang")
	bodyIndex = fenceRegex.SubexpIndex("body")
)

// Scanner finds fenced blocks in free-form text.
type Scanner struct {
	log *zap.Logger
}

// New creates a Scanner. A nil logger discards output.
func New(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log}
}

// Scan returns the fenced blocks of text in order of their opening fence.
// Text outside fences is discarded. Scan never fails: when the fence regex
// finds nothing, the markdown tokenizer gets a second look at the input.
func (s *Scanner) Scan(text string) []model.Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	blocks := scanFences(text)
	if len(blocks) > 0 {
		s.log.Debug("fence scan", zap.Int("blocks", len(blocks)))
		return blocks
	}

	blocks = scanMarkdown([]byte(text))
	if len(blocks) > 0 {
		s.log.Debug("markdown fallback scan", zap.Int("blocks", len(blocks)))
	}
	return blocks
}

func scanFences(text string) []model.Block {
	matches := fenceRegex.FindAllStringSubmatch(text, -1)
	blocks := make([]model.Block, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, newBlock(m[langIndex], m[bodyIndex]))
	}
	return blocks
}

func newBlock(lang, body string) model.Block {
	lang = strings.TrimSpace(lang)
	return model.Block{
		Kind: Classify(lang),
		Lang: lang,
		Body: normalizeBody(body),
	}
}

// Classify tags a block by its fence language.
func Classify(lang string) model.BlockKind {
	if strings.EqualFold(strings.TrimSpace(lang), "json") {
		return model.BlockDirective
	}
	return model.BlockCode
}

func normalizeBody(body string) string {
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return body
}

// Emit renders blocks back into fenced text. Scanning the result yields
// the same blocks.
func Emit(blocks []model.Block) string {
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("```")
		b.WriteString(block.Lang)
		b.WriteString("\n")
		b.WriteString(normalizeBody(block.Body))
		b.WriteString("```\n")
	}
	return b.String()
}
