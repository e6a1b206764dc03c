// Package source reads the text to process.
package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/graft/internal/ui"
)

// SourceProvider determines and retrieves the source content.
type SourceProvider struct {
	path  string
	stdin *os.File
	quiet bool
}

// New creates a SourceProvider. A non-empty path is read instead of stdin
// or the clipboard; "-" forces stdin.
func New(path string, quiet bool) *SourceProvider {
	return &SourceProvider{path: path, stdin: os.Stdin, quiet: quiet}
}

func (sp *SourceProvider) header(format string, a ...interface{}) {
	if !sp.quiet {
		ui.Header(format, a...)
	}
}

// GetContent retrieves content from the file argument, stdin (if piped) or
// the clipboard, in that order.
func (sp *SourceProvider) GetContent() (string, error) {
	if sp.path != "" && sp.path != "-" {
		sp.header("--- Reading from %s ---", sp.path)
		content, err := os.ReadFile(sp.path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", sp.path, err)
		}
		return string(content), nil
	}

	if sp.path == "-" || sp.isPiped() {
		sp.header("--- Reading from stdin ---")
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	sp.header("--- Reading from clipboard ---")
	content, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		if !sp.quiet {
			ui.Warning("Clipboard is empty. Nothing to process.")
		}
		return "", nil
	}
	return content, nil
}

func (sp *SourceProvider) isPiped() bool {
	stat, err := sp.stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}
