package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Formatter rewrites source text.
type Formatter interface {
	Format(ctx context.Context, text string) (string, error)
}

// CommandFormatter pipes text through an external command such as
// `black -q -`.
type CommandFormatter struct {
	Command []string
	Timeout time.Duration
}

// Format runs the command with text on stdin and returns its stdout.
func (f CommandFormatter) Format(ctx context.Context, text string) (string, error) {
	if len(f.Command) == 0 {
		return "", errors.New("no formatter command configured")
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.Command[0], f.Command[1:]...)
	cmd.Stdin = strings.NewReader(text)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("`%s` failed: %w: %s", strings.Join(f.Command, " "), err, strings.TrimSpace(stderr.String()))
	}
	if out.Len() == 0 && strings.TrimSpace(text) != "" {
		return "", fmt.Errorf("`%s` produced no output", strings.Join(f.Command, " "))
	}
	return out.String(), nil
}
