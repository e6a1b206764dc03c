package graft

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/graft/cli"
	"github.com/sokinpui/graft/internal/nvim"
	"github.com/sokinpui/graft/internal/source"
	"github.com/sokinpui/graft/internal/state"
	"github.com/sokinpui/graft/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// App orchestrates a command-line run: reading input, applying edits,
// recording history and refreshing Neovim.
type App struct {
	cfg              *cli.Config
	log              *zap.Logger
	processor        *Processor
	stateManager     *state.Manager
	sourceProvider   *source.SourceProvider
	progressCallback ProgressUpdate
	changes          []state.Change
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error { return e.Err }

// StackTrace returns the stack captured when the panic was recovered.
func (e *DetailedError) StackTrace() []byte { return e.Stack }

// New creates a new App instance.
func New(cfg *cli.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		cfg:            cfg,
		log:            log,
		sourceProvider: source.New(cfg.Input, !cfg.NoTUI),
	}

	processor, err := NewProcessor(cfg.Config,
		WithLogger(log),
		WithDryRun(cfg.DryRun),
		WithChangeHook(a.collect))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize processor: %w", err)
	}
	a.processor = processor

	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = state.DefaultDir(processor.Resolver().Base())
	}
	stateManager, err := state.New(stateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	a.stateManager = stateManager
	return a, nil
}

// collect records a written file. Only the first write to a path in a run
// is kept, so Before holds the content from before the run.
func (a *App) collect(c Change) {
	for _, prev := range a.changes {
		if prev.Path == c.Path {
			return
		}
	}
	a.changes = append(a.changes, state.Change{Path: c.Path, Before: c.Before})
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

func (a *App) progress(current, total int) {
	if a.progressCallback != nil {
		a.progressCallback(current, total)
	}
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute(ctx context.Context) (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastOperation()
	case a.cfg.Redo:
		return a.redoLastOperation()
	default:
		return a.processContent(ctx)
	}
}

func (a *App) processContent(ctx context.Context) (model.Summary, error) {
	content, err := a.sourceProvider.GetContent()
	if err != nil {
		return model.Summary{}, err
	}
	if strings.TrimSpace(content) == "" {
		return model.Summary{Message: "Source is empty. Nothing to process."}, nil
	}
	return a.ApplyText(ctx, content)
}

// ApplyText applies every block in content and records the run in the
// undo history.
func (a *App) ApplyText(ctx context.Context, content string) (model.Summary, error) {
	a.changes = nil
	_, parsed := a.processor.ProcessText(ctx, content, false)
	if len(parsed) == 0 {
		return model.Summary{Message: "No code blocks found. Nothing to do."}, nil
	}

	results := make([]model.Result, 0, len(parsed))
	total := len(parsed)
	a.progress(0, total)
	for i, r := range parsed {
		if err := ctx.Err(); err != nil {
			return model.Summary{}, err
		}
		if r.OK {
			r = a.processor.Apply(ctx, r.Edit, a.cfg.Diff || a.cfg.DryRun)
		}
		results = append(results, r)
		a.progress(i+1, total)
	}

	summary := a.summarize(results)
	if a.cfg.DryRun {
		summary.Message = "Dry run: nothing was written."
		return summary, nil
	}

	if len(a.changes) > 0 {
		entry, err := a.stateManager.Record(a.changes)
		if err != nil {
			a.log.Error("could not record history", zap.Error(err))
			summary.Message = "Changes applied, but undo history could not be recorded."
		} else {
			a.log.Debug("recorded history entry", zap.String("id", entry.ID), zap.Int("files", len(entry.Operations)))
		}
		a.refreshNvim(append(summary.Created, summary.Modified...))
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// summarize sorts results into the summary's groups.
func (a *App) summarize(results []model.Result) model.Summary {
	var s model.Summary
	written := make(map[string]bool)
	for _, r := range results {
		name := r.Path
		if name == "" && r.Edit != nil {
			name = r.Edit.Module()
		}
		switch {
		case !r.OK:
			if name == "" {
				s.Failed = append(s.Failed, r.Message)
			} else {
				s.Failed = append(s.Failed, fmt.Sprintf("%s (%s)", name, r.Message))
			}
		case r.Path == "" || strings.HasPrefix(r.Message, "no changes"):
			s.Skipped = append(s.Skipped, fmt.Sprintf("%s (%s)", name, r.Message))
		case written[r.Path]:
		case r.Created:
			s.Created = append(s.Created, r.Path)
			written[r.Path] = true
		default:
			s.Modified = append(s.Modified, r.Path)
			written[r.Path] = true
		}
		if r.Diff != "" {
			s.Diffs = append(s.Diffs, r.Diff)
		}
	}
	return s
}

// undoLastOperation handles the undo logic.
func (a *App) undoLastOperation() (model.Summary, error) {
	restored, failed, err := a.stateManager.Undo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(restored) == 0 && len(failed) == 0 {
		return model.Summary{Message: "No operation to undo."}, nil
	}
	a.refreshNvim(restored)

	summary := model.Summary{
		Modified: restored,
		Failed:   failed,
		Message:  "Undid last operation.",
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// redoLastOperation handles the redo logic.
func (a *App) redoLastOperation() (model.Summary, error) {
	restored, failed, err := a.stateManager.Redo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(restored) == 0 && len(failed) == 0 {
		return model.Summary{Message: "No operation to redo."}, nil
	}
	a.refreshNvim(restored)

	summary := model.Summary{
		Modified: restored,
		Failed:   failed,
		Message:  "Redid last undone operation.",
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// refreshNvim reloads changed files in Neovim when asked to. Failures are
// only logged.
func (a *App) refreshNvim(paths []string) {
	if !a.cfg.Nvim || len(paths) == 0 {
		return
	}
	manager, err := nvim.New("")
	if err != nil {
		if errors.Is(err, nvim.ErrNoServer) {
			a.log.Warn("--nvim given but no Neovim server address is set")
		} else {
			a.log.Warn("could not connect to nvim", zap.Error(err))
		}
		return
	}
	defer manager.Close()

	_, failed := manager.Refresh(paths, nil)
	for _, f := range failed {
		a.log.Warn("nvim could not reload buffer", zap.String("path", f))
	}
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the current working directory for cleaner display.
func (a *App) relativizeSummaryPaths(summary *model.Summary) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	makeRelative := func(absPaths []string) []string {
		relPaths := make([]string, len(absPaths))
		for i, p := range absPaths {
			rel, err := filepath.Rel(wd, p)
			if err != nil || !filepath.IsAbs(p) {
				relPaths[i] = p
			} else {
				relPaths[i] = rel
			}
		}
		return relPaths
	}

	summary.Created = makeRelative(summary.Created)
	summary.Modified = makeRelative(summary.Modified)
}
