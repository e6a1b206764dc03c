// Package graft applies code blocks and removal directives found in
// free-form text to Python modules on disk.
package graft

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sokinpui/graft/internal/directive"
	"github.com/sokinpui/graft/internal/fs"
	"github.com/sokinpui/graft/internal/integrate"
	"github.com/sokinpui/graft/internal/scanner"
	"github.com/sokinpui/graft/internal/syntax"
	"github.com/sokinpui/graft/internal/writer"
	"github.com/sokinpui/graft/model"
)

// Change describes a file the processor wrote.
type Change struct {
	Path   string
	Module string
	// Before is the file's previous content, or nil when it was created.
	Before []byte
}

// Processor runs blocks through scanning, parsing, integration and writing.
// Edits are applied one at a time in submission order.
type Processor struct {
	cfg        model.Config
	log        *zap.Logger
	dryRun     bool
	onChange   func(Change)
	formatter  writer.Formatter
	scanner    *scanner.Scanner
	directives *directive.Parser
	integrator *integrate.Integrator
	resolver   *fs.PathResolver
	writer     *writer.Writer
}

// Option customizes a Processor.
type Option func(*Processor)

// WithLogger sets the structured log stream.
func WithLogger(log *zap.Logger) Option {
	return func(p *Processor) { p.log = log }
}

// WithDryRun makes the processor compute results and diffs without
// writing anything.
func WithDryRun(dryRun bool) Option {
	return func(p *Processor) { p.dryRun = dryRun }
}

// WithChangeHook registers a function called after each file write.
func WithChangeHook(fn func(Change)) Option {
	return func(p *Processor) { p.onChange = fn }
}

// WithFormatter replaces the external formatter command.
func WithFormatter(f writer.Formatter) Option {
	return func(p *Processor) { p.formatter = f }
}

// NewProcessor wires the pipeline for cfg.
func NewProcessor(cfg model.Config, opts ...Option) (*Processor, error) {
	p := &Processor{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}

	resolver, err := fs.NewPathResolver(cfg)
	if err != nil {
		return nil, err
	}
	var wopts []writer.Option
	if p.formatter != nil {
		wopts = append(wopts, writer.WithFormatter(p.formatter))
	}
	w, err := writer.New(cfg, p.log.Named("writer"), wopts...)
	if err != nil {
		return nil, err
	}

	p.scanner = scanner.New(p.log.Named("scanner"))
	p.directives = directive.New(cfg, p.log.Named("directive"))
	p.integrator = integrate.New(cfg, p.log.Named("integrate"))
	p.resolver = resolver
	p.writer = w
	return p, nil
}

// Resolver returns the path resolver the processor writes through.
func (p *Processor) Resolver() *fs.PathResolver { return p.resolver }

// ProcessText scans text and parses every block into an edit. When
// autoApply is set each edit is applied in order. Results hold one entry
// per block: parse failures, and either the apply outcome or a parsed
// marker for each edit.
func (p *Processor) ProcessText(ctx context.Context, text string, autoApply bool) ([]model.Edit, []model.Result) {
	var (
		edits   []model.Edit
		results []model.Result
	)
	for _, block := range p.scanner.Scan(text) {
		edit, err := p.directives.Parse(block)
		if err != nil {
			results = append(results, p.failure(err, "", nil))
			continue
		}
		edits = append(edits, edit)
		if !autoApply {
			results = append(results, model.Result{OK: true, Message: "parsed " + edit.Module(), Edit: edit})
			continue
		}
		results = append(results, p.Apply(ctx, edit, false))
	}
	return edits, results
}

// Process applies one block end to end.
func (p *Processor) Process(ctx context.Context, block model.Block, returnDiff bool) model.Result {
	edit, err := p.directives.Parse(block)
	if err != nil {
		return p.failure(err, "", nil)
	}
	return p.Apply(ctx, edit, returnDiff)
}

// Apply integrates one edit into its module and writes the result.
func (p *Processor) Apply(ctx context.Context, edit model.Edit, returnDiff bool) model.Result {
	module := edit.Module()
	switch edit.(type) {
	case *model.UpdateEdit:
		if !p.cfg.EnableIntegration {
			return model.Result{OK: true, Message: "integration disabled", Edit: edit}
		}
	case *model.RemoveEdit:
		if !p.cfg.EnableRemoval {
			return model.Result{OK: true, Message: "removal disabled", Edit: edit}
		}
	}

	path, err := p.resolver.Resolve(module)
	if err != nil {
		var merr *model.Error
		if errors.As(err, &merr) {
			merr.Module = writtenPath(edit)
		}
		return p.failure(err, "", edit)
	}
	src, err := p.writer.Load(path, module)
	if err != nil {
		return p.failure(err, path, edit)
	}
	if _, ok := edit.(*model.RemoveEdit); ok && !src.Exists {
		return p.failure(model.NewError(model.KindMissingModule, module, "nothing to remove from %s", path), path, edit)
	}

	tree, err := p.parseTarget(module, src.Text)
	if err != nil {
		return p.failure(err, path, edit)
	}
	updated, report, err := p.integrator.Apply(tree, edit)
	if err != nil {
		return p.failure(err, path, edit)
	}
	if _, ok := edit.(*model.RemoveEdit); ok && report.Applied == 0 {
		p.log.Warn("no removal target found, nothing changed",
			zap.String("module", module), zap.String("kind", string(model.KindMiss)))
		return model.Result{OK: false, Message: fmt.Sprintf("%s: no removal target found in %s", model.KindMiss, module), Path: path, Edit: edit}
	}

	out, err := p.writer.Write(ctx, writer.Request{
		Source:     src,
		Updated:    syntax.Emit(updated),
		ReturnDiff: returnDiff || p.dryRun,
		DryRun:     p.dryRun,
	})
	if err != nil {
		return p.failure(err, path, edit)
	}

	res := model.Result{OK: true, Path: path, Created: out.Created, Edit: edit, Diff: out.Diff}
	switch {
	case !out.Changed:
		res.Message = "no changes to " + module
	case p.dryRun:
		res.Message = "would update " + module
	case out.Created:
		res.Message = "created " + module
	default:
		res.Message = "updated " + module
	}
	if len(report.Missed) > 0 || len(report.Skipped) > 0 {
		res.Message += fmt.Sprintf(" (%d missed, %d skipped)", len(report.Missed), len(report.Skipped))
	}
	if out.Changed && !p.dryRun && p.onChange != nil {
		var before []byte
		if src.Exists {
			before = src.Raw
		}
		p.onChange(Change{Path: path, Module: module, Before: before})
	}
	return res
}

// parseTarget parses the module on disk. Under lenient parsing a module
// that does not parse is segmented by indentation instead.
func (p *Processor) parseTarget(module, text string) (*syntax.Module, error) {
	tree, err := syntax.Parse(module, text)
	if err == nil {
		return tree, nil
	}
	if p.cfg.StrictParsing {
		return nil, err
	}
	p.log.Warn("target module does not parse, segmenting by indentation",
		zap.String("module", module), zap.String("kind", string(model.KindParse)), zap.Error(err))
	return syntax.Segment(text), nil
}

// failure turns err into a failed result. Classified errors render with
// their kind first.
func (p *Processor) failure(err error, path string, edit model.Edit) model.Result {
	p.log.Error("edit failed",
		zap.String("kind", string(model.KindOf(err))), zap.String("path", path), zap.Error(err))
	return model.Result{OK: false, Message: err.Error(), Path: path, Edit: edit}
}

// writtenPath is the module path as the block wrote it, before the
// workspace root prefix and cleaning.
func writtenPath(edit model.Edit) string {
	switch e := edit.(type) {
	case *model.UpdateEdit:
		if e.SourcePath != "" {
			return e.SourcePath
		}
	case *model.RemoveEdit:
		if e.SourcePath != "" {
			return e.SourcePath
		}
	}
	return edit.Module()
}
