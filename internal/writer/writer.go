// Package writer validates, formats, backs up and writes updated module
// text, and renders the diff of what changed.
package writer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	gfs "github.com/sokinpui/graft/internal/fs"
	"github.com/sokinpui/graft/internal/syntax"
	"github.com/sokinpui/graft/model"
)

// Source is the current state of a target file.
type Source struct {
	Path   string
	Module string
	Text   string
	Exists bool
	// Raw is the file's bytes before decoding; non-nil when Exists.
	Raw  []byte
	perm os.FileMode
}

// Request asks for Updated to replace Source's text.
type Request struct {
	Source     Source
	Updated    string
	ReturnDiff bool
	// DryRun runs every step except the backup and the write.
	DryRun bool
}

// Outcome describes a finished write.
type Outcome struct {
	Text    string
	Diff    string
	Changed bool
	Created bool
	Backup  string
}

// Writer persists updated modules.
type Writer struct {
	cfg       model.Config
	log       *zap.Logger
	codec     codec
	formatter Formatter
}

// Option customizes a Writer.
type Option func(*Writer)

// WithFormatter replaces the command formatter.
func WithFormatter(f Formatter) Option {
	return func(w *Writer) { w.formatter = f }
}

// New creates a Writer. The configured file encoding must be known.
func New(cfg model.Config, log *zap.Logger, opts ...Option) (*Writer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c, err := newCodec(cfg.FileEncoding)
	if err != nil {
		return nil, fmt.Errorf("unknown file encoding %q: %w", cfg.FileEncoding, err)
	}
	w := &Writer{
		cfg:       cfg,
		log:       log,
		codec:     c,
		formatter: CommandFormatter{Command: cfg.FormatterCommand, Timeout: cfg.FormatterTimeout},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Load reads the file at path. A missing file is an empty module when
// missing modules may be created, and a missing-module error otherwise.
// Nothing is created until Write.
func (w *Writer) Load(path, module string) (Source, error) {
	src := Source{Path: path, Module: module, perm: 0644}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !w.cfg.CreateMissingModules {
			return src, model.NewError(model.KindMissingModule, module, "%s does not exist", path)
		}
		return src, nil
	case err != nil:
		return src, model.WrapError(model.KindIO, module, err)
	case info.IsDir():
		return src, model.NewError(model.KindIO, module, "%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return src, model.WrapError(model.KindIO, module, err)
	}
	text, err := w.codec.decode(data)
	if err != nil {
		return src, model.WrapError(model.KindIO, module, fmt.Errorf("decode %s: %w", w.cfg.FileEncoding, err))
	}
	if data == nil {
		data = []byte{}
	}
	src.Text = text
	src.Raw = data
	src.Exists = true
	src.perm = info.Mode().Perm()
	return src, nil
}

// Write validates, optionally formats, backs up and writes the update. Any
// error leaves the file on disk as it was.
func (w *Writer) Write(ctx context.Context, req Request) (Outcome, error) {
	src := req.Source
	text := req.Updated
	log := w.log.With(zap.String("module", src.Module))

	if w.cfg.EnableValidation {
		if err := syntax.Validate(src.Module, text); err != nil {
			if w.cfg.StrictParsing {
				return Outcome{}, model.WrapError(model.KindValidation, src.Module, err)
			}
			log.Warn("updated module does not parse, writing anyway",
				zap.String("kind", string(model.KindValidation)), zap.Error(err))
		}
	}

	if !w.cfg.PreserveFormatting {
		formatted, err := w.formatter.Format(ctx, text)
		if err != nil {
			log.Warn("formatter failed, keeping unformatted text",
				zap.String("kind", string(model.KindFormatter)), zap.Error(err))
		} else {
			text = formatted
		}
	}

	out := Outcome{Text: text}
	if src.Exists && text == src.Text {
		log.Info("no changes")
		return out, nil
	}
	out.Changed = true
	out.Created = !src.Exists

	if req.ReturnDiff {
		diff, err := Diff(src.Module, src.Text, text)
		if err != nil {
			log.Warn("could not render diff", zap.Error(err))
		}
		out.Diff = diff
	}
	if req.DryRun {
		log.Info("dry run, not writing")
		return out, nil
	}

	if w.cfg.EnableBackup && src.Exists {
		out.Backup = src.Path + w.backupSuffix()
		if err := gfs.CopyFile(src.Path, out.Backup); err != nil {
			return Outcome{}, model.WrapError(model.KindIO, src.Module, fmt.Errorf("backup: %w", err))
		}
		log.Debug("backup written", zap.String("path", out.Backup))
	}

	data, err := w.codec.encode(text)
	if err != nil {
		return Outcome{}, model.WrapError(model.KindIO, src.Module, fmt.Errorf("encode %s: %w", w.cfg.FileEncoding, err))
	}
	if err := os.MkdirAll(filepath.Dir(src.Path), 0755); err != nil {
		return Outcome{}, model.WrapError(model.KindIO, src.Module, err)
	}
	if err := gfs.WriteFileAtomic(src.Path, data, src.perm); err != nil {
		return Outcome{}, model.WrapError(model.KindIO, src.Module, err)
	}
	log.Info("module written", zap.String("path", src.Path), zap.Bool("created", out.Created))
	return out, nil
}

func (w *Writer) backupSuffix() string {
	if w.cfg.BackupSuffix == "" {
		return ".bak"
	}
	return w.cfg.BackupSuffix
}

// Diff renders a unified diff labelled original/<module> and
// updated/<module>.
func Diff(module, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: "original/" + filepath.ToSlash(module),
		ToFile:   "updated/" + filepath.ToSlash(module),
		Context:  3,
	})
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}
