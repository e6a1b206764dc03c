// Package watch calls back with an input file's content each time it is
// saved.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	gfs "github.com/sokinpui/graft/internal/fs"
)

// DefaultDebounce is how long a file must stay quiet before it is read.
const DefaultDebounce = 300 * time.Millisecond

// Watcher follows a single file.
type Watcher struct {
	path     string
	debounce time.Duration
	log      *zap.Logger
}

// New creates a Watcher for path. A non-positive debounce uses
// DefaultDebounce and a nil logger discards output.
func New(path string, debounce time.Duration, log *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{path: path, debounce: debounce, log: log}
}

// Run blocks until ctx is done, calling fn after every save that changes
// the file's content. The content present when Run starts does not
// trigger fn.
func (w *Watcher) Run(ctx context.Context, fn func(content string)) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not start file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often save by renaming a temporary file over the original, so
	// the directory is watched rather than the file.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("could not watch %s: %w", filepath.Dir(abs), err)
	}
	w.log.Info("watching input file", zap.String("path", abs))

	var lastHash string
	if data, err := os.ReadFile(abs); err == nil {
		lastHash = gfs.HashBytes(data)
	}

	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()
	var pending time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug("input file event", zap.String("op", event.Op.String()))
			pending = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", zap.Error(err))

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < w.debounce {
				continue
			}
			pending = time.Time{}

			data, err := os.ReadFile(abs)
			if err != nil {
				w.log.Debug("input file not readable", zap.Error(err))
				continue
			}
			hash := gfs.HashBytes(data)
			if hash == lastHash {
				continue
			}
			lastHash = hash
			fn(string(data))
		}
	}
}
