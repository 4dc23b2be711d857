// Package watch re-verifies spec integrity whenever files under the specs
// directory change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/logging"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Handler receives the outcome of each verification.
type Handler func(res *snapshot.Result, err error)

// Verifier is the part of snapshot.Guard the watcher needs.
type Verifier interface {
	Verify(ctx context.Context) (*snapshot.Result, error)
}

// Watcher watches a specs directory tree.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	verifier Verifier
	handler  Handler
	debounce time.Duration
	logger   *zap.Logger
}

// Options configure a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *zap.Logger
}

// New starts watching dir and every directory below it. The caller must
// call Run, which releases the underlying watcher when it returns.
func New(dir string, verifier Verifier, handler Handler, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watching specs: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watching specs: %s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		dir:      dir,
		verifier: verifier,
		handler:  handler,
		debounce: opts.Debounce,
		logger:   logging.OrNop(opts.Logger),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if err := w.addTree(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// NewProject watches the specs directory of the project at root.
func NewProject(root string, cfg *config.Config, guard *snapshot.Guard, handler Handler, opts Options) (*Watcher, error) {
	return New(cfg.SpecsPath(root), guard, handler, opts)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.logger.Debug("watching directory", zap.String("dir", path))
		return nil
	})
}

// relevant reports whether an event can change the snapshot comparison.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("cannot watch new directory", zap.String("dir", ev.Name), zap.Error(err))
			}
			return true
		}
	}
	return strings.HasSuffix(ev.Name, config.SpecExt) || ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0
}

// Run processes events until ctx is done. Bursts of events inside the
// debounce window trigger a single verification.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing watcher", zap.Error(err))
		}
	}()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("spec event", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-timer.C:
			res, err := w.verifier.Verify(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				w.logger.Error("verifying snapshot", zap.Error(err))
			} else if !res.OK() {
				w.logger.Warn(snapshot.TamperMarker,
					zap.Strings("changed", res.Changed),
					zap.Strings("added", res.Added),
					zap.Strings("deleted", res.Deleted))
			}
			if w.handler != nil {
				w.handler(res, err)
			}
		}
	}
}
