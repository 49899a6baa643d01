package hydrate

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchedFiles are the workspace files whose changes invalidate hydration
// state: dependency changes alter the package set, compiler-config changes
// alter alias resolution.
var watchedFiles = map[string]struct{}{
	"package.json":  {},
	"tsconfig.json": {},
	"jsconfig.json": {},
}

// rehydrateDebounce coalesces the write bursts editors and package managers
// produce when saving a config file.
const rehydrateDebounce = 500 * time.Millisecond

// Watcher re-hydrates a workspace when its manifest or compiler
// configuration changes on disk.
type Watcher struct {
	engine  *Engine
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching the workspace root of the given engine. The
// engine must already be hydrated so its root is set.
func NewWatcher(engine *Engine, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	root := engine.Root()
	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		engine:  engine,
		logger:  logger,
		watcher: fsw,
		done:    make(chan struct{}),
	}
	go w.run(root)
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run(root string) {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(event.Name)
			if _, watched := watchedFiles[name]; !watched {
				continue
			}
			w.logger.Debug("workspace config changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(rehydrateDebounce)
				fire = timer.C
			} else {
				timer.Reset(rehydrateDebounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.rehydrate(root)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// rehydrate resets the engine and runs a fresh eager pass for the same root.
func (w *Watcher) rehydrate(root string) {
	w.engine.Reset(root)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := w.engine.HydrateWorkspace(ctx, root); err != nil {
		w.logger.Warn("re-hydration failed", "root", root, "error", err)
	}
}
