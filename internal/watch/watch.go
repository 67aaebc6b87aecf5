// Package watch processes containers as they arrive in the input directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/suykerbuyk/reqifclean/internal/discover"
)

const minTick = 10 * time.Millisecond

// Handler processes one settled container.
type Handler func(ctx context.Context, path string) error

// Watcher feeds containers from one directory to a Handler, one at a time,
// once they have stopped changing for the settle interval.
type Watcher struct {
	dir    string
	settle time.Duration
	handle Handler
	logger *slog.Logger

	pending map[string]time.Time
	done    map[string]fileState
}

type fileState struct {
	size    int64
	modTime time.Time
}

// New returns a Watcher over dir.
func New(dir string, settle time.Duration, handle Handler, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		handle:  handle,
		logger:  logger,
		pending: make(map[string]time.Time),
		done:    make(map[string]fileState),
	}
}

// Run watches until ctx is cancelled. Containers already present when it
// starts are queued too.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	existing, err := discover.Discover(w.dir)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, f := range existing {
		w.pending[f.Path] = now
	}
	w.logger.Info("watching input", "dir", w.dir, "settle", w.settle, "queued", len(existing))

	tick := w.settle / 4
	if tick < minTick {
		tick = minTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.observe(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)

		case <-ctx.Done():
			w.logger.Info("watcher stopping")
			return nil
		}
	}
}

func (w *Watcher) observe(event fsnotify.Event) {
	if !discover.IsContainer(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.pending[event.Name] = time.Now()
		w.logger.Debug("container changed", "path", event.Name, "op", event.Op.String())
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	}
}

// flush hands every settled container to the handler in name order.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)

	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		delete(w.pending, path)

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if st, ok := w.done[path]; ok && st.size == info.Size() && st.modTime.Equal(info.ModTime()) {
			continue // our own rename back into place
		}

		if err := w.handle(ctx, path); err != nil {
			w.logger.Error("container failed", "path", path, "error", err)
		}
		if info, err := os.Stat(path); err == nil {
			w.done[path] = fileState{size: info.Size(), modTime: info.ModTime()}
		} else {
			delete(w.done, path)
		}
	}
}
