// Package watch triggers work for media files that land in a directory.
//
// Files are handed to the handler only after they have stopped changing for
// the settle interval, so partially copied files are not picked up. Handlers
// run one at a time in arrival order; a handler error is logged and the
// watcher keeps going.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"aisubs/internal/logging"
)

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Watcher monitors a single directory.
type Watcher struct {
	dir        string
	extensions map[string]struct{}
	settle     time.Duration
	handler    Handler
	logger     *slog.Logger

	pending map[string]time.Time
	done    map[string]struct{}
}

// New constructs a Watcher for dir. Extensions are matched case-insensitively
// and may be given with or without the leading dot; an empty list matches
// every file.
func New(dir string, extensions []string, settle time.Duration, handler Handler, logger *slog.Logger) *Watcher {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	if settle <= 0 {
		settle = time.Second
	}
	return &Watcher{
		dir:        dir,
		extensions: exts,
		settle:     settle,
		handler:    handler,
		logger:     logging.NewComponentLogger(logger, "watcher"),
		pending:    make(map[string]time.Time),
		done:       make(map[string]struct{}),
	}
}

// Matches reports whether path has a watched extension.
func (w *Watcher) Matches(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Run blocks until ctx is canceled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	if w.handler == nil {
		return errors.New("watch: handler required")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			w.logger.Debug("watcher close failed", logging.Error(closeErr))
		}
	}()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory",
		logging.String("dir", w.dir),
		logging.Duration("settle", w.settle),
	)

	tick := max(w.settle/4, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			w.observe(event, time.Now())
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			logging.WarnWithContext(w.logger, "watcher reported an error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some file events may have been missed"),
			)
		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				if ctx.Err() != nil {
					return nil
				}
				w.process(ctx, path)
			}
		}
	}
}

func (w *Watcher) observe(event fsnotify.Event, now time.Time) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			delete(w.pending, event.Name)
		}
		return
	}
	if !w.Matches(event.Name) {
		return
	}
	if _, seen := w.done[event.Name]; seen {
		return
	}
	w.pending[event.Name] = now
}

// settled removes and returns, sorted, every pending path quiet since before
// now minus the settle interval.
func (w *Watcher) settled(now time.Time) []string {
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
		}
	}
	slices.Sort(ready)
	for _, path := range ready {
		delete(w.pending, path)
	}
	return ready
}

func (w *Watcher) process(ctx context.Context, path string) {
	w.done[path] = struct{}{}
	w.logger.Info("file settled", logging.String("path", path))
	if err := w.handler(ctx, path); err != nil {
		logging.WarnWithContext(w.logger, "watched file not processed", "watch_handler_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run the command manually for this file to see the full error"),
		)
	}
}
