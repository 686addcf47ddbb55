// Package watcher waits for changes of manifest files using fsnotify.
package watcher

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

// DefaultWindow is the quiet period after which a batch of changes is reported.
const DefaultWindow = 100 * time.Millisecond

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher implements ports.Watcher.
// Files are watched through their parent directories so that editors replacing a file
// by rename are still noticed.
type Watcher struct {
	window time.Duration
}

// New creates a Watcher reporting changes after window without further events.
func New(window time.Duration) *Watcher {
	return &Watcher{window: window}
}

// Wait blocks until one of paths changes.
func (w *Watcher) Wait(ctx context.Context, paths []string) ([]string, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create file watcher")
	}
	defer func() { _ = fsw.Close() }()

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to resolve path"), "path", p)
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to watch directory"), "path", dir)
		}
	}

	changed := make(chan []string, 1)
	debouncer := NewDebouncer(w.window, func(paths []string) {
		select {
		case changed <- paths:
		default:
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case paths := <-changed:
			slices.Sort(paths)
			return paths, nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil, zerr.New("file watcher closed")
			}
			name := filepath.Clean(event.Name)
			if event.Op&relevantOps != 0 && watched[name] {
				debouncer.Add(name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil, zerr.New("file watcher closed")
			}
			return nil, zerr.Wrap(err, "file watcher failed")
		}
	}
}
