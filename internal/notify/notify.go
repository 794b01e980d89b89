// Package notify coalesces filesystem change events into a single
// pending-notification channel, so a poll-driven consumer (the
// orchestrator's main loop) never backs up behind a burst of writes.
//
// Grounded on cklxx-elephant.ai/internal/config's RuntimeConfigWatcher
// (fsnotify.Watcher lifecycle, a watchLoop goroutine selecting on
// Events/Errors/stop) using the same library, github.com/fsnotify/fsnotify
// — adapted from "debounce then reload a config cache" to "coalesce then
// signal a single buffered channel", since spec.md §4.B only needs a
// wake-up, not a reload pipeline.
package notify

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches one path (file or directory) and exposes a coalesced
// change channel: at most one pending notification is ever buffered, so
// a slow consumer never needs to drain a backlog.
type Watcher struct {
	path     string
	baseName string
	dirMode  bool
	watcher  *fsnotify.Watcher
	events   chan struct{}

	stopCh   chan struct{}
	stopOnce sync.Once
}

// Watch starts watching path. For a file, the containing directory is
// watched and any event whose filename begins with path's base filename
// propagates — per spec.md §4.B's DB-file stream contract, so a SQLite
// store's "kbtz.db", "kbtz.db-wal", "kbtz.db-shm", and "kbtz.db-journal"
// (WAL checkpoints, journal rollback, and rename-then-recreate alike)
// all wake a waiter on one watch of the base path. For a directory, the
// directory itself is watched and any entry changing underneath it
// propagates (the status-file dir stream, spec.md §4.B's second kind).
func Watch(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	abs = filepath.Clean(abs)

	dirMode := false
	if fi, statErr := os.Stat(abs); statErr == nil {
		dirMode = fi.IsDir()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watchDir := abs
	if !dirMode {
		watchDir = filepath.Dir(abs)
	}
	if err := fsWatcher.Add(watchDir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		baseName: filepath.Base(abs),
		dirMode:  dirMode,
		watcher:  fsWatcher,
		events:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Events returns the coalesced notification channel: a receive means
// "something changed since you last checked", not "exactly one event
// happened".
func (w *Watcher) Events() <-chan struct{} { return w.events }

// Close stops the underlying fsnotify watcher and its loop goroutine.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				// A pure permission/mtime touch with no data change —
				// ignoring it avoids a watcher-induced feedback loop.
				continue
			}
			if w.dirMode || strings.HasPrefix(filepath.Base(event.Name), w.baseName) {
				w.notify()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error on %s: %v", w.path, err)
		}
	}
}

// notify performs the non-blocking "keep at most one pending" send.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// DrainEvents consumes any currently pending notification without
// blocking, returning whether one was pending.
func (w *Watcher) DrainEvents() bool {
	select {
	case <-w.events:
		return true
	default:
		return false
	}
}
