// Package watcher notices when in-chat files are modified outside the
// session, so stale copies are never sent to the model and dirty-commit
// logic sees fresh state.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Chitius/aider/internal/logging"
)

// ChangeHandler is called with the relative path of an externally modified
// in-chat file.
type ChangeHandler func(rel string)

// Watcher monitors the files currently in the chat.
type Watcher struct {
	fs   *fsnotify.Watcher
	root string

	onChange ChangeHandler
	debounce time.Duration

	mu      sync.Mutex
	watched map[string]bool // abs path -> watched
	pending map[string]time.Time
	done    chan struct{}
	stop    sync.Once
}

// New creates a Watcher rooted at the session directory.
func New(root string, onChange ChangeHandler) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:       fs,
		root:     root,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		watched:  make(map[string]bool),
		pending:  make(map[string]time.Time),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watch starts monitoring one in-chat file.
func (w *Watcher) Watch(abs string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[abs] {
		return
	}
	if err := w.fs.Add(abs); err != nil {
		logging.Debug("watch failed", "path", abs, "error", err)
		return
	}
	w.watched[abs] = true
}

// Unwatch stops monitoring a file, typically after /drop.
func (w *Watcher) Unwatch(abs string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watched[abs] {
		return
	}
	w.fs.Remove(abs)
	delete(w.watched, abs)
}

// Close stops the watcher.
func (w *Watcher) Close() {
	w.stop.Do(func() {
		close(w.done)
		w.fs.Close()
	})
}

func (w *Watcher) loop() {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending[ev.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Debug("watcher error", "error", err)
		case <-tick.C:
			w.flush()
		}
	}
}

// flush fires the handler for paths whose events have settled past the
// debounce window.
func (w *Watcher) flush() {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, abs := range ready {
		rel, err := filepath.Rel(w.root, abs)
		if err != nil {
			rel = abs
		}
		if w.onChange != nil {
			w.onChange(filepath.ToSlash(rel))
		}
	}
}
