// Package watch reports external modifications of the open document file.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 300 * time.Millisecond

// ChangedHandler is called with the absolute path of a modified file.
type ChangedHandler func(path string)

// Watcher watches single files by watching their parent directories.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange ChangedHandler
	logger   *log.Logger
	debounce time.Duration

	mu         sync.Mutex
	watching   map[string]struct{} // absolute file paths
	dirs       map[string]int      // directory -> number of watched files
	timers     map[string]*time.Timer
	suppressed map[string]time.Time // path -> ignore events until
	closed     bool
	done       chan struct{}
}

// New creates a Watcher. A nil logger uses log.Default().
func New(onChange ChangedHandler, logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		watcher:    fw,
		onChange:   onChange,
		logger:     logger.WithPrefix("watch"),
		debounce:   DefaultDebounce,
		watching:   make(map[string]struct{}),
		dirs:       make(map[string]int),
		timers:     make(map[string]*time.Timer),
		suppressed: make(map[string]time.Time),
		done:       make(chan struct{}),
	}

	go w.loop()

	return w, nil
}

// SetDebounce changes the quiet period before a change is reported.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounce = d
	w.mu.Unlock()
}

// Watch starts reporting changes to path.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watching[absPath]; ok {
		return nil
	}
	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.watching[absPath] = struct{}{}
	w.logger.Debug("watching", "path", absPath)
	return nil
}

// Unwatch stops reporting changes to path.
func (w *Watcher) Unwatch(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watching[absPath]; !ok {
		return
	}
	delete(w.watching, absPath)
	delete(w.suppressed, absPath)
	if t, ok := w.timers[absPath]; ok {
		t.Stop()
		delete(w.timers, absPath)
	}

	dir := filepath.Dir(absPath)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		w.watcher.Remove(dir)
	}
}

// Suppress ignores events on path for the given duration. Used around the
// application's own writes.
func (w *Watcher) Suppress(path string, d time.Duration) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.suppressed[absPath] = time.Now().Add(d)
	w.mu.Unlock()
}

// Close stops the watcher. Pending notifications are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = nil
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			w.schedule(absPath)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}

func (w *Watcher) schedule(absPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if _, ok := w.watching[absPath]; !ok {
		return
	}
	if until, ok := w.suppressed[absPath]; ok {
		if time.Now().Before(until) {
			return
		}
		delete(w.suppressed, absPath)
	}

	if t, ok := w.timers[absPath]; ok {
		t.Stop()
	}
	w.timers[absPath] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		_, still := w.watching[absPath]
		closed := w.closed
		if !closed {
			delete(w.timers, absPath)
		}
		w.mu.Unlock()
		if !still || closed {
			return
		}
		w.logger.Info("file changed", "path", absPath)
		if w.onChange != nil {
			w.onChange(absPath)
		}
	})
}
