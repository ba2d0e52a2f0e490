// Package watch wraps the filesystem notification primitive with the
// debounce and write-quiescence policies the build loop needs. A Watcher
// binds one path set to one callback; reaction composition lives with the
// instance orchestrator.
package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Default policy windows. DefaultQuiescence is the stability window applied
// to the compiled-script output file: the reload fires only after writes to
// it have been quiet for the whole window.
const (
	DefaultDebounce   = 300 * time.Millisecond
	DefaultQuiescence = 500 * time.Millisecond
)

// Event is the change notification delivered to the callback after the
// debounce window closes. Path is the last path that changed.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Options configures one watcher.
type Options struct {
	// Debounce is the idle period after the last change before the
	// callback fires. Zero means DefaultDebounce.
	Debounce time.Duration
	// Recursive watches subdirectories of directory paths, including ones
	// created later.
	Recursive bool
}

// Watcher owns one fsnotify watcher bound to a path set and callback.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	fn       func(Event)

	// fileFilter restricts events to specific files when the watched path
	// was a file (its parent directory is what fsnotify watches).
	fileFilter map[string]bool
	recursive  bool
	roots      []string

	mu      sync.Mutex
	timer   *time.Timer
	last    Event
	closed  bool
	closeCh chan struct{}
}

// New starts watching pathSet and invokes fn once per debounced change
// burst. File paths are watched via their parent directory so editors that
// replace files are still observed. There is no initial-scan event: fn only
// fires for changes after New returns.
func New(pathSet []string, opts Options, fn func(Event)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:         fsw,
		debounce:   opts.Debounce,
		fn:         fn,
		fileFilter: make(map[string]bool),
		recursive:  opts.Recursive,
		closeCh:    make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	for _, path := range pathSet {
		if err := w.add(path); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) add(path string) error {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		// A missing watched path is not fatal: watch the nearest existing
		// parent so its later creation is observed.
		w.fileFilter[path] = true
		return w.addNearestParent(path)
	case info.IsDir():
		w.roots = append(w.roots, path)
		if w.recursive {
			return addDirsRecursive(w.fs, path)
		}
		return w.fs.Add(path)
	default:
		w.fileFilter[path] = true
		return w.fs.Add(filepath.Dir(path))
	}
}

func (w *Watcher) addNearestParent(path string) error {
	dir := filepath.Dir(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			return w.fs.Add(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			switch {
			case w.fileFilter[ev.Name]:
				// A watched directory missing at start now exists: promote
				// it to a recursively watched root so changes inside it are
				// observed from here on.
				w.roots = append(w.roots, ev.Name)
				_ = addDirsRecursive(w.fs, ev.Name)
			case w.recursive:
				_ = addDirsRecursive(w.fs, ev.Name)
			}
		}
	}
	if len(w.fileFilter) > 0 && !w.matchesFilter(ev.Name) {
		return
	}
	slog.Debug("file change detected", "path", ev.Name, "op", ev.Op.String())
	w.trigger(Event{Path: ev.Name, Op: ev.Op})
}

func (w *Watcher) matchesFilter(name string) bool {
	if w.fileFilter[name] {
		return true
	}
	// Directory roots pass everything beneath them.
	for _, root := range w.roots {
		if strings.HasPrefix(name, root+string(filepath.Separator)) || name == root {
			return true
		}
	}
	return false
}

// trigger resets the debounce timer; the callback fires once the path set
// has been quiet for the whole window.
func (w *Watcher) trigger(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.last = ev
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		last := w.last
		w.mu.Unlock()
		w.fn(last)
	})
}

// Close stops the watcher. No callbacks fire after Close returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	close(w.closeCh)
	return w.fs.Close()
}

func addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				slog.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not
// trigger reactions.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor temp/swap files.
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	if base == ".DS_Store" || base == "Thumbs.db" {
		return true
	}

	return false
}
