package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/groovy-lsp/engine/internal/logging"
	"github.com/groovy-lsp/engine/internal/types"
)

// EventKind is the kind of filesystem change a Watcher reports, per
// spec §4.8's did_change_watched_files event taxonomy.
type EventKind int

const (
	EventCreated EventKind = iota
	EventChanged
	EventDeleted
)

// Event is one debounced filesystem notification for one URI.
type Event struct {
	URI  types.URI
	Kind EventKind
}

// Watcher watches a set of root directories for Groovy/Java source
// changes and delivers debounced Events, grounded on
// internal/indexing/watcher.go's FileWatcher/eventDebouncer pair: one
// fsnotify.Watcher, a recursive directory walk to register watches,
// and a coalescing debounce timer so a burst of writes to the same
// file (editors often save via a temp-file-then-rename dance) becomes
// one Event.
type Watcher struct {
	scanner  *Scanner
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[types.URI]EventKind
	timer   *time.Timer

	out chan Event
}

// NewWatcher creates a Watcher using scanner's include/exclude rules
// to decide which filesystem events matter, coalescing bursts within
// debounce into one event per URI.
func NewWatcher(scanner *Scanner, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		scanner:  scanner,
		fsw:      fsw,
		debounce: debounce,
		pending:  make(map[types.URI]EventKind),
		out:      make(chan Event, 256),
	}, nil
}

// Events returns the channel debounced Events are delivered on. The
// channel is closed once run returns.
func (w *Watcher) Events() <-chan Event { return w.out }

// WatchRoots registers fsnotify watches for every root and every
// non-excluded subdirectory beneath it, then runs the event loop in a
// new goroutine until ctx is cancelled.
func (w *Watcher) WatchRoots(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := w.addWatchesRecursive(root); err != nil {
			return err
		}
	}
	go w.run(ctx)
	return nil
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && w.scanner.excluded(rel+"/") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			logging.Warnf(logging.Workspace, "failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.out)
	for {
		select {
		case <-ctx.Done():
			w.fsw.Close()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warnf(logging.Workspace, "watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel := filepath.ToSlash(ev.Name)
	if w.scanner.excluded(rel) {
		return
	}

	if ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0 {
		if w.scanner.included(rel) {
			w.queue(pathToURI(ev.Name), EventDeleted)
		}
		return
	}

	info, statErr := os.Stat(ev.Name)
	if statErr != nil {
		return
	}
	if info.IsDir() {
		if ev.Op&fsnotify.Create != 0 {
			if err := w.fsw.Add(ev.Name); err != nil {
				logging.Warnf(logging.Workspace, "failed to watch new directory %s: %v", ev.Name, err)
			}
		}
		return
	}

	if !w.scanner.included(rel) {
		return
	}
	kind := EventChanged
	if ev.Op&fsnotify.Create != 0 {
		kind = EventCreated
	}
	w.queue(pathToURI(ev.Name), kind)
}

func (w *Watcher) queue(uri types.URI, kind EventKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[uri] = kind
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[types.URI]EventKind)
	w.mu.Unlock()

	for uri, kind := range pending {
		select {
		case w.out <- Event{URI: uri, Kind: kind}:
		default:
			logging.Warnf(logging.Workspace, "event channel full, dropping event for %s", uri)
		}
	}
}

// Close releases the underlying fsnotify watcher. Safe to call after
// the event loop has already exited via context cancellation.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
