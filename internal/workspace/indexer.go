package workspace

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/groovy-lsp/engine/internal/compiler"
	"github.com/groovy-lsp/engine/internal/logging"
	"github.com/groovy-lsp/engine/internal/symbols"
	"github.com/groovy-lsp/engine/internal/types"
)

// defaultDebounce matches the teacher's WatchDebounceMs default band
// (a few hundred milliseconds is enough to coalesce editor
// save-via-rename bursts without feeling laggy).
const defaultDebounce = 300 * time.Millisecond

// defaultConcurrency bounds how many files compile at once during an
// initial workspace scan, so indexing a large workspace does not
// spawn thousands of goroutines contending for the same singleflight
// group (spec §4.8: "throttled concurrency"). It is sized to the
// available CPUs minus one, with a minimum of 1.
var defaultConcurrency = max(runtime.NumCPU()-1, 1)

// Progress reports indexing progress (spec §4.8 operation
// "reindex_workspace" progress reporting, spec §4.11 Status Machine
// progress field).
type Progress struct {
	Done  int
	Total int
}

// Indexer is the Workspace Indexer (C8): it scans configured roots,
// compiles every discovered file through the Compilation Service,
// populates the workspace Symbol Index, and keeps both in sync as the
// Watcher reports filesystem changes.
type Indexer struct {
	scanner     *Scanner
	compiler    *compiler.Service
	symbolIndex *symbols.WorkspaceIndex
	concurrency int

	mu    sync.Mutex
	watch *Watcher
}

// New creates an Indexer backed by comp for compilation and sidx for
// symbol storage.
func New(comp *compiler.Service, sidx *symbols.WorkspaceIndex) *Indexer {
	return &Indexer{
		scanner:     NewScanner(),
		compiler:    comp,
		symbolIndex: sidx,
		concurrency: defaultConcurrency,
	}
}

// ReindexWorkspace scans every root, compiles each discovered file,
// and reports progress via onProgress (nil is accepted for callers
// that do not need progress reporting). Work is spread across a
// bounded worker pool so a large workspace does not overwhelm the
// Compilation Service with unbounded concurrent builds.
func (idx *Indexer) ReindexWorkspace(ctx context.Context, roots []string, onProgress func(Progress)) error {
	var uris []types.URI
	for _, root := range roots {
		found, err := idx.scanner.Scan(root)
		if err != nil {
			return err
		}
		uris = append(uris, found...)
	}

	total := len(uris)
	if total == 0 {
		if onProgress != nil {
			onProgress(Progress{Done: 0, Total: 0})
		}
		return nil
	}

	var done int
	var mu sync.Mutex
	report := func() {
		if onProgress == nil {
			return
		}
		mu.Lock()
		done++
		d := done
		mu.Unlock()
		onProgress(Progress{Done: d, Total: total})
	}

	sem := make(chan struct{}, idx.concurrency)
	var wg sync.WaitGroup
	for _, uri := range uris {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		default:
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(uri types.URI) {
			defer wg.Done()
			defer func() { <-sem }()
			idx.indexOne(ctx, uri)
			report()
		}(uri)
	}
	wg.Wait()
	return nil
}

func (idx *Indexer) indexOne(ctx context.Context, uri types.URI) {
	text, err := readURI(uri)
	if err != nil {
		logging.Warnf(logging.Workspace, "failed to read %s: %v", uri, err)
		return
	}
	unit, err := idx.compiler.EnsureCompiled(ctx, uri, text)
	if err != nil {
		logging.Warnf(logging.Workspace, "failed to compile %s: %v", uri, err)
		return
	}
	fid := idx.symbolIndex.Update(symbols.BuildFileIndex(unit))
	logging.Debugf(logging.Workspace, "indexed %s as file %d", uri, fid)
}

// WatchAndSync starts a Watcher over roots and consumes its Events
// until ctx is cancelled, keeping the Compilation Service and Symbol
// Index current as files change outside the editor (spec §4.8
// operation "handle_file_event").
func (idx *Indexer) WatchAndSync(ctx context.Context, roots []string) error {
	w, err := NewWatcher(idx.scanner, defaultDebounce)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	idx.watch = w
	idx.mu.Unlock()

	if err := w.WatchRoots(ctx, roots); err != nil {
		return err
	}

	go func() {
		for ev := range w.Events() {
			switch ev.Kind {
			case EventDeleted:
				idx.compiler.Invalidate(ev.URI)
				idx.symbolIndex.Remove(ev.URI)
			default:
				idx.indexOne(ctx, ev.URI)
			}
		}
	}()
	return nil
}

// Close stops the watcher, if one is running.
func (idx *Indexer) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.watch == nil {
		return nil
	}
	return idx.watch.Close()
}

func readURI(uri types.URI) (string, error) {
	return ReadURI(uri)
}

// ReadURI reads a URI's on-disk content, for callers outside this
// package that need to index an unopened file (e.g. the External
// Boundary handling a watched-file create/change for a document that
// is not currently open, spec §3 Document invariant).
func ReadURI(uri types.URI) (string, error) {
	path := uriToPath(uri)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func uriToPath(uri types.URI) string {
	const prefix = "file://"
	s := string(uri)
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}
