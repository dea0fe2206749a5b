// Package coordinator is the Request Coordinator (spec §4.10, C10):
// the single entry point LSP requests flow through before reaching
// the Source Store, Compilation Service, or Diagnostics Pipeline. It
// enforces per-URI write ordering, gives every write an
// epoch so a superseded compile can be cancelled cooperatively, and
// turns a read request into "ensure compiled, then answer" without
// callers needing to know the Compilation Service exists.
package coordinator

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/groovy-lsp/engine/internal/compiler"
	"github.com/groovy-lsp/engine/internal/diagnostics"
	engerrors "github.com/groovy-lsp/engine/internal/errors"
	"github.com/groovy-lsp/engine/internal/logging"
	"github.com/groovy-lsp/engine/internal/parser"
	"github.com/groovy-lsp/engine/internal/store"
	"github.com/groovy-lsp/engine/internal/types"
)

// docState tracks the current write epoch for one URI, so an
// in-flight compile triggered by an older write can recognize it has
// been superseded and give up cooperatively (spec §4.10: "epoch-based
// cancellation").
type docState struct {
	mu     sync.Mutex
	epoch  uint64
	cancel context.CancelFunc
}

// Coordinator serializes writes per URI and fans reads through the
// Compilation Service, holding a root context that cancels every
// in-flight operation on Shutdown (spec §4.10: "global shutdown
// cancellation").
type Coordinator struct {
	store       *store.Store
	compiler    *compiler.Service
	diagnostics *diagnostics.Pipeline

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu    sync.Mutex
	docs  map[types.URI]*docState
}

// New creates a Coordinator wired to store, comp, and diag.
func New(st *store.Store, comp *compiler.Service, diag *diagnostics.Pipeline) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		store:       st,
		compiler:    comp,
		diagnostics: diag,
		rootCtx:     ctx,
		rootCancel:  cancel,
		docs:        make(map[types.URI]*docState),
	}
}

func (c *Coordinator) stateFor(uri types.URI) *docState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.docs[uri]
	if !ok {
		st = &docState{}
		c.docs[uri] = st
	}
	return st
}

// CorrelationID mints a fresh request identifier (spec §4.10: "each
// coordinated request receives a correlation id" for structured
// logging and in-flight tracing).
func CorrelationID() string { return uuid.NewString() }

// Write applies a document write (open/change) under uri's
// per-document ordering: it advances uri's epoch, cancels whatever
// compile was in flight for the previous epoch, and stores text
// before returning, so the next Read is guaranteed to see it.
func (c *Coordinator) Write(uri types.URI, version int32, text string) {
	st := c.stateFor(uri)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.epoch++
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	c.store.Put(uri, version, text)
	logging.Debugf(logging.Coordinator, "write %s version=%d epoch=%d", uri, version, st.epoch)
}

// Close removes uri from the Source Store and invalidates its
// Compilation Service cache entry entirely (spec §4.10: did_close
// tears down per-document state rather than just superseding it).
func (c *Coordinator) Close(uri types.URI) {
	st := c.stateFor(uri)
	st.mu.Lock()
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	st.mu.Unlock()

	c.mu.Lock()
	delete(c.docs, uri)
	c.mu.Unlock()

	c.store.Remove(uri)
	c.compiler.Invalidate(uri)
}

// Read ensures uri is compiled at phase and returns the resulting
// ParseUnit, cancelling the wait if a newer Write supersedes this read
// mid-flight (spec §4.10: "read triggers ensure_compiled and awaits").
func (c *Coordinator) Read(ctx context.Context, uri types.URI, phase parser.CompilePhase) (*parser.ParseUnit, error) {
	doc, ok := c.store.Get(uri)
	if !ok {
		return nil, engerrors.New(engerrors.KindDependency, "read", errDocNotOpen(uri)).WithURI(uri)
	}

	corrID := CorrelationID()
	st := c.stateFor(uri)
	st.mu.Lock()
	opCtx, cancel := context.WithCancel(c.rootCtx)
	st.cancel = cancel
	st.mu.Unlock()
	defer cancel()

	mergedCtx, mergedCancel := mergeContexts(ctx, opCtx)
	defer mergedCancel()

	logging.Debugf(logging.Coordinator, "[%s] compile job started for %s at phase %d", corrID, uri, phase)
	unit, err := c.compiler.Compile(mergedCtx, uri, doc.Text, phase)
	if err != nil {
		if engerrors.IsCancellation(err) {
			logging.Debugf(logging.Coordinator, "[%s] compile job for %s cancelled", corrID, uri)
			return nil, engerrors.New(engerrors.KindCancellation, "read", err).WithURI(uri)
		}
		logging.Warnf(logging.Coordinator, "[%s] compile job for %s failed: %v", corrID, uri, err)
		return nil, engerrors.New(engerrors.KindParse, "read", err).WithURI(uri)
	}
	logging.Debugf(logging.Coordinator, "[%s] compile job for %s completed", corrID, uri)
	return unit, nil
}

// PublishDiagnostics runs the Diagnostics Pipeline for uri's current
// text, forwarding each publication to emit.
func (c *Coordinator) PublishDiagnostics(ctx context.Context, uri types.URI, emit func(diagnostics.Publication)) error {
	doc, ok := c.store.Get(uri)
	if !ok {
		return engerrors.New(engerrors.KindDependency, "publish_diagnostics", errDocNotOpen(uri)).WithURI(uri)
	}
	return c.diagnostics.Publish(ctx, uri, doc.Text, emit)
}

// Shutdown cancels every in-flight operation the Coordinator has
// started, per spec §4.10's global shutdown cancellation.
func (c *Coordinator) Shutdown() {
	c.rootCancel()
}

func mergeContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := make(chan struct{})
	go func() {
		select {
		case <-b.Done():
			cancel()
		case <-stop:
		}
	}()
	return ctx, func() {
		close(stop)
		cancel()
	}
}

type docNotOpenError struct{ uri types.URI }

func (e docNotOpenError) Error() string { return "document not open: " + string(e.uri) }

func errDocNotOpen(uri types.URI) error { return docNotOpenError{uri: uri} }
