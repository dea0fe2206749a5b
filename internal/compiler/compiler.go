// Package compiler is the Compilation Service (spec §4.6, C6): the
// single authority for turning a document into an up-to-date
// ParseUnit, deduplicating concurrent requests for the same
// (URI, fingerprint) pair, and retaining a bounded tail of superseded
// units so in-flight readers of a just-superseded ParseUnit are not
// left holding a dangling reference (spec §4.6 note on "superseded
// but still referenced" units).
package compiler

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/groovy-lsp/engine/internal/ast"
	"github.com/groovy-lsp/engine/internal/classpath"
	"github.com/groovy-lsp/engine/internal/fingerprint"
	"github.com/groovy-lsp/engine/internal/logging"
	"github.com/groovy-lsp/engine/internal/parser"
	"github.com/groovy-lsp/engine/internal/types"
)

// tailSize bounds how many superseded ParseUnits per URI the Service
// keeps reachable after a newer build replaces them, per spec §4.6.
// Invalidate drops the tail along with the current entry.
const tailSize = 2

// CacheEntry is one URI's most recent compilation result plus the
// fingerprint it was built from, so callers can tell a cache hit from
// a stale read without recomputing the fingerprint themselves.
type CacheEntry struct {
	Unit        *parser.ParseUnit
	Fingerprint fingerprint.Fingerprint
}

// buildSlot holds the single in-flight-or-latest build for one URI,
// plus the LRU tail of units superseded by later builds.
type buildSlot struct {
	mu      sync.Mutex
	current *CacheEntry
	tail    *list.List // front = most recently superseded
}

// Service is the Compilation Service. It owns no document text itself
// (that is the Source Store's job, C1) — callers supply text on every
// EnsureCompiled/Compile call; the classpath resolver is fixed at New.
type Service struct {
	resolver classpath.Resolver

	mu    sync.Mutex
	slots map[types.URI]*buildSlot
	group singleflight.Group
}

// New creates a Service backed by resolver for external type lookups.
// A nil resolver defaults to classpath.NoopResolver.
func New(resolver classpath.Resolver) *Service {
	if resolver == nil {
		resolver = classpath.NoopResolver{}
	}
	return &Service{resolver: resolver, slots: make(map[types.URI]*buildSlot)}
}

func (s *Service) slotFor(uri types.URI) *buildSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[uri]
	if !ok {
		slot = &buildSlot{tail: list.New()}
		s.slots[uri] = slot
	}
	return slot
}

// EnsureCompiled returns the current ParseUnit for uri/text, compiling
// it if the cached entry's fingerprint does not match text's. Phase is
// always parser.DefaultPhase; callers needing another checkpoint use
// Compile (spec §4.6: "ensure_compiled defaults to SEMANTIC_ANALYSIS").
func (s *Service) EnsureCompiled(ctx context.Context, uri types.URI, text string) (*parser.ParseUnit, error) {
	return s.Compile(ctx, uri, text, parser.DefaultPhase)
}

// Compile builds (or reuses) the ParseUnit for uri/text at phase.
// Concurrent calls for the same URI and fingerprint collapse into one
// parse via singleflight, so a burst of coordinator reads triggered by
// the same edit do not re-run the grammar engine redundantly (spec
// §4.6: "at most one build in flight per URI+fingerprint").
func (s *Service) Compile(ctx context.Context, uri types.URI, text string, phase parser.CompilePhase) (*parser.ParseUnit, error) {
	fp := fingerprint.Of(text)
	slot := s.slotFor(uri)

	slot.mu.Lock()
	if slot.current != nil && slot.current.Fingerprint == fp && slot.current.Unit.PhaseReached >= phase {
		entry := slot.current
		slot.mu.Unlock()
		return entry.Unit, nil
	}
	slot.mu.Unlock()

	key := string(uri) + "|" + fp.String()
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		// A flight for this key may have stored its result between the
		// cache check above and this call; reuse it instead of parsing again.
		slot.mu.Lock()
		if slot.current != nil && slot.current.Fingerprint == fp && slot.current.Unit.PhaseReached >= phase {
			unit := slot.current.Unit
			slot.mu.Unlock()
			return unit, nil
		}
		slot.mu.Unlock()
		unit := s.parseRecoveringPanics(uri, text, phase)
		s.store(uri, slot, unit, fp)
		return unit, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*parser.ParseUnit), nil
}

// parseRecoveringPanics runs the Parser Facade, converting any panic
// inside it into a synthetic error diagnostic rather than propagating
// it to the caller (spec §4.6 failure semantics: "a panic inside the
// parser is caught ... the CacheEntry still exists with an empty AST
// and no symbols").
func (s *Service) parseRecoveringPanics(uri types.URI, text string, phase parser.CompilePhase) (unit *parser.ParseUnit) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf(logging.Compiler, "parser panicked for %s: %v", uri, r)
			unit = &parser.ParseUnit{
				URI:          uri,
				Fingerprint:  fingerprint.Of(text),
				Tree:         &ast.Tree{Nodes: []ast.Node{{Kind: ast.KindModule}}},
				IsSuccessful: false,
				Diagnostics: []types.Diagnostic{{
					Severity: types.SeverityError,
					Message:  fmt.Sprintf("internal parser error: %v", r),
					Source:   "groovy-parser",
					Code:     "internal-error",
				}},
			}
		}
	}()
	return parser.Parse(uri, text, s.resolver, phase)
}

func (s *Service) store(uri types.URI, slot *buildSlot, unit *parser.ParseUnit, fp fingerprint.Fingerprint) {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.current != nil && slot.current.Fingerprint != fp {
		slot.tail.PushFront(slot.current)
		for slot.tail.Len() > tailSize {
			slot.tail.Remove(slot.tail.Back())
		}
	}
	slot.current = &CacheEntry{Unit: unit, Fingerprint: fp}
	logging.Debugf(logging.Compiler, "compiled %s at phase %d (fingerprint %s)", uri, unit.PhaseReached, fp.String())
}

// Invalidate drops uri's cached entry and tail entirely, e.g. on
// did_close or a deletion event (spec §4.6: explicit invalidation).
func (s *Service) Invalidate(uri types.URI) {
	s.mu.Lock()
	delete(s.slots, uri)
	s.mu.Unlock()
}

// Lookup returns the current cached ParseUnit for uri without
// triggering a compile, for callers that only want a best-effort
// snapshot (e.g. status reporting).
func (s *Service) Lookup(uri types.URI) (*CacheEntry, bool) {
	s.mu.Lock()
	slot, ok := s.slots[uri]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.current == nil {
		return nil, false
	}
	entry := *slot.current
	return &entry, true
}
