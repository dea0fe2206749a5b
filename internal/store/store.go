// Package store implements the Source Store (spec §4.1, C1): the
// authoritative in-memory text for open documents. Full-text sync
// semantics only — partial-text updates are resolved upstream of this
// package (spec §4.1, §3 Document invariant).
package store

import (
	"sync"

	"github.com/groovy-lsp/engine/internal/fingerprint"
	"github.com/groovy-lsp/engine/internal/types"
)

// Document is the authoritative state for one open URI.
type Document struct {
	Text        string
	Version     int32
	Fingerprint fingerprint.Fingerprint
}

// Store holds open-document text keyed by URI. All operations are
// concurrent-safe and non-blocking (no I/O); grounded on the document
// manager's per-map RWMutex shape, generalized to a single map lock
// since Document values here are small and copied on read.
type Store struct {
	mu   sync.RWMutex
	docs map[types.URI]Document
}

// New creates an empty Store.
func New() *Store {
	return &Store{docs: make(map[types.URI]Document)}
}

// Put installs text as the full, authoritative content for uri at the
// given client version, replacing any prior text (open or full-text
// change event). Returns the resulting fingerprint.
func (s *Store) Put(uri types.URI, version int32, text string) fingerprint.Fingerprint {
	fp := fingerprint.Of(text)
	s.mu.Lock()
	s.docs[uri] = Document{Text: text, Version: version, Fingerprint: fp}
	s.mu.Unlock()
	return fp
}

// Remove destroys the document (close event). Subsequent Get returns
// ok=false.
func (s *Store) Remove(uri types.URI) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Get returns the current document for uri, if open.
func (s *Store) Get(uri types.URI) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// Snapshot returns a point-in-time copy of all open document text,
// keyed by URI. The returned map is safe to range over without holding
// any lock.
func (s *Store) Snapshot() map[types.URI]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[types.URI]string, len(s.docs))
	for uri, doc := range s.docs {
		out[uri] = doc.Text
	}
	return out
}

// AllURIs returns every currently open URI, in no particular order.
func (s *Store) AllURIs() []types.URI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.URI, 0, len(s.docs))
	for uri := range s.docs {
		out = append(out, uri)
	}
	return out
}

// IsOpen reports whether uri currently has authoritative open-document
// text (spec §3 Document invariant: while open, this Store is ground
// truth; closed/never-opened URIs fall back to on-disk content
// elsewhere).
func (s *Store) IsOpen(uri types.URI) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[uri]
	return ok
}
