// Package symbols is the Symbol Index (spec §4.5, C5): one index per
// file (declarations plus identity-based usage edges carried over from
// the grammar engine's binding resolution) and a workspace-wide index
// built as the union of per-file indices, supporting exact, prefix,
// substring and fuzzy symbol search (spec §4.5 rule 3, ranked tiers).
package symbols

import (
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/groovy-lsp/engine/internal/ast"
	"github.com/groovy-lsp/engine/internal/logging"
	"github.com/groovy-lsp/engine/internal/parser"
	"github.com/groovy-lsp/engine/internal/types"
)

// Declaration is one searchable declaration surfaced by a file's
// FileIndex, carrying enough context to render a workspace_symbol
// response without re-reading the ParseUnit.
type Declaration struct {
	URI            types.URI
	Node           ast.NodeIndex
	Kind           ast.Kind
	Name           string
	Range          types.Range
	SelectionRange types.Range
	// SymbolID is the ParseUnit-dense id carried over from the Parser
	// Facade (spec §3 Symbol identity); the Workspace Symbol Index uses
	// it as a deterministic last-resort ranking tiebreaker.
	SymbolID types.SymbolID
}

// FileIndex is the declarations and usage edges derived from one
// ParseUnit, the unit the Symbol Index rebuilds whenever a URI
// recompiles.
type FileIndex struct {
	URI types.URI
	// FileID is assigned by WorkspaceIndex the first time URI is seen
	// (spec §3 "FileID... assigned... the first time it is seen by the
	// workspace indexer"); zero until a WorkspaceIndex.Update call.
	FileID       types.FileID
	Declarations []Declaration
	// Usages maps a usage node to the declaration node it is bound to,
	// by identity (spec §4.5 rule 2), carried over verbatim from the
	// grammar engine's semantic-analysis phase.
	Usages map[ast.NodeIndex]ast.NodeIndex
}

// BuildFileIndex derives a FileIndex from unit.
func BuildFileIndex(unit *parser.ParseUnit) *FileIndex {
	fi := &FileIndex{URI: unit.URI, Usages: unit.Bindings}
	for _, d := range unit.Declarations {
		n := unit.Tree.Node(d.Node)
		fi.Declarations = append(fi.Declarations, Declaration{
			URI:            unit.URI,
			Node:           d.Node,
			Kind:           d.Kind,
			Name:           d.Name,
			Range:          n.Range,
			SelectionRange: n.SelectionRange,
			SymbolID:       d.ID,
		})
	}
	return fi
}

// DeclarationAt returns the declaration a usage node at pos resolves
// to, if any, walking up from the innermost containing node since a
// usage binding is recorded on the exact identifier/call node (spec
// §4.5: "definition lookup resolves via the binding recorded at parse
// time, not by re-deriving it").
func (fi *FileIndex) DeclarationAt(tree *ast.Tree, pos types.Pos) (ast.NodeIndex, bool) {
	idx := tree.NodeAt(pos)
	for idx != ast.NoNode {
		if decl, ok := fi.Usages[idx]; ok {
			return decl, true
		}
		idx = tree.Node(idx).Parent
	}
	return ast.NoNode, false
}

// matchTier ranks how a query matched a candidate name, lower is
// better (spec §4.5 rule 3: exact > prefix > substring > fuzzy).
type matchTier int

const (
	tierExact matchTier = iota
	tierPrefix
	tierSubstring
	tierFuzzy
	tierNone
)

const fuzzyThreshold = 0.77 // empirical cutoff, same band the teacher's fuzzy_matcher.go uses for "plausible match"

// WorkspaceIndex is the union of every open-or-indexed file's
// FileIndex, with a trigram acceleration structure kept in sync as
// files are (re)indexed. There is no separate prefix structure:
// queries shorter than three characters scan every declaration.
type WorkspaceIndex struct {
	mu    sync.RWMutex
	files map[types.URI]*FileIndex
	// trigrams maps a lowercase 3-gram to the set of (URI, declaration
	// index) pairs whose name contains it, accelerating substring
	// search over large workspaces (spec §4.5 rule 3) the way the
	// teacher's trigram index accelerates full-text search, simplified
	// here to plain Go maps since symbol names are short and the
	// workspace-scale slab allocator the teacher uses for file content
	// is unnecessary at symbol-name length.
	trigrams map[string]map[declRef]struct{}

	// fileIDs and nextFileID implement the "dense id assigned the first
	// time a URI is seen" rule for types.FileID (spec §3).
	fileIDs    map[types.URI]types.FileID
	nextFileID types.FileID
}

type declRef struct {
	uri types.URI
	idx int
}

// NewWorkspaceIndex creates an empty WorkspaceIndex.
func NewWorkspaceIndex() *WorkspaceIndex {
	return &WorkspaceIndex{
		files:    make(map[types.URI]*FileIndex),
		trigrams: make(map[string]map[declRef]struct{}),
		fileIDs:  make(map[types.URI]types.FileID),
	}
}

// Update replaces uri's FileIndex, removing its prior trigram entries
// first so re-indexing a changed file never leaves stale postings, and
// returns the FileID assigned to uri (stable across re-indexes of the
// same URI, per spec §3).
func (w *WorkspaceIndex) Update(fi *FileIndex) types.FileID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeLocked(fi.URI)

	fid, ok := w.fileIDs[fi.URI]
	if !ok {
		fid = w.nextFileID
		w.nextFileID++
		w.fileIDs[fi.URI] = fid
	}
	fi.FileID = fid

	w.files[fi.URI] = fi
	for i, d := range fi.Declarations {
		ref := declRef{uri: fi.URI, idx: i}
		for _, tri := range trigramsOf(strings.ToLower(d.Name)) {
			set, ok := w.trigrams[tri]
			if !ok {
				set = make(map[declRef]struct{})
				w.trigrams[tri] = set
			}
			set[ref] = struct{}{}
		}
	}
	logging.Debugf(logging.Symbols, "workspace index updated %s (file=%d, declarations=%d)", fi.URI, fid, len(fi.Declarations))
	return fid
}

// Remove drops uri's declarations from the workspace index entirely,
// e.g. on file deletion.
func (w *WorkspaceIndex) Remove(uri types.URI) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeLocked(uri)
}

func (w *WorkspaceIndex) removeLocked(uri types.URI) {
	if _, ok := w.files[uri]; !ok {
		return
	}
	delete(w.files, uri)
	for tri, set := range w.trigrams {
		for ref := range set {
			if ref.uri == uri {
				delete(set, ref)
			}
		}
		if len(set) == 0 {
			delete(w.trigrams, tri)
		}
	}
}

// File returns uri's current FileIndex, if indexed.
func (w *WorkspaceIndex) File(uri types.URI) (*FileIndex, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fi, ok := w.files[uri]
	return fi, ok
}

func trigramsOf(s string) []string {
	if len(s) < 3 {
		return []string{s}
	}
	out := make([]string, 0, len(s)-2)
	for i := 0; i+3 <= len(s); i++ {
		out = append(out, s[i:i+3])
	}
	return out
}

// Find ranks every known declaration against query (spec §4.5 rule 3),
// returning at most limit results: exact-name matches first, then
// prefix, then substring (via trigram candidates), then Jaro-Winkler
// fuzzy matches above fuzzyThreshold. Within a tier, results are
// ordered by URI then range, for deterministic output across runs.
func (w *WorkspaceIndex) Find(query string, limit int) []Declaration {
	w.mu.RLock()
	defer w.mu.RUnlock()

	lowerQuery := strings.ToLower(query)
	type scored struct {
		d     Declaration
		tier  matchTier
		score float64
	}
	var results []scored

	seen := make(map[declRef]struct{})
	considerCandidate := func(uri types.URI, idx int) {
		ref := declRef{uri: uri, idx: idx}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		d := w.files[uri].Declarations[idx]
		lowerName := strings.ToLower(d.Name)
		switch {
		case lowerName == lowerQuery:
			results = append(results, scored{d: d, tier: tierExact})
		case strings.HasPrefix(lowerName, lowerQuery):
			results = append(results, scored{d: d, tier: tierPrefix})
		case strings.Contains(lowerName, lowerQuery):
			results = append(results, scored{d: d, tier: tierSubstring})
		}
	}

	// Exact/prefix/substring candidates: trigram postings narrow the
	// scan to names that plausibly contain the query.
	if len(lowerQuery) >= 3 {
		candidateSets := make([]map[declRef]struct{}, 0)
		for _, tri := range trigramsOf(lowerQuery) {
			if set, ok := w.trigrams[tri]; ok {
				candidateSets = append(candidateSets, set)
			}
		}
		if len(candidateSets) > 0 {
			for ref := range candidateSets[0] {
				considerCandidate(ref.uri, ref.idx)
			}
		}
	} else {
		for uri, fi := range w.files {
			for i := range fi.Declarations {
				considerCandidate(uri, i)
			}
		}
	}

	if len(results) == 0 {
		// Fuzzy fallback tier: no exact/prefix/substring hit anywhere,
		// so score every declaration by Jaro-Winkler similarity (spec
		// §4.5 rule 3's lowest-priority tier), grounded on the
		// teacher's fuzzy_matcher.go use of go-edlib.
		for uri, fi := range w.files {
			for _, d := range fi.Declarations {
				sim, err := edlib.StringsSimilarity(lowerQuery, strings.ToLower(d.Name), edlib.JaroWinkler)
				if err != nil || sim < fuzzyThreshold {
					continue
				}
				results = append(results, scored{d: d, tier: tierFuzzy, score: float64(sim)})
			}
			_ = uri
		}
	}

	sort.Slice(results, func(i, j int) bool {
		ri, rj := results[i], results[j]
		if ri.tier != rj.tier {
			return ri.tier < rj.tier
		}
		if ri.tier == tierFuzzy && ri.score != rj.score {
			return ri.score > rj.score
		}
		if ri.d.URI != rj.d.URI {
			return ri.d.URI < rj.d.URI
		}
		if ri.d.Range.Start != rj.d.Range.Start {
			return ri.d.Range.Start.Before(rj.d.Range.Start)
		}
		// Final tiebreak for two declarations sharing a range (e.g. a
		// class and its implicit constructor): SymbolID is dense and
		// stable within a ParseUnit, so this is deterministic across
		// runs regardless of map iteration order (spec §4.5 rule 3).
		return ri.d.SymbolID < rj.d.SymbolID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]Declaration, len(results))
	for i, r := range results {
		out[i] = r.d
	}
	return out
}
