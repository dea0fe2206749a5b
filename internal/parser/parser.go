// Package parser is the Parser Facade (spec §4.3, C3): the boundary
// between the grammar engine (internal/groovy) and the rest of the
// engine. It turns one source text into a ParseUnit shaped the way the
// spec's data model describes, and holds no cache of its own — caching
// and invalidation are the Compilation Service's job (C6).
package parser

import (
	"github.com/groovy-lsp/engine/internal/ast"
	"github.com/groovy-lsp/engine/internal/classpath"
	"github.com/groovy-lsp/engine/internal/fingerprint"
	"github.com/groovy-lsp/engine/internal/groovy"
	"github.com/groovy-lsp/engine/internal/types"
)

// CompilePhase mirrors the grammar engine's Phase, re-exported here so
// callers outside internal/groovy never need to import it directly.
type CompilePhase = groovy.Phase

const (
	PhaseTokenize         = groovy.PhaseTokenize
	PhaseSyntaxTree       = groovy.PhaseSyntaxTree
	PhaseASTConversion    = groovy.PhaseASTConversion
	PhaseSemanticAnalysis = groovy.PhaseSemanticAnalysis
	PhaseCanonicalization = groovy.PhaseCanonicalization
)

// Declaration is one top-level-or-nested named declaration surfaced
// for the Symbol Index to consume without re-walking the tree.
type Declaration struct {
	Node ast.NodeIndex
	Kind ast.Kind
	Name string
	// ID is dense within this ParseUnit (spec §3 Symbol identity), used
	// by the Symbol Index as a deterministic tiebreaker when ranking
	// otherwise-equal candidates.
	ID types.SymbolID
}

// ParseUnit is one parse's complete, immutable result (spec §3
// ParseUnit): the AST plus everything derived from it that downstream
// components need without re-parsing.
type ParseUnit struct {
	URI          types.URI
	Fingerprint  fingerprint.Fingerprint
	Tree         *ast.Tree
	Diagnostics  []types.Diagnostic
	Declarations []Declaration
	Imports      []groovy.Import
	Bindings     map[ast.NodeIndex]ast.NodeIndex
	IsSuccessful bool
	PhaseReached CompilePhase
}

// Parse runs the grammar engine over text and assembles a ParseUnit.
// classpath is accepted per the spec's C3 signature (source_text,
// classpath, compile_phase) for forward compatibility with type
// resolution against external jars; the current grammar engine does
// not consult it, since no external type resolution is implemented
// (spec Non-goals: full semantic type checking).
func Parse(uri types.URI, text string, _ classpath.Resolver, phase CompilePhase) *ParseUnit {
	res := groovy.Parse(text, phase)

	decls := make([]Declaration, 0, len(res.Declarations))
	for i, idx := range res.Declarations {
		n := res.Tree.Node(idx)
		decls = append(decls, Declaration{Node: idx, Kind: n.Kind, Name: n.Name, ID: types.SymbolID(i)})
	}

	return &ParseUnit{
		URI:          uri,
		Fingerprint:  fingerprint.Of(text),
		Tree:         res.Tree,
		Diagnostics:  res.Diagnostics,
		Declarations: decls,
		Imports:      res.Imports,
		Bindings:     res.Bindings,
		IsSuccessful: res.IsSuccessful,
		PhaseReached: res.PhaseReached,
	}
}

// DefaultPhase is the phase Parse targets when a caller has no
// specific reason to stop earlier (spec §4.3: "defaults to
// SEMANTIC_ANALYSIS").
const DefaultPhase = PhaseSemanticAnalysis
