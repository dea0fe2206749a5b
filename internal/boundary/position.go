// Package boundary is the External Boundary (spec §4.12, §6, C12): it
// translates LSP-shaped events and queries into engine operations, and
// engine outputs back into client-facing notifications. JSON-RPC
// framing and method dispatch are out of scope (spec §1) — this
// package is the plain Go surface a framing layer calls into.
package boundary

import "github.com/groovy-lsp/engine/internal/types"

// Position is an LSP-style 0-indexed (line, UTF-16 code-unit) external
// position (spec §6 "Position encoding"). The engine stores 1-indexed
// positions internally (types.Pos); this file is the single place the
// 1-indexed/0-indexed conversion happens, per spec §9 Design Note
// "Multiple LSP method results that share position maths ... centralise
// position conversion in one module; never duplicate per feature."
type Position struct {
	Line      int
	Character int
}

// Range is an external, 0-indexed half-open range.
type Range struct {
	Start Position
	End   Position
}

// toInternal converts an external 0-indexed Position to the parser's
// 1-indexed types.Pos.
func toInternal(p Position) types.Pos {
	return types.Pos{Line: p.Line + 1, Column: p.Character + 1}
}

// fromInternal converts a 1-indexed types.Pos to an external,
// 0-indexed Position.
func fromInternal(p types.Pos) Position {
	line := p.Line - 1
	if line < 0 {
		line = 0
	}
	col := p.Column - 1
	if col < 0 {
		col = 0
	}
	return Position{Line: line, Character: col}
}

// rangeFromInternal converts a types.Range to an external Range.
func rangeFromInternal(r types.Range) Range {
	return Range{Start: fromInternal(r.Start), End: fromInternal(r.End)}
}

// Location pairs an external Range with the URI it belongs to, the
// shape every position-based query result (definition, references,
// type_definition, implementation) returns (spec §6).
type Location struct {
	URI   types.URI
	Range Range
}
