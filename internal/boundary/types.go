package boundary

import (
	"github.com/groovy-lsp/engine/internal/ast"
	"github.com/groovy-lsp/engine/internal/status"
	"github.com/groovy-lsp/engine/internal/types"
)

// Diagnostic is the external, 0-indexed form of types.Diagnostic
// (spec §3 Diagnostic, §6 publish_diagnostics).
type Diagnostic struct {
	Range    Range
	Severity types.Severity
	Message  string
	Source   string
	Code     string
}

func diagnosticFromInternal(d types.Diagnostic) Diagnostic {
	return Diagnostic{
		Range:    rangeFromInternal(d.Range),
		Severity: d.Severity,
		Message:  d.Message,
		Source:   d.Source,
		Code:     d.Code,
	}
}

func diagnosticsFromInternal(ds []types.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(ds))
	for _, d := range ds {
		out = append(out, diagnosticFromInternal(d))
	}
	return out
}

// WatchedFileChangeKind mirrors did_change_watched_files' change
// taxonomy (spec §6).
type WatchedFileChangeKind int

const (
	FileCreated WatchedFileChangeKind = iota
	FileChanged
	FileDeleted
)

// WatchedFileEvent is one entry of a did_change_watched_files batch.
type WatchedFileEvent struct {
	URI    types.URI
	Change WatchedFileChangeKind
}

// MessageType classifies a show_message call (spec §6).
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageWarning
	MessageError
)

// StatusNotification is the external shape of the Status Machine's
// Snapshot (spec §4.11, §6 status_notification), flattening optional
// fields the way a JSON-RPC payload would.
type StatusNotification struct {
	Health       string
	Quiescent    bool
	Message      string
	FilesIndexed int
	FilesTotal   int
	ErrorCode    string
	ErrorDetails string
}

// healthString maps the Status Machine's internal lifecycle states
// (starting/ready/degraded/shutting_down) onto the spec's external
// health vocabulary (spec §3/§4.11/§6: "health ∈ {ok, warning,
// error}"). Starting, ready and shutting-down are all still
// operating normally from a client's point of view; only a degraded
// (dependency/indexing failure) or fatal state is surfaced as
// anything other than ok.
func healthString(h status.Health) string {
	switch h {
	case status.HealthDegraded:
		return "warning"
	case status.HealthFatal:
		return "error"
	default:
		return "ok"
	}
}

func statusNotificationFromSnapshot(s status.Snapshot) StatusNotification {
	n := StatusNotification{
		Health:       healthString(s.Health),
		Quiescent:    s.Quiescent,
		Message:      s.Message,
		FilesIndexed: s.Progress.Done,
		FilesTotal:   s.Progress.Total,
	}
	if s.LastError != nil {
		n.ErrorCode = s.LastError.Source
		n.ErrorDetails = s.LastError.Message
	}
	return n
}

// SymbolKind classifies a DocumentSymbol/WorkspaceSymbol entry for
// client-side icon selection (spec §3 Symbol.kind).
type SymbolKind string

const (
	SymbolClass     SymbolKind = "class"
	SymbolInterface SymbolKind = "interface"
	SymbolEnum      SymbolKind = "enum"
	SymbolTrait     SymbolKind = "trait"
	SymbolMethod    SymbolKind = "method"
	SymbolCtor      SymbolKind = "constructor"
	SymbolField     SymbolKind = "field"
	SymbolParameter SymbolKind = "parameter"
	SymbolVariable  SymbolKind = "local"
	SymbolImport    SymbolKind = "import"
	SymbolUnknown   SymbolKind = "unknown"
)

func symbolKindFromAST(k ast.Kind) SymbolKind {
	switch k {
	case ast.KindClass:
		return SymbolClass
	case ast.KindInterface:
		return SymbolInterface
	case ast.KindEnum:
		return SymbolEnum
	case ast.KindTrait:
		return SymbolTrait
	case ast.KindMethod:
		return SymbolMethod
	case ast.KindConstructor:
		return SymbolCtor
	case ast.KindField:
		return SymbolField
	case ast.KindParameter:
		return SymbolParameter
	case ast.KindLocalVarDecl:
		return SymbolVariable
	case ast.KindImport:
		return SymbolImport
	default:
		return SymbolUnknown
	}
}

// DocumentSymbol is one node of the document_symbol(URI) response
// tree (spec §6).
type DocumentSymbol struct {
	Name           string
	Kind           SymbolKind
	Range          Range
	SelectionRange Range
	Children       []DocumentSymbol
}

// WorkspaceSymbolResult is one workspace_symbol(query) hit (spec §6).
type WorkspaceSymbolResult struct {
	Name     string
	Kind     SymbolKind
	Location Location
}

// CompletionItem is one completion(URI, pos) suggestion (spec §6).
// Item shaping beyond name/kind/detail is an editor-facing concern out
// of scope for the core (spec §1 Non-goals); this is the minimal shape
// a feature provider built on top of the engine would enrich.
type CompletionItem struct {
	Label  string
	Kind   SymbolKind
	Detail string
}

// TextEdit is one replacement within a rename's WorkspaceEdit.
type TextEdit struct {
	Range   Range
	NewText string
}

// WorkspaceEdit is rename(URI, pos, new_name)'s result (spec §6): a
// set of TextEdits grouped by the URI they apply to.
type WorkspaceEdit struct {
	Changes map[types.URI][]TextEdit
}

// CodeAction is one code_action(URI, range, diagnostics) suggestion
// (spec §6). Action bodies (quick fixes tied to specific lint rule
// ids) belong to the CodeNarc-equivalent provider layer, out of scope
// for the core (spec §1); the core only ever returns an empty slice
// today, a typed extension point rather than an unused stub.
type CodeAction struct {
	Title string
	Edit  WorkspaceEdit
}

// SemanticTokenType enumerates the token classes semantic_tokens_full
// encodes, in the fixed order the LSP int encoding's tokenType index
// refers to.
type SemanticTokenType int

const (
	TokenClass SemanticTokenType = iota
	TokenInterface
	TokenEnum
	TokenMethod
	TokenParameter
	TokenVariable
	TokenProperty
	TokenNamespace
)
