package boundary

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/groovy-lsp/engine/internal/ast"
	"github.com/groovy-lsp/engine/internal/classpath"
	"github.com/groovy-lsp/engine/internal/compiler"
	"github.com/groovy-lsp/engine/internal/config"
	"github.com/groovy-lsp/engine/internal/coordinator"
	"github.com/groovy-lsp/engine/internal/diagnostics"
	engerrors "github.com/groovy-lsp/engine/internal/errors"
	"github.com/groovy-lsp/engine/internal/logging"
	"github.com/groovy-lsp/engine/internal/parser"
	"github.com/groovy-lsp/engine/internal/status"
	"github.com/groovy-lsp/engine/internal/store"
	"github.com/groovy-lsp/engine/internal/symbols"
	"github.com/groovy-lsp/engine/internal/types"
	"github.com/groovy-lsp/engine/internal/workspace"
)

// Notifier is the set of outbound calls the Boundary makes into a
// host process (spec §6 "Outputs to boundary"). A framing layer (not
// part of this engine, spec §1) implements it to turn these calls into
// JSON-RPC notifications.
type Notifier interface {
	PublishDiagnostics(uri types.URI, diagnostics []Diagnostic)
	Status(n StatusNotification)
	ShowMessage(kind MessageType, text string)
}

// NoopNotifier discards every notification; New uses it when no
// notifier is given.
type NoopNotifier struct{}

func (NoopNotifier) PublishDiagnostics(types.URI, []Diagnostic) {}
func (NoopNotifier) Status(StatusNotification)                 {}
func (NoopNotifier) ShowMessage(MessageType, string)            {}

// Engine is the External Boundary (C12): it owns every other
// component (C1–C11) and is the single object a host process embeds.
// Control flow follows spec §2: writes land in the Source Store and
// schedule compilation through the Coordinator; reads await any
// in-flight compile via the Coordinator before consulting the AST/
// Symbol Index; every successful compile triggers the Diagnostics
// Pipeline; the Status Machine observes indexing and publication.
type Engine struct {
	store       *store.Store
	compiler    *compiler.Service
	coordinator *coordinator.Coordinator
	diagnostics *diagnostics.Pipeline
	workspace   *workspace.Indexer
	symbolIndex *symbols.WorkspaceIndex
	statusM     *status.Machine
	notifier    Notifier

	mu       sync.RWMutex
	settings config.Settings
}

// New wires a fresh Engine. resolver is the external classpath
// collaborator (C7, spec §4.7); a nil resolver defaults to
// classpath.NoopResolver, letting the engine run standalone. A nil
// notifier defaults to NoopNotifier.
func New(resolver classpath.Resolver, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	st := store.New()
	comp := compiler.New(resolver)
	diag := diagnostics.New(comp)
	sidx := symbols.NewWorkspaceIndex()
	wsIdx := workspace.New(comp, sidx)
	coord := coordinator.New(st, comp, diag)

	e := &Engine{
		store:       st,
		compiler:    comp,
		coordinator: coord,
		diagnostics: diag,
		workspace:   wsIdx,
		symbolIndex: sidx,
		statusM:     status.New(),
		notifier:    notifier,
		settings:    config.Default(),
	}
	return e
}

// Settings returns the Engine's current merged configuration.
func (e *Engine) Settings() config.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// RegisterDiagnosticProvider adds a lint provider to the Diagnostics
// Pipeline (spec §6 "Diagnostic provider"). Registration happens at
// construction and optionally again after a configuration change, per
// spec §9 Design Note on the provider capability set.
func (e *Engine) RegisterDiagnosticProvider(p diagnostics.Provider) {
	e.diagnostics.Register(p)
}

// ---- Inputs from boundary (spec §6) ----

// DidOpen registers a newly opened document and triggers its first
// compile + diagnostics publication.
func (e *Engine) DidOpen(ctx context.Context, uri types.URI, languageID string, version int32, text string) {
	_ = languageID // informational only; the engine does not branch on it (spec §6 did_open)
	e.coordinator.Write(uri, version, text)
	e.compileAndPublish(ctx, uri)
}

// DidChange replaces uri's full text (spec §6: "only full-text sync is
// modelled") and triggers recompilation + diagnostics.
func (e *Engine) DidChange(ctx context.Context, uri types.URI, version int32, fullText string) {
	e.coordinator.Write(uri, version, fullText)
	e.compileAndPublish(ctx, uri)
}

// DidClose tears down uri's open-document state entirely (spec §8
// round-trip law: "did_open; did_close leaves no trace").
func (e *Engine) DidClose(uri types.URI) {
	e.coordinator.Close(uri)
}

// DidSave is informational (spec §6); the engine already holds
// authoritative text from the last did_change, so no action is taken
// beyond logging.
func (e *Engine) DidSave(uri types.URI) {
	logging.Debugf(logging.Boundary, "did_save %s", uri)
}

// DidChangeWatchedFiles applies a batch of on-disk file events (spec
// §4.8 "react to file-watcher events"): creations/changes schedule a
// compile, deletions remove the URI from the workspace symbol index.
func (e *Engine) DidChangeWatchedFiles(ctx context.Context, events []WatchedFileEvent) {
	for _, ev := range events {
		switch ev.Change {
		case FileDeleted:
			e.compiler.Invalidate(ev.URI)
			e.symbolIndex.Remove(ev.URI)
		default:
			if e.store.IsOpen(ev.URI) {
				// An open document's Source Store text is ground
				// truth (spec §3 Document invariant); an external
				// on-disk change to it is superseded by whatever the
				// editor sends next, not applied here.
				continue
			}
			e.indexOnDiskFile(ctx, ev.URI)
		}
	}
}

func (e *Engine) indexOnDiskFile(ctx context.Context, uri types.URI) {
	// Delegate to the workspace scanner's path convention rather than
	// duplicating file:// stripping here.
	text, err := workspace.ReadURI(uri)
	if err != nil {
		logging.Warnf(logging.Boundary, "failed to read watched file %s: %v", uri, err)
		return
	}
	unit, err := e.compiler.EnsureCompiled(ctx, uri, text)
	if err != nil {
		logging.Warnf(logging.Boundary, "failed to index watched file %s: %v", uri, err)
		return
	}
	e.symbolIndex.Update(symbols.BuildFileIndex(unit))
}

// DidChangeConfiguration merges recognised keys from raw onto the
// Engine's current Settings (spec §6: "unknown keys are ignored").
func (e *Engine) DidChangeConfiguration(raw map[string]any) {
	e.mu.Lock()
	e.settings = config.ApplyRaw(e.settings, raw)
	level := e.settings.LogLevel
	e.mu.Unlock()
	logging.SetLevel(logging.ParseLevel(level))
}

// Shutdown cancels every in-flight operation (spec §4.10 global
// cancellation) and stops the workspace watcher.
func (e *Engine) Shutdown() {
	e.statusM.SetHealth(status.HealthShuttingDown, "shutting down")
	e.coordinator.Shutdown()
	_ = e.workspace.Close()
}

// Status returns the current Status Machine snapshot in external form.
func (e *Engine) Status() StatusNotification {
	return statusNotificationFromSnapshot(e.statusM.Current())
}

// ---- Workspace lifecycle (spec §4.8, driven by a host process at
// boot and on config/dependency-resolution changes) ----

// IndexWorkspace scans roots and compiles every discovered file,
// publishing Status Machine progress as it goes: health is starting
// with message "indexing" while per-file progress is reported, then
// ready with message "ready". No dependency-resolution ("resolving")
// step is run or reported.
func (e *Engine) IndexWorkspace(ctx context.Context, roots []string) error {
	e.statusM.SetHealth(status.HealthStarting, "indexing")
	e.statusM.BeginWork()
	err := e.workspace.ReindexWorkspace(ctx, roots, func(p workspace.Progress) {
		e.statusM.ReportProgress(status.Progress{Done: p.Done, Total: p.Total})
		e.notifier.Status(e.Status())
	})
	if err != nil {
		e.statusM.ReportError("workspace-indexer", err.Error())
		e.notifier.Status(e.Status())
		return err
	}
	e.statusM.SetHealth(status.HealthReady, "ready")
	e.notifier.Status(e.Status())
	return nil
}

// WatchWorkspace starts the filesystem watcher over roots; call after
// IndexWorkspace so the initial scan is not racing the watcher's own
// directory registration.
func (e *Engine) WatchWorkspace(ctx context.Context, roots []string) error {
	return e.workspace.WatchAndSync(ctx, roots)
}

// ---- Internal: compile + two-stage diagnostics publication ----

func (e *Engine) compileAndPublish(ctx context.Context, uri types.URI) {
	e.statusM.BeginWork()
	defer e.statusM.EndWork()

	if doc, ok := e.store.Get(uri); ok {
		if unit, err := e.compiler.EnsureCompiled(ctx, uri, doc.Text); err == nil {
			e.symbolIndex.Update(symbols.BuildFileIndex(unit))
		}
	}

	err := e.coordinator.PublishDiagnostics(ctx, uri, func(pub diagnostics.Publication) {
		e.notifier.PublishDiagnostics(uri, diagnosticsFromInternal(pub.Diagnostics))
	})
	if err != nil && !engerrors.IsCancellation(err) {
		logging.Warnf(logging.Boundary, "diagnostics publication failed for %s: %v", uri, err)
	}
}

// ensureReady compiles uri (attaching to any in-flight build) and
// returns its ParseUnit plus the FileIndex built from it, refreshing
// the workspace symbol index for uri along the way so a query run
// immediately after open/change observes current symbols (spec §4.10:
// "closes the race where a client queries immediately after opening").
func (e *Engine) ensureReady(ctx context.Context, uri types.URI) (*parser.ParseUnit, *symbols.FileIndex, error) {
	unit, err := e.coordinator.Read(ctx, uri, parser.DefaultPhase)
	if err != nil {
		return nil, nil, err
	}
	fi := symbols.BuildFileIndex(unit)
	e.symbolIndex.Update(fi)
	return unit, fi, nil
}

// ---- Query APIs (spec §6) ----

// Definition resolves the declaration a usage at pos refers to (spec
// §6 definition(URI, pos)). Unresolved references and compile failures
// both yield an empty slice rather than an error (spec §7: "query
// operations return empty rather than failing").
func (e *Engine) Definition(ctx context.Context, uri types.URI, pos Position) []Location {
	unit, fi, err := e.ensureReady(ctx, uri)
	if err != nil {
		return nil
	}
	declIdx, ok := fi.DeclarationAt(unit.Tree, toInternal(pos))
	if !ok {
		return nil
	}
	n := unit.Tree.Node(declIdx)
	return []Location{{URI: uri, Range: rangeFromInternal(n.SelectionRange)}}
}

// TypeDefinition is identical to Definition for in-file declarations;
// the engine does not compute distinct declared-vs-runtime types
// (spec Non-goals: full semantic type checking), so it resolves to the
// same binding Definition does.
func (e *Engine) TypeDefinition(ctx context.Context, uri types.URI, pos Position) []Location {
	return e.Definition(ctx, uri, pos)
}

// Implementation returns the same result as Definition: the engine
// does not model interface/trait conformance (spec Non-goals), so no
// other implementing declarations are searched for.
func (e *Engine) Implementation(ctx context.Context, uri types.URI, pos Position) []Location {
	return e.Definition(ctx, uri, pos)
}

// References finds every usage bound (by identity) to the declaration
// at pos, plus the declaration itself when includeDeclaration is true
// (spec §6 references(URI, pos, includeDeclaration)). References are
// only found within uri itself; other files, indexed or not, are not
// searched.
func (e *Engine) References(ctx context.Context, uri types.URI, pos Position, includeDeclaration bool) []Location {
	unit, fi, err := e.ensureReady(ctx, uri)
	if err != nil {
		return nil
	}
	target, ok := fi.DeclarationAt(unit.Tree, toInternal(pos))
	if !ok {
		// pos might be on the declaration itself rather than a usage.
		idx := unit.Tree.NodeAt(toInternal(pos))
		if idx == ast.NoNode {
			return nil
		}
		target = idx
	}

	var out []Location
	if includeDeclaration {
		n := unit.Tree.Node(target)
		out = append(out, Location{URI: uri, Range: rangeFromInternal(n.SelectionRange)})
	}
	for usage, decl := range fi.Usages {
		if decl != target {
			continue
		}
		n := unit.Tree.Node(usage)
		out = append(out, Location{URI: uri, Range: rangeFromInternal(n.Range)})
	}
	sort.Slice(out, func(i, j int) bool {
		return rangeLess(out[i].Range, out[j].Range)
	})
	return out
}

// Hover returns best-effort markup for the symbol at pos, or nil if
// nothing resolves there (spec §7: resolution_error "downgraded to
// unresolved hover" rather than an error).
func (e *Engine) Hover(ctx context.Context, uri types.URI, pos Position) *string {
	unit, fi, err := e.ensureReady(ctx, uri)
	if err != nil {
		return nil
	}
	idx := unit.Tree.NodeAt(toInternal(pos))
	if idx == ast.NoNode {
		return nil
	}
	n := unit.Tree.Node(idx)
	if declIdx, ok := fi.Usages[idx]; ok {
		n = unit.Tree.Node(declIdx)
	}
	if n.Name == "" {
		return nil
	}
	text := n.Kind.String() + " " + n.Name
	if n.TypeRef != "" {
		text = n.TypeRef + " " + text
	}
	return &text
}

// Completion returns declarations and workspace symbols whose name is
// prefixed by the identifier fragment ending at pos. Ranking/snippet
// shaping belongs to an editor-facing feature provider built on this
// engine (spec §1 Non-goals); this is the raw candidate list.
func (e *Engine) Completion(ctx context.Context, uri types.URI, pos Position) []CompletionItem {
	unit, fi, err := e.ensureReady(ctx, uri)
	if err != nil {
		return nil
	}
	prefix := identifierPrefixBefore(unit, pos)

	seen := make(map[string]bool)
	var out []CompletionItem
	add := func(name string, kind SymbolKind) {
		if name == "" || seen[name] {
			return
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			return
		}
		seen[name] = true
		out = append(out, CompletionItem{Label: name, Kind: kind})
	}
	for _, d := range fi.Declarations {
		add(d.Name, symbolKindFromAST(d.Kind))
	}
	for _, d := range e.symbolIndex.Find(prefix, 50) {
		add(d.Name, symbolKindFromAST(d.Kind))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func identifierPrefixBefore(unit *parser.ParseUnit, pos Position) string {
	idx := unit.Tree.NodeAt(toInternal(pos))
	if idx == ast.NoNode {
		return ""
	}
	return unit.Tree.Node(idx).Name
}

// DocumentSymbol builds the declaration tree for uri (spec §6
// document_symbol(URI)).
func (e *Engine) DocumentSymbol(ctx context.Context, uri types.URI) []DocumentSymbol {
	unit, _, err := e.ensureReady(ctx, uri)
	if err != nil {
		return nil
	}
	root := unit.Tree.Node(unit.Tree.Root())
	out := make([]DocumentSymbol, 0, len(root.Children))
	for _, c := range root.Children {
		if sym, ok := buildDocumentSymbol(unit.Tree, c); ok {
			out = append(out, sym)
		}
	}
	return out
}

func buildDocumentSymbol(tree *ast.Tree, idx ast.NodeIndex) (DocumentSymbol, bool) {
	n := tree.Node(idx)
	switch n.Kind {
	case ast.KindClass, ast.KindInterface, ast.KindEnum, ast.KindTrait,
		ast.KindMethod, ast.KindConstructor, ast.KindField:
	default:
		return DocumentSymbol{}, false
	}
	sym := DocumentSymbol{
		Name:           n.Name,
		Kind:           symbolKindFromAST(n.Kind),
		Range:          rangeFromInternal(n.Range),
		SelectionRange: rangeFromInternal(n.SelectionRange),
	}
	for _, c := range n.Children {
		if child, ok := buildDocumentSymbol(tree, c); ok {
			sym.Children = append(sym.Children, child)
		}
	}
	return sym, true
}

// WorkspaceSymbol ranks every indexed declaration against query (spec
// §6 workspace_symbol(query), spec §4.5 rule 3 ranking).
func (e *Engine) WorkspaceSymbol(query string) []WorkspaceSymbolResult {
	decls := e.symbolIndex.Find(query, 200)
	out := make([]WorkspaceSymbolResult, 0, len(decls))
	for _, d := range decls {
		out = append(out, WorkspaceSymbolResult{
			Name: d.Name,
			Kind: symbolKindFromAST(d.Kind),
			Location: Location{
				URI:   d.URI,
				Range: rangeFromInternal(d.SelectionRange),
			},
		})
	}
	return out
}

// Rename renames the declaration at pos (or a usage of it) to newName
// everywhere it appears within uri (spec §6 rename, S5). Edits are
// produced for uri only; usages in other files are not renamed.
func (e *Engine) Rename(ctx context.Context, uri types.URI, pos Position, newName string) WorkspaceEdit {
	unit, fi, err := e.ensureReady(ctx, uri)
	if err != nil {
		return WorkspaceEdit{}
	}
	target, ok := fi.DeclarationAt(unit.Tree, toInternal(pos))
	if !ok {
		idx := unit.Tree.NodeAt(toInternal(pos))
		if idx == ast.NoNode {
			return WorkspaceEdit{}
		}
		target = idx
	}

	edits := []TextEdit{{Range: rangeFromInternal(unit.Tree.Node(target).SelectionRange), NewText: newName}}
	for usage, decl := range fi.Usages {
		if decl != target {
			continue
		}
		edits = append(edits, TextEdit{Range: rangeFromInternal(unit.Tree.Node(usage).Range), NewText: newName})
	}
	sort.Slice(edits, func(i, j int) bool { return rangeLess(edits[i].Range, edits[j].Range) })
	return WorkspaceEdit{Changes: map[types.URI][]TextEdit{uri: edits}}
}

// CodeAction returns quick fixes available for diagnostics within
// rng. The core never ships lint-specific quick fixes itself (spec §1
// Non-goals: "editor-facing feature providers"); it always returns an
// empty, non-nil slice so callers can treat "no actions" and "not yet
// computed" the same way.
func (e *Engine) CodeAction(ctx context.Context, uri types.URI, rng Range, diags []Diagnostic) []CodeAction {
	return []CodeAction{}
}

// SemanticTokensFull encodes every declaration in uri using the LSP
// relative delta encoding (spec §6 semantic_tokens_full): each token
// contributes five ints (deltaLine, deltaStartChar, length, tokenType,
// tokenModifiers-bitset), tokens sorted by position as the encoding
// requires.
func (e *Engine) SemanticTokensFull(ctx context.Context, uri types.URI) []int {
	unit, _, err := e.ensureReady(ctx, uri)
	if err != nil {
		return nil
	}

	type tok struct {
		rng  Range
		kind SemanticTokenType
	}
	var toks []tok
	unit.Tree.VisitParentFirst(unit.Tree.Root(), func(idx ast.NodeIndex) {
		n := unit.Tree.Node(idx)
		tt, ok := semanticTokenType(n.Kind)
		if !ok || n.Name == "" {
			return
		}
		toks = append(toks, tok{rng: rangeFromInternal(n.SelectionRange), kind: tt})
	})
	sort.Slice(toks, func(i, j int) bool { return rangeLess(toks[i].rng, toks[j].rng) })

	out := make([]int, 0, len(toks)*5)
	prevLine, prevChar := 0, 0
	for _, t := range toks {
		length := t.rng.End.Character - t.rng.Start.Character
		if t.rng.Start.Line != t.rng.End.Line || length < 0 {
			length = 0
		}
		deltaLine := t.rng.Start.Line - prevLine
		deltaChar := t.rng.Start.Character
		if deltaLine == 0 {
			deltaChar = t.rng.Start.Character - prevChar
		}
		out = append(out, deltaLine, deltaChar, length, int(t.kind), 0)
		prevLine, prevChar = t.rng.Start.Line, t.rng.Start.Character
	}
	return out
}

func semanticTokenType(k ast.Kind) (SemanticTokenType, bool) {
	switch k {
	case ast.KindClass:
		return TokenClass, true
	case ast.KindInterface:
		return TokenInterface, true
	case ast.KindEnum, ast.KindTrait:
		return TokenEnum, true
	case ast.KindMethod, ast.KindConstructor:
		return TokenMethod, true
	case ast.KindParameter:
		return TokenParameter, true
	case ast.KindField:
		return TokenProperty, true
	case ast.KindLocalVarDecl:
		return TokenVariable, true
	case ast.KindImport:
		return TokenNamespace, true
	default:
		return 0, false
	}
}

func rangeLess(a, b Range) bool {
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Character < b.Start.Character
}
