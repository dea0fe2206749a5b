// Package groovy is the grammar engine behind the Parser Facade (spec
// §4.3, C3): a hand-written lexer and recursive-descent parser for a
// practical Groovy subset. The spec explicitly scopes the real Groovy
// grammar/compiler's implementation details out of this engine (spec
// §1); no Groovy tree-sitter grammar exists in the example pack either
// (see DESIGN.md dropped-dependency ledger), so this package is the
// engine's own, deliberately partial, grammar.
package groovy

import (
	"fmt"

	"github.com/groovy-lsp/engine/internal/ast"
	"github.com/groovy-lsp/engine/internal/types"
)

// Phase is a parse checkpoint; phases form a strict prefix (spec §4.3).
type Phase int

const (
	PhaseTokenize Phase = iota
	PhaseSyntaxTree
	PhaseASTConversion
	PhaseSemanticAnalysis // default
	PhaseCanonicalization
)

// Import is one resolved-or-not import clause.
type Import struct {
	Path  string // dotted path, e.g. "groovy.transform.ToString" or "java.util.*"
	Alias string // "as" alias, empty if none
	Node  ast.NodeIndex
}

// Result is everything the grammar engine produces from one parse.
type Result struct {
	Tree          *ast.Tree
	Diagnostics   []types.Diagnostic
	Declarations  []ast.NodeIndex
	Imports       []Import
	Bindings      map[ast.NodeIndex]ast.NodeIndex // usage node -> declaration node, semantic phase only
	IsSuccessful  bool
	PhaseReached  Phase
}

// Parse runs the grammar engine over src up to the requested phase.
// Phases form a strict prefix: requesting PhaseSemanticAnalysis always
// first produces a full AST (PhaseASTConversion work), since the
// engine is single-pass and cannot skip structural parsing. A
// syntactically broken input still yields a best-effort partial tree
// plus error diagnostics (IsSuccessful=false), per spec §4.3.
func Parse(src string, phase Phase) *Result {
	p := newParser(src)
	root := p.parseModule()
	tree := p.b.Build()
	_ = root

	res := &Result{
		Tree:         tree,
		Diagnostics:  p.diags,
		Declarations: p.decls,
		Imports:      p.imports,
		IsSuccessful: !p.hadError,
		PhaseReached: PhaseASTConversion,
	}
	if phase < PhaseASTConversion {
		res.PhaseReached = phase
		if phase < PhaseSyntaxTree {
			res.PhaseReached = PhaseTokenize
		}
		return res
	}

	if phase >= PhaseSemanticAnalysis {
		bindings, ok := tryResolveBindings(tree)
		if ok {
			res.Bindings = bindings
			res.PhaseReached = PhaseSemanticAnalysis
			if phase >= PhaseCanonicalization {
				res.PhaseReached = PhaseCanonicalization
			}
		} else if looksLikeScript(tree) {
			// Retry at the earlier phase only for script-shaped input
			// (spec §9 Open Question, decided in DESIGN.md): keep the
			// AST and declarations, drop only the binding step, and
			// explain the degradation.
			res.PhaseReached = PhaseASTConversion
			res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
				Range:    tree.Node(tree.Root()).Range,
				Severity: types.SeverityInfo,
				Message:  "semantic analysis degraded: retried at AST_CONVERSION phase for script input",
				Source:   "groovy-parser",
				Code:     "phase-retry",
			})
		}
		// Non-script input that fails semantic resolution simply does
		// not reach SemanticAnalysis; no retry, no note (spec: retry
		// is permitted only for script-shaped input).
	}
	return res
}

// looksLikeScript reports whether the module has no top-level
// class/interface/trait/enum declaration anywhere among its children,
// per spec §4.3's retry precondition.
func looksLikeScript(tree *ast.Tree) bool {
	root := tree.Node(tree.Root())
	for _, c := range root.Children {
		switch tree.Node(c).Kind {
		case ast.KindClass, ast.KindInterface, ast.KindTrait, ast.KindEnum:
			return false
		}
	}
	return true
}

// tryResolveBindings performs scope-based name resolution, recovering
// from any internal fault rather than propagating a panic to the
// caller — a malformed partial AST from error recovery is expected
// input here, not a programming error.
func tryResolveBindings(tree *ast.Tree) (bindings map[ast.NodeIndex]ast.NodeIndex, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			bindings, ok = nil, false
		}
	}()
	bindings = resolveBindings(tree)
	return bindings, true
}

type parser struct {
	lex      *Lexer
	tok      Token
	prevEnd  types.Pos
	diags    []types.Diagnostic
	decls    []ast.NodeIndex
	imports  []Import
	b        *ast.Builder
	hadError bool
}

func newParser(src string) *parser {
	p := &parser{lex: NewLexer(src), b: ast.NewBuilder()}
	p.next()
	return p
}

func (p *parser) next() {
	p.prevEnd = p.tok.Range.End
	p.tok = p.lex.Next()
}

func (p *parser) at(k TokenKind) bool { return p.tok.Kind == k }

func (p *parser) atKeyword(kw string) bool {
	return p.tok.Kind == TokKeyword && p.tok.Text == kw
}

func (p *parser) errorf(rng types.Range, format string, args ...any) {
	p.hadError = true
	p.diags = append(p.diags, types.Diagnostic{
		Range:    rng,
		Severity: types.SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Source:   "groovy-parser",
	})
}

// expect consumes a token of kind k, recording an error and leaving
// the cursor in place otherwise (error recovery proceeds at statement
// boundaries, not here).
func (p *parser) expect(k TokenKind, what string) Token {
	if p.tok.Kind != k {
		p.errorf(p.tok.Range, "expected %s, found %q", what, p.tok.Text)
		return p.tok
	}
	t := p.tok
	p.next()
	return t
}

// syncToStatementBoundary skips tokens until a likely recovery point,
// so one malformed statement does not poison the rest of the file.
func (p *parser) syncToStatementBoundary() {
	for !p.at(TokEOF) && !p.at(TokSemicolon) && !p.at(TokRBrace) {
		p.next()
	}
	if p.at(TokSemicolon) {
		p.next()
	}
}

// parseModule parses the top-level compilation unit.
func (p *parser) parseModule() ast.NodeIndex {
	start := p.tok.Range.Start
	root := p.b.Add(ast.NoNode, ast.Node{Kind: ast.KindModule})

	if p.atKeyword("package") {
		p.parsePackage(root)
	}
	for p.atKeyword("import") {
		p.parseImport(root)
	}
	for !p.at(TokEOF) {
		p.parseTopLevel(root)
	}

	end := p.prevEnd
	if end.Line == 0 {
		end = start
	}
	p.b.At(root).Range = types.Range{Start: start, End: end}
	return root
}

func (p *parser) parsePackage(parent ast.NodeIndex) {
	start := p.tok.Range.Start
	p.next() // 'package'
	name := p.parseDottedName()
	end := p.prevEnd
	p.consumeOptionalSemi()
	p.b.Add(parent, ast.Node{Kind: ast.KindPackage, Name: name, Range: types.Range{Start: start, End: end}})
}

func (p *parser) parseImport(parent ast.NodeIndex) {
	start := p.tok.Range.Start
	p.next() // 'import'
	isStatic := false
	if p.at(TokKeyword) && p.tok.Text == "static" {
		isStatic = true
		p.next()
	}
	_ = isStatic
	name := p.parseDottedNameWithStar()
	alias := ""
	if p.at(TokIdent) && p.tok.Text == "as" {
		p.next()
		alias = p.tok.Text
		p.next()
	}
	end := p.prevEnd
	p.consumeOptionalSemi()
	rng := types.Range{Start: start, End: end}
	idx := p.b.Add(parent, ast.Node{Kind: ast.KindImport, Name: name, Range: rng, SelectionRange: rng})
	p.imports = append(p.imports, Import{Path: name, Alias: alias, Node: idx})
	// Imports produce synthetic symbols too (spec §4.5 rule 3), so
	// hover/definition on an imported name can bridge to it via C7.
	p.decls = append(p.decls, idx)
}

func (p *parser) parseDottedName() string {
	name := p.tok.Text
	if p.at(TokIdent) || p.at(TokKeyword) {
		p.next()
	}
	for p.at(TokDot) {
		p.next()
		name += "." + p.tok.Text
		if p.at(TokIdent) || p.at(TokKeyword) {
			p.next()
		}
	}
	return name
}

func (p *parser) parseDottedNameWithStar() string {
	name := p.tok.Text
	p.next()
	for p.at(TokDot) {
		p.next()
		if p.at(TokStar) {
			name += ".*"
			p.next()
			break
		}
		name += "." + p.tok.Text
		p.next()
	}
	return name
}

func (p *parser) consumeOptionalSemi() {
	if p.at(TokSemicolon) {
		p.next()
	}
}

// parseModifiersAndAnnotations consumes leading @Annotation and
// visibility/static/final/abstract modifiers common to declarations.
func (p *parser) parseModifiersAndAnnotations(parent ast.NodeIndex) []string {
	var mods []string
	for {
		if p.at(TokAt) {
			start := p.tok.Range.Start
			p.next()
			name := p.parseDottedName()
			if p.at(TokLParen) {
				p.skipBalanced(TokLParen, TokRParen)
			}
			p.b.Add(parent, ast.Node{Kind: ast.KindAnnotation, Name: name, Range: types.Range{Start: start, End: p.prevEnd}})
			continue
		}
		if p.at(TokKeyword) {
			switch p.tok.Text {
			case "public", "private", "protected", "static", "final", "abstract":
				mods = append(mods, p.tok.Text)
				p.next()
				continue
			}
		}
		break
	}
	return mods
}

// skipBalanced consumes tokens from open to the matching close,
// assuming the cursor is on open.
func (p *parser) skipBalanced(open, close TokenKind) {
	depth := 0
	for {
		if p.at(open) {
			depth++
		} else if p.at(close) {
			depth--
			if depth == 0 {
				p.next()
				return
			}
		} else if p.at(TokEOF) {
			return
		}
		p.next()
	}
}

func (p *parser) parseTopLevel(parent ast.NodeIndex) {
	annStart := p.tok.Range.Start
	mods := p.parseModifiersAndAnnotations(parent)
	switch {
	case p.atKeyword("class"), p.atKeyword("interface"), p.atKeyword("trait"), p.atKeyword("enum"):
		p.parseTypeDecl(parent, mods, annStart)
	case p.at(TokEOF):
		return
	default:
		// Script-shaped top-level statement.
		p.parseStatement(parent)
	}
}

func kindForTypeKeyword(kw string) ast.Kind {
	switch kw {
	case "class":
		return ast.KindClass
	case "interface":
		return ast.KindInterface
	case "trait":
		return ast.KindTrait
	case "enum":
		return ast.KindEnum
	default:
		return ast.KindClass
	}
}

func (p *parser) parseTypeDecl(parent ast.NodeIndex, mods []string, start types.Pos) {
	kind := kindForTypeKeyword(p.tok.Text)
	p.next() // class/interface/trait/enum keyword

	nameStart := p.tok.Range.Start
	name := p.tok.Text
	nameRange := types.Range{Start: nameStart, End: p.tok.Range.End}
	if p.at(TokIdent) {
		p.next()
	} else {
		p.errorf(p.tok.Range, "expected type name")
	}

	if p.atKeyword("extends") {
		p.next()
		p.parseDottedName()
		for p.at(TokComma) {
			p.next()
			p.parseDottedName()
		}
	}
	if p.atKeyword("implements") {
		p.next()
		p.parseDottedName()
		for p.at(TokComma) {
			p.next()
			p.parseDottedName()
		}
	}

	idx := p.b.Add(parent, ast.Node{
		Kind: kind, Name: name, Modifiers: mods,
		SelectionRange: nameRange,
	})
	p.decls = append(p.decls, idx)

	if p.at(TokLBrace) {
		p.next()
		for !p.at(TokRBrace) && !p.at(TokEOF) {
			p.parseMember(idx)
		}
		if p.at(TokRBrace) {
			p.next()
		} else {
			p.errorf(p.tok.Range, "expected '}' to close %s %s", p.tok.Text, name)
		}
	} else {
		p.errorf(p.tok.Range, "expected '{' to open body of %s %s", kind, name)
	}

	p.b.At(idx).Range = types.Range{Start: start, End: p.prevEnd}
}

// parseMember parses one class/interface/trait/enum body member:
// a field, method, or constructor.
func (p *parser) parseMember(parent ast.NodeIndex) {
	start := p.tok.Range.Start
	mods := p.parseModifiersAndAnnotations(parent)

	if p.at(TokRBrace) || p.at(TokEOF) {
		return
	}

	// def-declared member or typed member: typeOrDef name (...) | typeOrDef name = expr
	isDef := false
	typeRef := ""
	if p.atKeyword("def") {
		isDef = true
		p.next()
	} else if p.atKeyword("void") {
		typeRef = "void"
		p.next()
	} else if p.at(TokIdent) {
		// Could be a type name (field/method return type) or the
		// constructor name matching the enclosing class — both are
		// resolved the same way: consume it as a tentative type/name.
		typeRef = p.tok.Text
		p.next()
		for p.at(TokDot) {
			p.next()
			typeRef += "." + p.tok.Text
			p.next()
		}
		if p.at(TokLBracket) { // array type suffix
			p.next()
			p.expect(TokRBracket, "]")
			typeRef += "[]"
		}
	}

	if !p.at(TokIdent) {
		// Constructor: ClassName(...) { ... } — typeRef already holds
		// the name consumed above; treat it as the member name.
	}

	nameText := ""
	nameRange := p.tok.Range
	if p.at(TokIdent) {
		nameText = p.tok.Text
		nameRange = p.tok.Range
		p.next()
	} else if typeRef != "" {
		nameText = typeRef
		typeRef = ""
	} else {
		p.errorf(p.tok.Range, "expected member name")
		p.syncToStatementBoundary()
		return
	}

	if p.at(TokLParen) {
		p.parseMethodOrConstructor(parent, mods, isDef, typeRef, nameText, nameRange, start)
		return
	}

	// Field: optional initializer, optional semicolon.
	idx := p.b.Add(parent, ast.Node{
		Kind: ast.KindField, Name: nameText, Modifiers: mods,
		TypeRef: typeRef, SelectionRange: nameRange,
	})
	p.decls = append(p.decls, idx)
	if p.at(TokAssign) {
		p.next()
		p.parseExpression(idx)
	}
	p.consumeOptionalSemi()

	p.b.At(idx).Range = types.Range{Start: start, End: p.prevEnd}
}

func (p *parser) parseMethodOrConstructor(parent ast.NodeIndex, mods []string, isDef bool, typeRef, name string, nameRange types.Range, start types.Pos) {
	kind := ast.KindMethod
	if !isDef && typeRef == "" {
		kind = ast.KindConstructor
	}
	idx := p.b.Add(parent, ast.Node{
		Kind: kind, Name: name, Modifiers: mods, TypeRef: typeRef,
		SelectionRange: nameRange,
	})
	p.decls = append(p.decls, idx)

	p.expect(TokLParen, "(")
	for !p.at(TokRParen) && !p.at(TokEOF) {
		p.parseParameter(idx)
		if p.at(TokComma) {
			p.next()
		}
	}
	p.expect(TokRParen, ")")

	if p.atKeyword("throws") {
		p.next()
		p.parseDottedName()
		for p.at(TokComma) {
			p.next()
			p.parseDottedName()
		}
	}

	if p.at(TokLBrace) {
		p.parseBlock(idx)
	} else {
		p.consumeOptionalSemi() // abstract/interface method declaration
	}

	p.b.At(idx).Range = types.Range{Start: start, End: p.prevEnd}
}

func (p *parser) parseParameter(parent ast.NodeIndex) {
	start := p.tok.Range.Start
	typeRef := ""
	if p.atKeyword("def") {
		p.next()
	} else if p.at(TokIdent) {
		// Lookahead: "Type name" vs just "name". If two identifiers in
		// a row (ignoring dots), the first is a type.
		lexState := p.lex.State()
		tok, prevEnd := p.tok, p.prevEnd
		typeRef = p.parseDottedName()
		if !p.at(TokIdent) {
			// It was just the parameter name after all.
			p.lex.Restore(lexState)
			p.tok, p.prevEnd = tok, prevEnd
			typeRef = ""
		}
	}
	name := p.tok.Text
	nameRange := p.tok.Range
	if p.at(TokIdent) {
		p.next()
	}
	idx := p.b.Add(parent, ast.Node{
		Kind: ast.KindParameter, Name: name, TypeRef: typeRef,
		SelectionRange: nameRange, Range: types.Range{Start: start, End: p.prevEnd},
	})
	p.decls = append(p.decls, idx)
	if p.at(TokAssign) { // default value
		p.next()
		p.parseExpression(idx)
	}
}

func (p *parser) parseBlock(parent ast.NodeIndex) ast.NodeIndex {
	start := p.tok.Range.Start
	idx := p.b.Add(parent, ast.Node{Kind: ast.KindBlock})
	p.expect(TokLBrace, "{")
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		p.parseStatement(idx)
	}
	if p.at(TokRBrace) {
		p.next()
	} else {
		p.errorf(p.tok.Range, "expected '}' to close block")
	}
	p.b.At(idx).Range = types.Range{Start: start, End: p.prevEnd}
	return idx
}

func (p *parser) parseStatement(parent ast.NodeIndex) {
	start := p.tok.Range.Start
	switch {
	case p.at(TokLBrace):
		p.parseBlock(parent)
		return
	case p.atKeyword("if"):
		p.parseIf(parent, start)
		return
	case p.atKeyword("for"):
		p.parseFor(parent, start)
		return
	case p.atKeyword("while"):
		p.parseWhile(parent, start)
		return
	case p.atKeyword("try"):
		p.parseTry(parent, start)
		return
	case p.atKeyword("return"):
		p.next()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindReturnStmt})
		if !p.at(TokSemicolon) && !p.at(TokRBrace) && !p.at(TokEOF) {
			p.parseExpression(idx)
		}
		p.consumeOptionalSemi()
		p.setRange(idx, start)
		return
	case p.atKeyword("break"), p.atKeyword("continue"):
		p.next()
		p.consumeOptionalSemi()
		return
	case p.atKeyword("def"):
		p.parseLocalVarDecl(parent, start)
		return
	case p.at(TokIdent):
		// Disambiguate "Type name = expr" local decl from an
		// expression statement via a speculative lookahead.
		if p.looksLikeTypedLocalDecl() {
			p.parseLocalVarDecl(parent, start)
			return
		}
		fallthrough
	default:
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindExprStmt})
		p.parseCommandOrExpr(idx)
		p.consumeOptionalSemi()
		p.setRange(idx, start)
	}
}

// parseCommandOrExpr parses a Groovy "command expression" — a bare
// method name followed directly by arguments with no parentheses
// (e.g. "println m", "println 'bar'") — falling back to a normal
// expression when the identifier is not followed by the start of
// another expression.
func (p *parser) parseCommandOrExpr(parent ast.NodeIndex) ast.NodeIndex {
	if p.at(TokIdent) && p.startsCommandArgs() {
		start := p.tok.Range.Start
		name := p.tok.Text
		nameRange := p.tok.Range
		p.next()
		call := p.b.Add(parent, ast.Node{Kind: ast.KindMethodCallExpr, Name: name, SelectionRange: nameRange})
		p.parseExpression(call)
		for p.at(TokComma) {
			p.next()
			p.parseExpression(call)
		}
		p.setRange(call, start)
		return call
	}
	return p.parseExpression(parent)
}

// startsCommandArgs peeks past the current identifier to see whether
// it is immediately followed by the start of another expression
// (rather than an operator, '.', '(', or a statement terminator),
// which marks it as a command-expression method name.
func (p *parser) startsCommandArgs() bool {
	lexState := p.lex.State()
	tok, prevEnd := p.tok, p.prevEnd
	defer func() { p.lex.Restore(lexState); p.tok, p.prevEnd = tok, prevEnd }()

	p.next() // consume the identifier
	switch p.tok.Kind {
	case TokIdent, TokIntLiteral, TokFloatLiteral, TokStringLiteral, TokGStringLiteral, TokBoolLiteral, TokNullLiteral:
		return true
	case TokKeyword:
		return p.tok.Text == "new" || p.tok.Text == "this" || p.tok.Text == "super"
	default:
		return false
	}
}

func (p *parser) setRange(idx ast.NodeIndex, start types.Pos) {
	p.b.At(idx).Range = types.Range{Start: start, End: p.prevEnd}
}

// looksLikeTypedLocalDecl peeks whether the current identifier is a
// type name followed by another identifier and then '=' or ';',
// e.g. "String m = ...". A name pair followed by anything else (such
// as "println m") is left to parseCommandOrExpr.
func (p *parser) looksLikeTypedLocalDecl() bool {
	lexState := p.lex.State()
	tok, prevEnd := p.tok, p.prevEnd
	defer func() { p.lex.Restore(lexState); p.tok, p.prevEnd = tok, prevEnd }()

	p.parseDottedName()
	if p.at(TokLBracket) {
		p.next()
		if p.at(TokRBracket) {
			p.next()
		}
	}
	if !p.at(TokIdent) {
		return false
	}
	p.next()
	return p.at(TokAssign) || p.at(TokSemicolon)
}

func (p *parser) parseLocalVarDecl(parent ast.NodeIndex, start types.Pos) {
	typeRef := ""
	if p.atKeyword("def") {
		p.next()
	} else {
		typeRef = p.parseDottedName()
		if p.at(TokLBracket) {
			p.next()
			p.expect(TokRBracket, "]")
			typeRef += "[]"
		}
	}
	name := p.tok.Text
	nameRange := p.tok.Range
	if p.at(TokIdent) {
		p.next()
	} else {
		p.errorf(p.tok.Range, "expected variable name")
	}
	idx := p.b.Add(parent, ast.Node{
		Kind: ast.KindLocalVarDecl, Name: name, TypeRef: typeRef,
		SelectionRange: nameRange,
	})
	p.decls = append(p.decls, idx)
	if p.at(TokAssign) {
		p.next()
		p.parseExpression(idx)
	}
	p.consumeOptionalSemi()
	p.setRange(idx, start)
}

func (p *parser) parseIf(parent ast.NodeIndex, start types.Pos) {
	p.next() // if
	idx := p.b.Add(parent, ast.Node{Kind: ast.KindIfStmt})
	p.expect(TokLParen, "(")
	p.parseExpression(idx)
	p.expect(TokRParen, ")")
	p.parseStatement(idx)
	if p.atKeyword("else") {
		p.next()
		p.parseStatement(idx)
	}
	p.setRange(idx, start)
}

func (p *parser) parseFor(parent ast.NodeIndex, start types.Pos) {
	p.next() // for
	idx := p.b.Add(parent, ast.Node{Kind: ast.KindForStmt})
	p.expect(TokLParen, "(")
	for !p.at(TokRParen) && !p.at(TokEOF) {
		p.next()
	}
	p.expect(TokRParen, ")")
	p.parseStatement(idx)
	p.setRange(idx, start)
}

func (p *parser) parseWhile(parent ast.NodeIndex, start types.Pos) {
	p.next() // while
	idx := p.b.Add(parent, ast.Node{Kind: ast.KindWhileStmt})
	p.expect(TokLParen, "(")
	p.parseExpression(idx)
	p.expect(TokRParen, ")")
	p.parseStatement(idx)
	p.setRange(idx, start)
}

func (p *parser) parseTry(parent ast.NodeIndex, start types.Pos) {
	p.next() // try
	idx := p.b.Add(parent, ast.Node{Kind: ast.KindTryStmt})
	p.parseBlock(idx)
	for p.atKeyword("catch") {
		p.next()
		if p.at(TokLParen) {
			p.skipBalanced(TokLParen, TokRParen)
		}
		p.parseBlock(idx)
	}
	if p.atKeyword("finally") {
		p.next()
		p.parseBlock(idx)
	}
	p.setRange(idx, start)
}

// --- Expressions ---
// Precedence, low to high: assignment, elvis/ternary, or, and,
// equality, relational, additive, multiplicative, unary, postfix/call.

func (p *parser) parseExpression(parent ast.NodeIndex) ast.NodeIndex {
	return p.parseAssignment(parent)
}

func (p *parser) parseAssignment(parent ast.NodeIndex) ast.NodeIndex {
	start := p.tok.Range.Start
	lhs := p.parseOr(parent)
	if p.at(TokAssign) {
		p.next()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindAssignmentExpr})
		p.reparent(lhs, idx)
		p.parseAssignment(idx)
		p.setRange(idx, start)
		return idx
	}
	return lhs
}

// reparent moves an already-built subtree to be a child of newParent,
// used when a binary/assignment expression discovers its left operand
// after the operand was already added under the statement parent.
func (p *parser) reparent(child ast.NodeIndex, newParent ast.NodeIndex) {
	oldParent := p.b.At(child).Parent
	if oldParent != ast.NoNode {
		siblings := p.b.At(oldParent).Children
		for i, c := range siblings {
			if c == child {
				p.b.At(oldParent).Children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	p.b.At(child).Parent = newParent
	p.b.At(newParent).Children = append(p.b.At(newParent).Children, child)
}

func (p *parser) parseOr(parent ast.NodeIndex) ast.NodeIndex {
	start := p.tok.Range.Start
	left := p.parseAnd(parent)
	for p.at(TokOr) || p.at(TokElvis) {
		p.next()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindBinaryExpr})
		p.reparent(left, idx)
		left = idx
		p.parseAnd(idx)
		p.setRange(idx, start)
	}
	return left
}

func (p *parser) parseAnd(parent ast.NodeIndex) ast.NodeIndex {
	start := p.tok.Range.Start
	left := p.parseEquality(parent)
	for p.at(TokAnd) {
		p.next()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindBinaryExpr})
		p.reparent(left, idx)
		left = idx
		p.parseEquality(idx)
		p.setRange(idx, start)
	}
	return left
}

func (p *parser) parseEquality(parent ast.NodeIndex) ast.NodeIndex {
	start := p.tok.Range.Start
	left := p.parseRelational(parent)
	for p.at(TokEquals) || p.at(TokNotEquals) {
		p.next()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindBinaryExpr})
		p.reparent(left, idx)
		left = idx
		p.parseRelational(idx)
		p.setRange(idx, start)
	}
	return left
}

func (p *parser) parseRelational(parent ast.NodeIndex) ast.NodeIndex {
	start := p.tok.Range.Start
	left := p.parseAdditive(parent)
	for p.at(TokLess) || p.at(TokLessEq) || p.at(TokGreater) || p.at(TokGreaterEq) {
		p.next()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindBinaryExpr})
		p.reparent(left, idx)
		left = idx
		p.parseAdditive(idx)
		p.setRange(idx, start)
	}
	return left
}

func (p *parser) parseAdditive(parent ast.NodeIndex) ast.NodeIndex {
	start := p.tok.Range.Start
	left := p.parseMultiplicative(parent)
	for p.at(TokPlus) || p.at(TokMinus) {
		p.next()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindBinaryExpr})
		p.reparent(left, idx)
		left = idx
		p.parseMultiplicative(idx)
		p.setRange(idx, start)
	}
	return left
}

func (p *parser) parseMultiplicative(parent ast.NodeIndex) ast.NodeIndex {
	start := p.tok.Range.Start
	left := p.parseUnary(parent)
	for p.at(TokStar) || p.at(TokSlash) || p.at(TokPercent) {
		p.next()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindBinaryExpr})
		p.reparent(left, idx)
		left = idx
		p.parseUnary(idx)
		p.setRange(idx, start)
	}
	return left
}

func (p *parser) parseUnary(parent ast.NodeIndex) ast.NodeIndex {
	if p.at(TokNot) || p.at(TokMinus) || p.at(TokPlus) {
		start := p.tok.Range.Start
		p.next()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindUnknown})
		p.parseUnary(idx)
		p.setRange(idx, start)
		return idx
	}
	return p.parsePostfix(parent)
}

func (p *parser) parsePostfix(parent ast.NodeIndex) ast.NodeIndex {
	expr := p.parsePrimary(parent)
	for {
		switch {
		case p.at(TokDot), p.at(TokSafeNav):
			start := p.b.At(expr).Range.Start
			p.next()
			name := p.tok.Text
			nameRange := p.tok.Range
			if p.at(TokIdent) || p.at(TokKeyword) {
				p.next()
			}
			idx := p.b.Add(parent, ast.Node{Kind: ast.KindPropertyAccessExpr, Name: name, SelectionRange: nameRange})
			p.reparent(expr, idx)
			expr = idx
			if p.at(TokLParen) {
				// method call: obj.name(args)
				call := p.b.Add(parent, ast.Node{Kind: ast.KindMethodCallExpr, Name: name, SelectionRange: nameRange})
				p.reparent(expr, call)
				p.parseArgs(call)
				expr = call
			}
			p.setRange(expr, start)
		case p.at(TokLParen) && p.b.At(expr).Kind == ast.KindIdentifierExpr:
			// bare call: name(args)
			start := p.b.At(expr).Range.Start
			name := p.b.At(expr).Name
			call := p.b.Add(parent, ast.Node{Kind: ast.KindMethodCallExpr, Name: name, SelectionRange: p.b.At(expr).Range})
			p.reparent(expr, call)
			p.parseArgs(call)
			expr = call
			p.setRange(expr, start)
		default:
			return expr
		}
	}
}

func (p *parser) parseArgs(parent ast.NodeIndex) {
	p.expect(TokLParen, "(")
	for !p.at(TokRParen) && !p.at(TokEOF) {
		p.parseExpression(parent)
		if p.at(TokComma) {
			p.next()
		}
	}
	p.expect(TokRParen, ")")
}

func (p *parser) parsePrimary(parent ast.NodeIndex) ast.NodeIndex {
	start := p.tok.Range.Start
	switch {
	case p.atKeyword("new"):
		p.next()
		typeName := p.parseDottedName()
		idx := p.b.Add(parent, ast.Node{Kind: ast.KindNewExpr, Name: typeName, TypeRef: typeName})
		if p.at(TokLParen) {
			p.parseArgs(idx)
		}
		p.setRange(idx, start)
		return idx
	case p.at(TokIntLiteral), p.at(TokFloatLiteral), p.at(TokStringLiteral),
		p.at(TokGStringLiteral), p.at(TokBoolLiteral), p.at(TokNullLiteral):
		text := p.tok.Text
		rng := p.tok.Range
		p.next()
		return p.b.Add(parent, ast.Node{Kind: ast.KindLiteralExpr, Name: text, Range: rng})
	case p.atKeyword("this"), p.atKeyword("super"):
		text := p.tok.Text
		rng := p.tok.Range
		p.next()
		return p.b.Add(parent, ast.Node{Kind: ast.KindIdentifierExpr, Name: text, Range: rng, SelectionRange: rng})
	case p.at(TokIdent):
		text := p.tok.Text
		rng := p.tok.Range
		p.next()
		if p.at(TokArrow) || (p.at(TokLBrace)) {
			// Trailing closure shorthand is not supported; treat as
			// identifier and let statement-level recovery proceed.
		}
		return p.b.Add(parent, ast.Node{Kind: ast.KindIdentifierExpr, Name: text, Range: rng, SelectionRange: rng})
	case p.at(TokLParen):
		p.next()
		inner := p.parseExpression(parent)
		p.expect(TokRParen, ")")
		return inner
	case p.at(TokLBrace):
		return p.parseClosure(parent, start)
	default:
		p.errorf(p.tok.Range, "unexpected token %q in expression", p.tok.Text)
		tok := p.tok
		if !p.at(TokEOF) {
			p.next()
		}
		return p.b.Add(parent, ast.Node{Kind: ast.KindUnknown, Range: tok.Range})
	}
}

// parseClosure parses a minimal `{ params -> body }` / `{ body }`
// closure shape, common for println-style DSL calls and collection
// iteration callbacks.
func (p *parser) parseClosure(parent ast.NodeIndex, start types.Pos) ast.NodeIndex {
	idx := p.b.Add(parent, ast.Node{Kind: ast.KindClosureExpr})
	p.expect(TokLBrace, "{")
	// Optional "params ->" header: scan ahead for an arrow before a
	// statement boundary; if absent, treat everything as statements.
	if p.hasArrowBeforeBrace() {
		for !p.at(TokArrow) && !p.at(TokEOF) {
			if p.at(TokIdent) {
				p.b.Add(idx, ast.Node{Kind: ast.KindParameter, Name: p.tok.Text, SelectionRange: p.tok.Range})
				p.next()
			} else {
				p.next()
			}
			if p.at(TokComma) {
				p.next()
			}
		}
		if p.at(TokArrow) {
			p.next()
		}
	}
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		p.parseStatement(idx)
	}
	if p.at(TokRBrace) {
		p.next()
	} else {
		p.errorf(p.tok.Range, "expected '}' to close closure")
	}
	p.setRange(idx, start)
	return idx
}

func (p *parser) hasArrowBeforeBrace() bool {
	lexState := p.lex.State()
	tok, prevEnd := p.tok, p.prevEnd
	defer func() { p.lex.Restore(lexState); p.tok, p.prevEnd = tok, prevEnd }()
	depth := 0
	for !p.at(TokEOF) {
		if p.at(TokLBrace) {
			depth++
		}
		if p.at(TokRBrace) {
			if depth == 0 {
				return false
			}
			depth--
		}
		if p.at(TokArrow) && depth == 0 {
			return true
		}
		if p.at(TokSemicolon) && depth == 0 {
			return false
		}
		p.next()
	}
	return false
}
