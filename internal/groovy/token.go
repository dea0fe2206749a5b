package groovy

import "github.com/groovy-lsp/engine/internal/types"

// TokenKind enumerates lexical token classes for the supported Groovy
// subset (spec §4.3 phases begin at tokenisation).
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokKeyword
	TokIntLiteral
	TokFloatLiteral
	TokStringLiteral
	TokGStringLiteral // double-quoted / GString, interpolation not evaluated
	TokBoolLiteral
	TokNullLiteral
	TokLParen
	TokRParen
	TokLBrace
	TokRBrace
	TokLBracket
	TokRBracket
	TokSemicolon
	TokComma
	TokDot
	TokColon
	TokQuestion
	TokArrow // ->
	TokAssign
	TokEquals   // ==
	TokNotEquals
	TokLess
	TokLessEq
	TokGreater
	TokGreaterEq
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokAnd // &&
	TokOr  // ||
	TokNot
	TokAt // annotation sigil
	TokElvis // ?:
	TokSafeNav // ?.
	TokIllegal
)

var keywords = map[string]bool{
	"package": true, "import": true, "class": true, "interface": true,
	"trait": true, "enum": true, "def": true, "void": true, "return": true,
	"if": true, "else": true, "for": true, "while": true, "try": true,
	"catch": true, "finally": true, "new": true, "true": true, "false": true,
	"null": true, "public": true, "private": true, "protected": true,
	"static": true, "final": true, "extends": true, "implements": true,
	"this": true, "super": true, "throw": true, "throws": true,
	"abstract": true, "in": true, "instanceof": true, "break": true,
	"continue": true,
}

// Token is one lexical token with its source range.
type Token struct {
	Kind  TokenKind
	Text  string
	Range types.Range
}
