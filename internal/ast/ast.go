// Package ast is the AST Model (spec §4.4, C4): a typed node tree with
// parent links, source ranges, and kind discriminators. Nodes live in a
// flat arena owned by the ParseUnit and addressed by index rather than
// pointer, so parent/child links never form Go-level ownership cycles
// (spec §9 Design Note: "Cyclic parent links in the AST").
package ast

import "github.com/groovy-lsp/engine/internal/types"

// Kind discriminates node shapes per spec §3 AstNode.
type Kind uint8

const (
	KindModule Kind = iota
	KindPackage
	KindImport
	KindClass
	KindInterface
	KindEnum
	KindTrait
	KindAnnotation
	KindMethod
	KindConstructor
	KindField
	KindParameter
	KindBlock
	KindLocalVarDecl
	KindIfStmt
	KindForStmt
	KindWhileStmt
	KindTryStmt
	KindReturnStmt
	KindExprStmt
	KindIdentifierExpr
	KindMethodCallExpr
	KindPropertyAccessExpr
	KindNewExpr
	KindLiteralExpr
	KindBinaryExpr
	KindAssignmentExpr
	KindClosureExpr
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindPackage:
		return "package"
	case KindImport:
		return "import"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindTrait:
		return "trait"
	case KindAnnotation:
		return "annotation"
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	case KindField:
		return "field"
	case KindParameter:
		return "parameter"
	case KindBlock:
		return "block"
	case KindLocalVarDecl:
		return "local_var_decl"
	case KindIfStmt:
		return "if"
	case KindForStmt:
		return "for"
	case KindWhileStmt:
		return "while"
	case KindTryStmt:
		return "try"
	case KindReturnStmt:
		return "return"
	case KindExprStmt:
		return "expr_stmt"
	case KindIdentifierExpr:
		return "identifier"
	case KindMethodCallExpr:
		return "method_call"
	case KindPropertyAccessExpr:
		return "property_access"
	case KindNewExpr:
		return "new"
	case KindLiteralExpr:
		return "literal"
	case KindBinaryExpr:
		return "binary"
	case KindAssignmentExpr:
		return "assignment"
	case KindClosureExpr:
		return "closure"
	default:
		return "unknown"
	}
}

// NodeIndex addresses a node within a Tree's arena. Index 0 is always
// the module root, so the zero value is a valid node; an unset/absent
// link is represented by the negative value NoNode.
type NodeIndex int32

// NoNode marks the absence of a parent/child link.
const NoNode NodeIndex = -1

// Node is one arena-allocated AST node.
type Node struct {
	Kind     Kind
	Range    types.Range
	Parent   NodeIndex
	Children []NodeIndex

	// Name is the declared or referenced identifier, when applicable
	// (class/method/field/parameter names, identifier expressions,
	// import paths). Empty for nodes with no single name.
	Name string

	// TypeRef is the best-effort, unresolved-if-external type text
	// attached to a declaration or expression (spec §3 Symbol:
	// "type-reference text (best-effort)").
	TypeRef string

	// Modifiers holds declaration modifiers (public, static, final, ...).
	Modifiers []string

	// SelectionRange narrows Range to the identifier token for
	// declarations, matching spec §3 Symbol.SelectionRange. Zero value
	// for nodes with no narrower selection than their full range.
	SelectionRange types.Range
}

// Tree is one parse's arena of nodes, index 0 is always the module
// root. Tree is immutable once returned by the parser facade.
type Tree struct {
	Nodes []Node
}

// Root returns the module root node index, always 0 for a non-empty
// Tree.
func (t *Tree) Root() NodeIndex { return 0 }

// Node returns the node at idx. Callers must only pass indices obtained
// from this Tree (NoNode or out-of-range idx panics, which is a parser
// bug, not a runtime input error).
func (t *Tree) Node(idx NodeIndex) *Node {
	return &t.Nodes[idx]
}

// NodeAt returns the innermost node whose range contains pos (spec
// §4.4: half-open end), or NoNode if pos falls outside the module
// range entirely.
func (t *Tree) NodeAt(pos types.Pos) NodeIndex {
	best := NoNode
	t.walkPreOrder(t.Root(), func(idx NodeIndex) bool {
		n := t.Node(idx)
		if !n.Range.ContainsPos(pos) {
			return false // skip this subtree
		}
		best = idx
		return true // descend looking for a tighter match
	})
	return best
}

// VisitParentFirst calls fn on each node in parent-before-children
// (pre-order) order, starting at root.
func (t *Tree) VisitParentFirst(root NodeIndex, fn func(NodeIndex)) {
	t.walkPreOrder(root, func(idx NodeIndex) bool {
		fn(idx)
		return true
	})
}

// VisitChildFirst calls fn on each node in children-before-parent
// (post-order) order, starting at root.
func (t *Tree) VisitChildFirst(root NodeIndex, fn func(NodeIndex)) {
	if root == NoNode {
		return
	}
	for _, c := range t.Node(root).Children {
		t.VisitChildFirst(c, fn)
	}
	fn(root)
}

// walkPreOrder descends from root, calling enter on every node;
// enter returns false to prune that subtree.
func (t *Tree) walkPreOrder(root NodeIndex, enter func(NodeIndex) bool) {
	if root == NoNode {
		return
	}
	if !enter(root) {
		return
	}
	for _, c := range t.Node(root).Children {
		t.walkPreOrder(c, enter)
	}
}

// Builder assembles a Tree node-by-node during parsing, tracking the
// current parent implicitly via caller-supplied parent indices so the
// parser never constructs pointer cycles.
type Builder struct {
	nodes []Node
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Add appends a node and wires it into parent's children list (unless
// parent is NoNode, reserved for the root). Returns the new node's
// index.
func (b *Builder) Add(parent NodeIndex, n Node) NodeIndex {
	idx := NodeIndex(len(b.nodes))
	n.Parent = parent
	b.nodes = append(b.nodes, n)
	if parent != NoNode {
		b.nodes[parent].Children = append(b.nodes[parent].Children, idx)
	}
	return idx
}

// Build finalizes the arena into an immutable Tree.
func (b *Builder) Build() *Tree {
	return &Tree{Nodes: b.nodes}
}

// At returns a mutable pointer to the node at idx, for parsers that
// need to fill in a node's range or children after adding it (e.g.
// once its full extent is known at the end of a production).
func (b *Builder) At(idx NodeIndex) *Node {
	return &b.nodes[idx]
}
