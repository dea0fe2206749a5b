package groovy

import "github.com/groovy-lsp/engine/internal/ast"

// scope is one lexical scope: declared names visible within it, plus
// its enclosing scope (nil for the outermost/class-or-script scope).
type scope struct {
	names  map[string]ast.NodeIndex
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{names: make(map[string]ast.NodeIndex), parent: parent}
}

func (s *scope) declare(name string, idx ast.NodeIndex) {
	if name == "" {
		return
	}
	s.names[name] = idx
}

func (s *scope) lookup(name string) (ast.NodeIndex, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if idx, ok := cur.names[name]; ok {
			return idx, true
		}
	}
	return ast.NoNode, false
}

// resolveBindings walks tree once, building a lexical scope chain and
// recording, for every name-bearing reference, which declaration it
// resolves to by node identity (spec §4.5 rule 2: "by identity, not by
// name"). Declarations at class scope (fields, methods) are visible
// throughout the class body, including before their textual position,
// matching Groovy's member-visibility semantics; local variables and
// parameters are only visible after their declaration point within
// their enclosing block, which falls out naturally from declaring them
// as each statement is visited in source order.
func resolveBindings(tree *ast.Tree) map[ast.NodeIndex]ast.NodeIndex {
	bindings := make(map[ast.NodeIndex]ast.NodeIndex)
	root := newScope(nil)
	walkScoped(tree, tree.Root(), root, bindings)
	return bindings
}

func walkScoped(tree *ast.Tree, idx ast.NodeIndex, sc *scope, bindings map[ast.NodeIndex]ast.NodeIndex) {
	n := tree.Node(idx)

	switch n.Kind {
	case ast.KindClass, ast.KindInterface, ast.KindTrait, ast.KindEnum:
		classScope := newScope(sc)
		// Pre-declare all members so forward references resolve.
		for _, c := range n.Children {
			cn := tree.Node(c)
			switch cn.Kind {
			case ast.KindField, ast.KindMethod, ast.KindConstructor:
				classScope.declare(cn.Name, c)
			}
		}
		for _, c := range n.Children {
			walkScoped(tree, c, classScope, bindings)
		}
		return

	case ast.KindMethod, ast.KindConstructor:
		methodScope := newScope(sc)
		for _, c := range n.Children {
			cn := tree.Node(c)
			if cn.Kind == ast.KindParameter {
				methodScope.declare(cn.Name, c)
			}
		}
		for _, c := range n.Children {
			if tree.Node(c).Kind == ast.KindParameter {
				continue
			}
			walkScoped(tree, c, methodScope, bindings)
		}
		return

	case ast.KindBlock, ast.KindClosureExpr:
		blockScope := newScope(sc)
		if n.Kind == ast.KindClosureExpr {
			for _, c := range n.Children {
				if tree.Node(c).Kind == ast.KindParameter {
					blockScope.declare(tree.Node(c).Name, c)
				}
			}
		}
		for _, c := range n.Children {
			if n.Kind == ast.KindClosureExpr && tree.Node(c).Kind == ast.KindParameter {
				continue
			}
			walkScoped(tree, c, blockScope, bindings)
		}
		return

	case ast.KindLocalVarDecl:
		// Resolve any initializer expression in the current scope
		// before the local becomes visible to its own initializer.
		for _, c := range n.Children {
			walkScoped(tree, c, sc, bindings)
		}
		sc.declare(n.Name, idx)
		return

	case ast.KindIdentifierExpr:
		if decl, ok := sc.lookup(n.Name); ok {
			bindings[idx] = decl
		}
		return

	case ast.KindMethodCallExpr:
		if decl, ok := sc.lookup(n.Name); ok {
			bindings[idx] = decl
		}
		for _, c := range n.Children {
			walkScoped(tree, c, sc, bindings)
		}
		return

	case ast.KindPropertyAccessExpr:
		// Resolve the base expression in scope; the property name
		// itself needs type information we do not compute, so it is
		// left unresolved (spec §4.5 rule 2 allows usages to remain
		// unresolved rather than guessed by name).
		for _, c := range n.Children {
			walkScoped(tree, c, sc, bindings)
		}
		return
	}

	for _, c := range n.Children {
		walkScoped(tree, c, sc, bindings)
	}
}
