package groovy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovy-lsp/engine/internal/ast"
)

func findByNameKind(tree *ast.Tree, kind ast.Kind, name string) ast.NodeIndex {
	var found ast.NodeIndex = ast.NoNode
	tree.VisitParentFirst(tree.Root(), func(idx ast.NodeIndex) {
		n := tree.Node(idx)
		if n.Kind == kind && n.Name == name {
			found = idx
		}
	})
	return found
}

func TestResolveBindsLocalVarUsageAfterDeclaration(t *testing.T) {
	res := Parse("def x = 1\nprintln x\n", PhaseSemanticAnalysis)
	require.True(t, res.IsSuccessful)

	decl := findByNameKind(res.Tree, ast.KindLocalVarDecl, "x")
	require.NotEqual(t, ast.NoNode, decl)

	var usage ast.NodeIndex = ast.NoNode
	res.Tree.VisitParentFirst(res.Tree.Root(), func(idx ast.NodeIndex) {
		n := res.Tree.Node(idx)
		if n.Kind == ast.KindIdentifierExpr && n.Name == "x" {
			usage = idx
		}
	})
	require.NotEqual(t, ast.NoNode, usage)
	assert.Equal(t, decl, res.Bindings[usage])
}

func TestResolveAllowsForwardReferenceToClassMember(t *testing.T) {
	src := `class C { void a() { b() } void b() {} }`
	res := Parse(src, PhaseSemanticAnalysis)
	require.True(t, res.IsSuccessful)

	bDecl := findByNameKind(res.Tree, ast.KindMethod, "b")
	require.NotEqual(t, ast.NoNode, bDecl)

	var call ast.NodeIndex = ast.NoNode
	res.Tree.VisitParentFirst(res.Tree.Root(), func(idx ast.NodeIndex) {
		n := res.Tree.Node(idx)
		if n.Kind == ast.KindMethodCallExpr && n.Name == "b" {
			call = idx
		}
	})
	require.NotEqual(t, ast.NoNode, call)
	assert.Equal(t, bDecl, res.Bindings[call])
}

func TestResolveParameterShadowsOuterScope(t *testing.T) {
	src := `class C { String m = "outer"; void g(String m) { println m } }`
	res := Parse(src, PhaseSemanticAnalysis)
	require.True(t, res.IsSuccessful)

	param := findByNameKind(res.Tree, ast.KindParameter, "m")
	require.NotEqual(t, ast.NoNode, param)

	var usage ast.NodeIndex = ast.NoNode
	res.Tree.VisitParentFirst(res.Tree.Root(), func(idx ast.NodeIndex) {
		n := res.Tree.Node(idx)
		if n.Kind == ast.KindIdentifierExpr && n.Name == "m" {
			usage = idx
		}
	})
	require.NotEqual(t, ast.NoNode, usage)
	assert.Equal(t, param, res.Bindings[usage])
}

func TestResolveLeavesUnknownIdentifierUnbound(t *testing.T) {
	res := Parse("println undeclaredThing\n", PhaseSemanticAnalysis)
	require.True(t, res.IsSuccessful)

	var usage ast.NodeIndex = ast.NoNode
	res.Tree.VisitParentFirst(res.Tree.Root(), func(idx ast.NodeIndex) {
		n := res.Tree.Node(idx)
		if n.Kind == ast.KindIdentifierExpr && n.Name == "undeclaredThing" {
			usage = idx
		}
	})
	require.NotEqual(t, ast.NoNode, usage)
	_, ok := res.Bindings[usage]
	assert.False(t, ok)
}

func TestResolveClosureParameterScopedToClosureBody(t *testing.T) {
	src := `class C { void g() { def c = { it2 -> println it2 } } }`
	res := Parse(src, PhaseSemanticAnalysis)
	require.True(t, res.IsSuccessful)

	param := findByNameKind(res.Tree, ast.KindParameter, "it2")
	require.NotEqual(t, ast.NoNode, param)

	var usage ast.NodeIndex = ast.NoNode
	res.Tree.VisitParentFirst(res.Tree.Root(), func(idx ast.NodeIndex) {
		n := res.Tree.Node(idx)
		if n.Kind == ast.KindIdentifierExpr && n.Name == "it2" {
			usage = idx
		}
	})
	require.NotEqual(t, ast.NoNode, usage)
	assert.Equal(t, param, res.Bindings[usage])
}
