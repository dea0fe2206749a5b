package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovy-lsp/engine/internal/ast"
	"github.com/groovy-lsp/engine/internal/classpath"
	"github.com/groovy-lsp/engine/internal/parser"
	"github.com/groovy-lsp/engine/internal/types"
)

func unitFor(t *testing.T, uri types.URI, src string) *parser.ParseUnit {
	t.Helper()
	unit := parser.Parse(uri, src, classpath.NoopResolver{}, parser.DefaultPhase)
	require.True(t, unit.IsSuccessful)
	return unit
}

func TestBuildFileIndexCapturesDeclarationsAndUsages(t *testing.T) {
	unit := unitFor(t, "file:///a.groovy", `class Greeter { String m = "h"; void g(){ println m } }`)
	fi := BuildFileIndex(unit)

	require.Len(t, fi.Declarations, 3)
	assert.Equal(t, "Greeter", fi.Declarations[0].Name)
	assert.NotEmpty(t, fi.Usages)
}

func TestDeclarationAtResolvesUsageToFieldDeclaration(t *testing.T) {
	src := `class Greeter { String m = "h"; void g(){ println m } }`
	unit := unitFor(t, "file:///a.groovy", src)
	fi := BuildFileIndex(unit)

	var usage ast.NodeIndex = ast.NoNode
	unit.Tree.VisitParentFirst(unit.Tree.Root(), func(idx ast.NodeIndex) {
		n := unit.Tree.Node(idx)
		if n.Kind == ast.KindIdentifierExpr && n.Name == "m" {
			usage = idx
		}
	})
	require.NotEqual(t, ast.NoNode, usage)

	usagePos := unit.Tree.Node(usage).Range.Start
	declIdx, ok := fi.DeclarationAt(unit.Tree, usagePos)
	require.True(t, ok)
	assert.Equal(t, ast.KindField, unit.Tree.Node(declIdx).Kind)
	assert.Equal(t, "m", unit.Tree.Node(declIdx).Name)
}

func TestWorkspaceIndexFindRanksExactBeforePrefixBeforeSubstring(t *testing.T) {
	w := NewWorkspaceIndex()
	w.Update(BuildFileIndex(unitFor(t, "file:///a.groovy", `class Greeter {}`)))
	w.Update(BuildFileIndex(unitFor(t, "file:///b.groovy", `class GreeterFactory {}`)))
	w.Update(BuildFileIndex(unitFor(t, "file:///c.groovy", `class TheGreeterThing {}`)))

	results := w.Find("Greeter", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "Greeter", results[0].Name)
}

func TestWorkspaceIndexFindPrefixMatch(t *testing.T) {
	w := NewWorkspaceIndex()
	w.Update(BuildFileIndex(unitFor(t, "file:///a.groovy", `class GreeterFactory {}`)))

	results := w.Find("Greet", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "GreeterFactory", results[0].Name)
}

func TestWorkspaceIndexFindFuzzyFallback(t *testing.T) {
	w := NewWorkspaceIndex()
	w.Update(BuildFileIndex(unitFor(t, "file:///a.groovy", `class Greeter {}`)))

	results := w.Find("Greetar", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "Greeter", results[0].Name)
}

func TestWorkspaceIndexRemoveDropsDeclarations(t *testing.T) {
	w := NewWorkspaceIndex()
	uri := types.URI("file:///a.groovy")
	w.Update(BuildFileIndex(unitFor(t, uri, `class Greeter {}`)))
	require.NotEmpty(t, w.Find("Greeter", 10))

	w.Remove(uri)
	assert.Empty(t, w.Find("Greeter", 10))
	_, ok := w.File(uri)
	assert.False(t, ok)
}

func TestWorkspaceIndexUpdateReplacesStaleDeclarations(t *testing.T) {
	w := NewWorkspaceIndex()
	uri := types.URI("file:///a.groovy")
	w.Update(BuildFileIndex(unitFor(t, uri, `class Old {}`)))
	w.Update(BuildFileIndex(unitFor(t, uri, `class New {}`)))

	assert.Empty(t, w.Find("Old", 10))
	results := w.Find("New", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "New", results[0].Name)
}

func TestBuildFileIndexCapturesImportDeclaration(t *testing.T) {
	unit := unitFor(t, "file:///a.groovy", "import groovy.transform.ToString\nclass Greeter {}")
	fi := BuildFileIndex(unit)

	require.Len(t, fi.Declarations, 2)
	var foundImport bool
	for _, d := range fi.Declarations {
		if d.Kind == ast.KindImport {
			foundImport = true
			assert.Equal(t, "groovy.transform.ToString", d.Name)
		}
	}
	assert.True(t, foundImport, "expected an import declaration symbol")
}

func TestWorkspaceIndexUpdateAssignsStableFileID(t *testing.T) {
	w := NewWorkspaceIndex()
	uri := types.URI("file:///a.groovy")

	first := w.Update(BuildFileIndex(unitFor(t, uri, `class Old {}`)))
	second := w.Update(BuildFileIndex(unitFor(t, uri, `class New {}`)))
	assert.Equal(t, first, second)

	other := w.Update(BuildFileIndex(unitFor(t, "file:///b.groovy", `class Other {}`)))
	assert.NotEqual(t, first, other)
}

func TestWorkspaceIndexFindRespectsLimit(t *testing.T) {
	w := NewWorkspaceIndex()
	w.Update(BuildFileIndex(unitFor(t, "file:///a.groovy", `class AaaOne {}`)))
	w.Update(BuildFileIndex(unitFor(t, "file:///b.groovy", `class AaaTwo {}`)))
	w.Update(BuildFileIndex(unitFor(t, "file:///c.groovy", `class AaaThree {}`)))

	results := w.Find("Aaa", 2)
	assert.Len(t, results, 2)
}
