package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovy-lsp/engine/internal/types"
)

func rng(l1, c1, l2, c2 int) types.Range {
	return types.Range{Start: types.Pos{Line: l1, Column: c1}, End: types.Pos{Line: l2, Column: c2}}
}

func buildSample() *Tree {
	b := NewBuilder()
	root := b.Add(NoNode, Node{Kind: KindModule, Range: rng(1, 1, 1, 40)})
	class := b.Add(root, Node{Kind: KindClass, Name: "Greeter", Range: rng(1, 1, 1, 40)})
	b.Add(class, Node{Kind: KindField, Name: "m", Range: rng(1, 10, 1, 20)})
	method := b.Add(class, Node{Kind: KindMethod, Name: "g", Range: rng(1, 21, 1, 39)})
	b.Add(method, Node{Kind: KindIdentifierExpr, Name: "m", Range: rng(1, 30, 1, 31)})
	return b.Build()
}

func TestNodeAtReturnsInnermostContainingNode(t *testing.T) {
	tree := buildSample()
	idx := tree.NodeAt(types.Pos{Line: 1, Column: 30})
	require.NotEqual(t, NoNode, idx)
	assert.Equal(t, KindIdentifierExpr, tree.Node(idx).Kind)
}

func TestNodeAtOutsideRangeReturnsNoNode(t *testing.T) {
	tree := buildSample()
	idx := tree.NodeAt(types.Pos{Line: 99, Column: 1})
	assert.Equal(t, NoNode, idx)
}

func TestVisitParentFirstOrdersParentBeforeChildren(t *testing.T) {
	tree := buildSample()
	var kinds []Kind
	tree.VisitParentFirst(tree.Root(), func(idx NodeIndex) {
		kinds = append(kinds, tree.Node(idx).Kind)
	})
	require.True(t, len(kinds) >= 2)
	assert.Equal(t, KindModule, kinds[0])
	assert.Equal(t, KindClass, kinds[1])
}

func TestVisitChildFirstOrdersChildrenBeforeParent(t *testing.T) {
	tree := buildSample()
	var kinds []Kind
	tree.VisitChildFirst(tree.Root(), func(idx NodeIndex) {
		kinds = append(kinds, tree.Node(idx).Kind)
	})
	assert.Equal(t, KindModule, kinds[len(kinds)-1])
}

func TestChildRangesContainedWithinParent(t *testing.T) {
	tree := buildSample()
	tree.VisitParentFirst(tree.Root(), func(idx NodeIndex) {
		n := tree.Node(idx)
		for _, c := range n.Children {
			assert.True(t, n.Range.Contains(tree.Node(c).Range), "child %v not contained in parent %v", tree.Node(c).Range, n.Range)
		}
	})
}

func TestBuilderAtAllowsRetroactiveRangeUpdate(t *testing.T) {
	b := NewBuilder()
	idx := b.Add(NoNode, Node{Kind: KindModule})
	b.At(idx).Range = rng(1, 1, 2, 1)
	tree := b.Build()
	assert.Equal(t, rng(1, 1, 2, 1), tree.Node(idx).Range)
}
