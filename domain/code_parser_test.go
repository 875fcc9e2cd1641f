package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	kind       string
	start, end int
	kids       []*node
}

func TestFoldBlocks_PreOrderExactSpans(t *testing.T) {
	src := []byte("IF a THEN IF b THEN x; END IF; END IF; y := 'z';")
	inner := &node{kind: "if", start: 10, end: 30}
	outer := &node{kind: "if", start: 0, end: 38, kids: []*node{inner}}
	assign := &node{kind: "assign", start: 39, end: 48}
	root := &node{kind: "root", kids: []*node{outer, assign}}

	rule := func(n *node) (BlockType, int, int, bool) {
		switch n.kind {
		case "if":
			return BlockCondition, n.start, n.end, true
		case "assign":
			return BlockAssignmentConstString, n.start, n.end, true
		}
		return "", 0, 0, false
	}

	blocks := FoldBlocks(root, func(n *node) []*node { return n.kids }, rule, src, "p.plsql")

	require.Len(t, blocks, 3)
	assert.Equal(t, "IF a THEN IF b THEN x; END IF; END IF;", blocks[0].Text)
	assert.Equal(t, "IF b THEN x; END IF;", blocks[1].Text)
	assert.Equal(t, "y := 'z';", blocks[2].Text)
	assert.Equal(t, BlockAssignmentConstString, blocks[2].Type)
	for _, b := range blocks {
		assert.Equal(t, "p.plsql", b.SourcePath)
		assert.False(t, b.IsHelper)
	}
}

func TestFoldBlocks_SkipsOutOfRangeSpans(t *testing.T) {
	src := []byte("short")
	root := &node{kind: "if", start: 2, end: 99}

	blocks := FoldBlocks(root, func(n *node) []*node { return n.kids },
		func(n *node) (BlockType, int, int, bool) { return BlockCondition, n.start, n.end, true },
		src, "p.plsql")

	assert.Empty(t, blocks)
}

func TestDedupeSymbols_KeepsFirstInOrder(t *testing.T) {
	a := FrameworkSymbol{DeclaringType: "x.Money", SymbolID: "Money#zero", Signature: "static Money zero(String)", ExampleSnippet: "first"}
	b := FrameworkSymbol{DeclaringType: "x.Money", SymbolID: "Money#zero", Signature: "static Money zero(Currency)"}
	dup := a
	dup.ExampleSnippet = "second"

	out := DedupeSymbols([]FrameworkSymbol{a, b, dup})

	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].ExampleSnippet)
	assert.Equal(t, b, out[1])
	assert.Equal(t, "Money#zero static Money zero(String) first", a.EmbeddingText())
}
