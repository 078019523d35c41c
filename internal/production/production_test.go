package production

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagSetIsDistinct(t *testing.T) {
	root := NewNode("select_stmt", 0, "SELECT ").WithChildren(
		NewNode("comparison_op", 1, "a = b"),
		NewNode("comparison_op", 1, " AND c = d"),
	)

	tags := TagSet(root)

	require.Len(t, tags, 2)
	assert.Contains(t, tags, Tag("select_stmt"))
	assert.Contains(t, tags, Tag("comparison_op"))
}

func TestCountNodesAndMaxLevel(t *testing.T) {
	root := NewNode("select_stmt", 0, "SELECT ").WithChildren(
		NewNode("comparison_op", 1, "a = b").WithChildren(
			NewNode("column_ref", 2, "a"),
		),
	)

	nodes, maxLevel := Count(root)

	assert.Equal(t, 3, nodes)
	assert.Equal(t, 2, maxLevel)
}

func TestSumRetries(t *testing.T) {
	child := NewNode("comparison_op", 1, "a = b")
	child.BumpRetries()
	child.BumpRetries()
	root := NewNode("select_stmt", 0, "SELECT ").WithChildren(child)

	assert.Equal(t, 2, SumRetries(root))
}

func TestTextSerialization(t *testing.T) {
	root := NewNode("select_stmt", 0, "SELECT ").WithChildren(
		NewNode("column_ref", 1, "a"),
		NewNode("column_ref", 1, ", b"),
	)

	assert.Equal(t, "SELECT a, b", Text(root))
}

func TestPrettyTagIsIdentity(t *testing.T) {
	assert.Equal(t, "comparison_op", PrettyTag(Tag("comparison_op")))
}
