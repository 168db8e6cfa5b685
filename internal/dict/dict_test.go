package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcDictionarySize(t *testing.T) {
	assert.Equal(t, 24, CalcDictionarySize(0))
	assert.Equal(t, 8+16*4, CalcDictionarySize(3))
}

func TestBuild_InsertionOrderPreserved(t *testing.T) {
	nodes := Build([]string{"a", "ab", "b"})
	require.Len(t, nodes, 4)

	assert.Equal(t, uint16(0xFFFF), nodes[0].ID, "root sentinel")
	assert.Equal(t, "a", nodes[1].Name)
	assert.Equal(t, "ab", nodes[2].Name)
	assert.Equal(t, "b", nodes[3].Name)
}

func TestBuild_TreeIsTraversable(t *testing.T) {
	names := []string{"a", "ab", "b", "courseA", "courseB", "map_model", "vrcorn"}
	nodes := Build(names)
	for i, n := range names {
		idx := Lookup(nodes, n)
		require.Equal(t, i+1, idx, "lookup of %q must land on its own entry", n)
	}
	assert.Equal(t, -1, Lookup(nodes, "absent"))
}

func TestBuild_IDsEncodeDifferingBit(t *testing.T) {
	nodes := Build([]string{"a"})
	// Sole entry: id derives from its own last character.
	assert.Equal(t, uint16(0)<<3|6, nodes[1].ID, "'a' = 0x61, highest set bit 6")
}

func TestBuild_SingleAndEmpty(t *testing.T) {
	assert.Len(t, Build(nil), 1)

	nodes := Build([]string{"x"})
	require.Len(t, nodes, 2)
	assert.Equal(t, 1, Lookup(nodes, "x"))
}

func TestBuild_Deterministic(t *testing.T) {
	a := Build([]string{"model", "model_shadow", "texture"})
	b := Build([]string{"model", "model_shadow", "texture"})
	assert.Equal(t, a, b)
}
