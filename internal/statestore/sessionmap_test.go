package statestore

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedKV(kvs []KV[string, int]) []KV[string, int] {
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })
	return kvs
}

func TestSessionMapCopyIsolatesParent(t *testing.T) {
	root := NewSessionMap[string, int]()
	root.Put("a", 1)

	child := root.Copy()
	child.Put("a", 2)
	child.Put("b", 3)

	v, ok := root.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = child.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSessionMapRemoveShadowsParent(t *testing.T) {
	root := NewSessionMap[string, int]()
	root.Put("a", 1)

	child := root.Copy()
	child.Remove("a")

	_, ok := child.Get("a")
	assert.False(t, ok)

	_, ok = root.Get("a")
	assert.True(t, ok, "removing from a child must not affect the parent")
}

func TestSessionMapIteratorDeltaOnlyIncludesTombstones(t *testing.T) {
	root := NewSessionMap[string, int]()
	root.Put("a", 1)
	root.Put("b", 2)

	child := root.Copy()
	child.Remove("a")
	child.Put("c", 3)

	delta := sortedKV(child.Iterator(true))
	require.Len(t, delta, 2)
	assert.Equal(t, "a", delta[0].Key)
	assert.True(t, delta[0].Tombstone)
	assert.Equal(t, "c", delta[1].Key)
	assert.Equal(t, 3, delta[1].Value)
}

func TestSessionMapIteratorMergedViewSuppressesTombstones(t *testing.T) {
	root := NewSessionMap[string, int]()
	root.Put("a", 1)
	root.Put("b", 2)

	child := root.Copy()
	child.Remove("a")
	child.Put("c", 3)

	merged := sortedKV(child.Iterator(false))
	require.Len(t, merged, 2)
	assert.Equal(t, "b", merged[0].Key)
	assert.Equal(t, "c", merged[1].Key)
}

// TestSessionMapConsolidationPreservesView is the core's quantified
// property: child.doCopy(consolidate=true).iterator(false) equals
// child.iterator(false), for any sequence of puts/removes.
func TestSessionMapConsolidationPreservesView(t *testing.T) {
	root := NewSessionMap[string, int]()
	root.Put("a", 1)
	root.Put("b", 2)

	mid := root.Copy()
	mid.Put("a", 10)
	mid.Remove("b")
	mid.Put("c", 30)

	leaf := mid.Copy()
	leaf.Put("d", 40)
	leaf.Remove("a")

	before := sortedKV(leaf.Iterator(false))

	consolidated := leaf.DoCopy(true)
	after := sortedKV(consolidated.Iterator(false))

	assert.Equal(t, before, after)
	assert.Nil(t, consolidated.parent)
}

func TestSessionMapDoCopyWithoutConsolidateIsPlainChild(t *testing.T) {
	root := NewSessionMap[string, int]()
	root.Put("a", 1)

	child := root.DoCopy(false)
	child.Put("a", 2)

	v, _ := root.Get("a")
	assert.Equal(t, 1, v)
	v, _ = child.Get("a")
	assert.Equal(t, 2, v)
}
