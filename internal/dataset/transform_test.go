package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrager/streamcore/internal/statestore"
	"github.com/ctrager/streamcore/internal/streamio"
)

// wordCount applies a StatefulFunc that folds every word in the
// partition's iterator into the partition's StateStore, committing the
// result and returning the updated counts. This is the spec's
// word-count-over-two-mini-batches scenario: a single long-running
// aggregate rebuilt from whatever state store version preceded it.
func wordCount(store *statestore.StateStore, iter streamio.RecordIterator) ([]any, error) {
	for {
		rec, ok := iter.Next()
		if !ok {
			break
		}
		word := rec.(string)

		count := int64(0)
		if raw, ok := store.Get([]byte(word)); ok {
			count = int64(raw[0])
		}
		count++
		store.Put([]byte(word), []byte{byte(count)})
	}

	if _, err := store.CommitUpdates(); err != nil {
		return nil, err
	}

	var out []any
	for _, kv := range store.GetRange(nil, nil) {
		out = append(out, kv)
	}
	return out, nil
}

func TestWithStateStoresWordCountAcrossTwoMiniBatches(t *testing.T) {
	checkpointDir := t.TempDir()
	store := newMemBlockStore()

	blockA := streamio.BlockID{StreamID: 0, ID: "batch1"}
	store.put(blockA, []any{"a", "b", "a"})

	ds1 := New([]Partition{{Block: blockA}}, store, nil, streamio.MemoryOnly)
	result1, err := WithStateStores(ds1, checkpointDir, "wordcount", 1, wordCount)
	require.NoError(t, err)

	counts1 := countsOf(t, result1)
	assert.Equal(t, int64(2), counts1["a"])
	assert.Equal(t, int64(1), counts1["b"])

	blockB := streamio.BlockID{StreamID: 0, ID: "batch2"}
	store.put(blockB, []any{"a", "c"})

	ds2 := New([]Partition{{Block: blockB}}, store, nil, streamio.MemoryOnly)
	result2, err := WithStateStores(ds2, checkpointDir, "wordcount", 2, wordCount)
	require.NoError(t, err)

	counts2 := countsOf(t, result2)
	assert.Equal(t, int64(3), counts2["a"])
	assert.Equal(t, int64(1), counts2["b"])
	assert.Equal(t, int64(1), counts2["c"])
}

func countsOf(t *testing.T, rs streamio.ResultSet) map[string]int64 {
	t.Helper()
	iter, err := rs.Iterator()
	require.NoError(t, err)

	counts := make(map[string]int64)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		kv := v.(statestore.KV[string, []byte])
		counts[kv.Key] = int64(kv.Value[0])
	}
	return counts
}

func TestWithStateStoresOpensEachPartitionAtPriorVersion(t *testing.T) {
	checkpointDir := t.TempDir()
	store := newMemBlockStore()

	block := streamio.BlockID{StreamID: 0, ID: "only"}
	store.put(block, []any{"x"})

	ds := New([]Partition{{Block: block}}, store, nil, streamio.MemoryOnly)
	_, err := WithStateStores(ds, checkpointDir, "op", 1, wordCount)
	require.NoError(t, err)

	// Partition 0's state store lives under <checkpointDir>/op/0 per
	// WithStateStores' (operatorID, strconv.Itoa(i)) addressing.
	storeDir := filepath.Join(checkpointDir, "op", "0")
	reopened, err := statestore.Open(checkpointDir, "op", "0", 1)
	require.NoError(t, err)
	raw, ok := reopened.Get([]byte("x"))
	require.True(t, ok)
	assert.Equal(t, int64(1), int64(raw[0]))
	assert.DirExists(t, storeDir)
}
