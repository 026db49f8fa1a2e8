package memory

import (
	"sync"

	"github.com/ctrager/streamcore/internal/streamio"
)

type storedBlock struct {
	records []any
	policy  streamio.StoragePolicy
}

// BlockStore is an in-memory streamio.BlockStore. It never evicts on
// its own; callers assert on GetMatchingBlockIds in tests the way a
// Kinesis-style adapter would assert that cleanup actually ran.
type BlockStore struct {
	mu     sync.Mutex
	blocks map[streamio.BlockID]storedBlock
}

// NewBlockStore constructs an empty in-memory BlockStore.
func NewBlockStore() *BlockStore {
	return &BlockStore{blocks: make(map[streamio.BlockID]storedBlock)}
}

func (b *BlockStore) Get(id streamio.BlockID) (streamio.RecordIterator, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	block, ok := b.blocks[id]
	if !ok {
		return nil, false, nil
	}
	return streamio.NewSliceIterator(append([]any(nil), block.records...)), true, nil
}

func (b *BlockStore) PutIterator(id streamio.BlockID, iter streamio.RecordIterator, policy streamio.StoragePolicy) error {
	var records []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		records = append(records, v)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks[id] = storedBlock{records: records, policy: policy}
	return nil
}

func (b *BlockStore) GetMatchingBlockIds(pred func(streamio.BlockID) bool) []streamio.BlockID {
	b.mu.Lock()
	defer b.mu.Unlock()

	var matches []streamio.BlockID
	for id := range b.blocks {
		if pred(id) {
			matches = append(matches, id)
		}
	}
	return matches
}

// Remove deletes a block. It exists for test cleanup scenarios; it is
// not part of the streamio.BlockStore contract.
func (b *BlockStore) Remove(id streamio.BlockID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blocks, id)
}
