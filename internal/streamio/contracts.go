package streamio

import (
	"context"

	"github.com/ctrager/streamcore/internal/offset"
)

// Batch is one unit of work produced by a Source: the offset the
// source had advanced to by the time the batch was assembled, and the
// data available up to that point. The Sink is handed exactly one
// Batch's data per commit.
type Batch struct {
	EndOffset offset.Offset
	Data      ResultSet
}

// Source is the contract the execution loop polls. A Source is
// responsible for its own replay semantics up to lastCommittedOffset:
// on restart, the loop passes back whatever offset the Sink last
// committed, and the Source must not re-emit anything at or before it.
type Source interface {
	// GetNextBatch returns the next Batch whose EndOffset is strictly
	// greater than lastCommittedOffset, or ok=false if nothing new has
	// arrived since. lastCommittedOffset is nil on a source with no
	// prior progress.
	GetNextBatch(ctx context.Context, lastCommittedOffset offset.Offset) (batch Batch, ok bool, err error)

	// Schema describes the records this source produces.
	Schema() Schema

	// String is a stable identity used as this source's key in a
	// CompositeOffset and in StreamProgress.
	String() string
}

// Sink is the contract the execution loop commits batches to. AddBatch
// must be transactional: on successful return, CurrentOffset equals
// endOffset and data is durable; on failure, neither has changed.
type Sink interface {
	// CurrentOffset returns the offset of the last successfully
	// committed batch, or ok=false if nothing has ever been committed.
	CurrentOffset() (o *offset.Composite, ok bool)

	AddBatch(ctx context.Context, endOffset *offset.Composite, data ResultSet) error
}

// BlockStore is the narrow slice of block-manager behavior the core
// depends on: fetch a block's data, publish a freshly rehydrated
// block under a storage policy, and list blocks matching a predicate
// for cleanup assertions. Replication and placement are never
// inspected.
type BlockStore interface {
	Get(id BlockID) (RecordIterator, bool, error)
	PutIterator(id BlockID, iter RecordIterator, policy StoragePolicy) error
	GetMatchingBlockIds(pred func(BlockID) bool) []BlockID
}
