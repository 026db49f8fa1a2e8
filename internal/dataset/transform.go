package dataset

import (
	"fmt"
	"strconv"

	"github.com/ctrager/streamcore/internal/statestore"
	"github.com/ctrager/streamcore/internal/streamio"
)

// StatefulFunc is applied to one partition's input iterator with a
// StateStore handle opened at (operatorID, partition, newVersion-1).
// It is responsible for calling CommitUpdates on store before
// returning; WithStateStores never commits on the function's behalf.
type StatefulFunc func(store *statestore.StateStore, iter streamio.RecordIterator) ([]any, error)

// WithStateStores runs fn once per partition of ds, each invocation
// seeing the partition's own (operatorID, partitionIndex, newVersion-1)
// StateStore handle, and returns whatever fn produced across all
// partitions as a single ResultSet.
func WithStateStores(ds *Dataset, checkpointDir, operatorID string, newVersion int64, fn StatefulFunc) (streamio.ResultSet, error) {
	var all []any

	for i, part := range ds.partitions {
		partitionID := strconv.Itoa(i)

		store, err := statestore.Open(checkpointDir, operatorID, partitionID, newVersion-1)
		if err != nil {
			return nil, fmt.Errorf("dataset: open state store %s/%s@%d: %w", operatorID, partitionID, newVersion-1, err)
		}

		iter, err := ds.compute(part)
		if err != nil {
			return nil, err
		}

		out, err := fn(store, iter)
		iter.Close()
		if err != nil {
			return nil, fmt.Errorf("dataset: stateful function on partition %s: %w", partitionID, err)
		}

		all = append(all, out...)
	}

	return streamio.SliceResultSet{Records: all}, nil
}
