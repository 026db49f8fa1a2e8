// Package memory provides the one concrete Source, Sink, and BlockStore
// adapter the core ships: an in-memory implementation of the
// streamio contracts, used by the demo binary (streamd run) to drive
// the execution loop end-to-end without a real transport.
package memory

import (
	"context"
	"sync"

	"github.com/ctrager/streamcore/internal/offset"
	"github.com/ctrager/streamcore/internal/streamio"
)

// Source is an unbounded in-memory queue of records. Push appends new
// records; GetNextBatch drains everything queued since lastCommittedOffset
// into a single batch, or reports no new data if nothing has arrived.
type Source struct {
	name string

	mu      sync.Mutex
	records []any
}

// NewSource constructs an empty in-memory Source identified by name.
func NewSource(name string) *Source {
	return &Source{name: name}
}

// Push appends one record to the source's backlog.
func (s *Source) Push(record any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *Source) String() string { return s.name }

func (s *Source) Schema() streamio.Schema {
	return streamio.Schema{Fields: []string{"value"}}
}

func (s *Source) GetNextBatch(_ context.Context, last offset.Offset) (streamio.Batch, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastIdx := int64(0)
	if last != nil {
		lastIdx = int64(last.(offset.Long))
	}
	if lastIdx >= int64(len(s.records)) {
		return streamio.Batch{}, false, nil
	}

	pending := append([]any(nil), s.records[lastIdx:]...)
	newOffset := offset.Long(int64(len(s.records)))
	return streamio.Batch{
		EndOffset: newOffset,
		Data:      streamio.SliceResultSet{Records: pending},
	}, true, nil
}
