// Package streamio holds the contracts the execution loop (component G)
// consumes: Source, Sink, and BlockStore. They live in their own
// package, which depends only on offset and wal (never on dataset or
// execution), so that dataset and execution can both depend on these
// shared shapes without creating an import cycle between them.
package streamio

import (
	"fmt"

	"github.com/ctrager/streamcore/internal/wal"
)

// BlockID uniquely identifies one received block within a run: the
// stream it arrived on, and an opaque identifier assigned by that
// stream's receiver.
type BlockID struct {
	StreamID int
	ID       string
}

func (b BlockID) String() string {
	return fmt.Sprintf("stream-%d:%s", b.StreamID, b.ID)
}

// StoragePolicy mirrors the handful of storage levels the core's block
// store needs to honor; it never interprets replication or placement
// beyond this.
type StoragePolicy int

const (
	MemoryOnly StoragePolicy = iota
	MemoryAndDisk
	DiskOnly
)

func (p StoragePolicy) String() string {
	switch p {
	case MemoryOnly:
		return "MEMORY_ONLY"
	case MemoryAndDisk:
		return "MEMORY_AND_DISK"
	case DiskOnly:
		return "DISK_ONLY"
	default:
		return "UNKNOWN"
	}
}

// Schema names the fields of a record; the core treats it opaquely and
// passes it through to adapters and the query engine.
type Schema struct {
	Fields []string
}

// RecordIterator yields records one at a time. Next returns false once
// exhausted. Close releases any underlying resource (e.g. a WAL file
// handle) and is safe to call more than once.
type RecordIterator interface {
	Next() (record any, ok bool)
	Close() error
}

// ResultSet is the materialized output of executing a plan over a
// batch's data; the query engine itself is out of scope, so this is
// the narrowest contract G and a Sink need to move data around.
type ResultSet interface {
	Iterator() (RecordIterator, error)
}

// sliceIterator adapts an in-memory slice to RecordIterator; used by
// pkg/sources/memory and by tests across this package and dataset.
type sliceIterator struct {
	records []any
	pos     int
}

// NewSliceIterator returns a RecordIterator over records, in order.
func NewSliceIterator(records []any) RecordIterator {
	return &sliceIterator{records: records}
}

func (s *sliceIterator) Next() (any, bool) {
	if s.pos >= len(s.records) {
		return nil, false
	}
	r := s.records[s.pos]
	s.pos++
	return r, true
}

func (s *sliceIterator) Close() error { return nil }

// SliceResultSet is a ResultSet backed by a fixed in-memory slice.
type SliceResultSet struct {
	Records []any
}

func (s SliceResultSet) Iterator() (RecordIterator, error) {
	return NewSliceIterator(s.Records), nil
}

// ReceivedBlockInfo is the durable record a Receiver Tracker appends to
// the WAL before a block becomes visible to any batch. It is immutable
// once created.
type ReceivedBlockInfo struct {
	StreamID     int
	BlockID      BlockID
	NumRecords   int64
	UserMetadata any
	WALSegment   *wal.FileSegment
}
