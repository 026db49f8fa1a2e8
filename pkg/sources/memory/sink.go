package memory

import (
	"context"
	"sync"

	"github.com/ctrager/streamcore/internal/offset"
	"github.com/ctrager/streamcore/internal/streamio"
)

// Sink accumulates every committed record in memory and tracks the
// composite offset of the last successful AddBatch, so a Loop built
// against it resumes correctly after a restart.
type Sink struct {
	mu      sync.Mutex
	current *offset.Composite
	all     []any
}

// NewSink constructs an empty in-memory Sink.
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) CurrentOffset() (*offset.Composite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

func (s *Sink) AddBatch(_ context.Context, endOffset *offset.Composite, data streamio.ResultSet) error {
	iter, err := data.Iterator()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		s.all = append(s.all, v)
	}
	s.current = endOffset
	return nil
}

// Records returns a snapshot of every record committed so far.
func (s *Sink) Records() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.all...)
}
