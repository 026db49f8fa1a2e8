// Package progress implements the streaming execution loop's progress
// tracker (component F): a mutable map from Source to Offset, updated
// monotonically under a single lock.
package progress

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ctrager/streamcore/internal/offset"
)

// ErrNotMonotone is returned by Update when newOffset does not strictly
// exceed the source's current offset.
var ErrNotMonotone = errors.New("progress: update is not monotone")

// Tracker holds one Offset per source identity (the string returned
// by streamio.Source.String()) under a single lock.
type Tracker struct {
	mu      sync.Mutex
	offsets map[string]offset.Offset
	order   []string // every source identity seen, in first-seen order
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{offsets: make(map[string]offset.Offset)}
}

// Update records newOffset for source, rejecting any update that is
// not strictly greater than the current offset (a fresh source with no
// prior offset always succeeds).
func (t *Tracker) Update(source string, newOffset offset.Offset) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.offsets[source]
	if ok {
		ord, err := newOffset.Compare(current)
		if err != nil {
			return fmt.Errorf("progress: compare offsets for %q: %w", source, err)
		}
		if ord != offset.Greater {
			return fmt.Errorf("%w: source %q current=%s new=%s", ErrNotMonotone, source, current, newOffset)
		}
	} else {
		t.order = append(t.order, source)
	}

	t.offsets[source] = newOffset
	return nil
}

// Get returns the current offset for source, if any.
func (t *Tracker) Get(source string) (offset.Offset, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.offsets[source]
	return o, ok
}

// ToOffset returns a CompositeOffset over every source this tracker has
// ever seen, sorted by source identity so two trackers fed the same
// updates in different orders produce an equal composite.
func (t *Tracker) ToOffset() *offset.Composite {
	t.mu.Lock()
	defer t.mu.Unlock()

	sources := make([]string, len(t.order))
	copy(sources, t.order)
	sort.Strings(sources)

	offsets := make([]offset.Offset, len(sources))
	for i, src := range sources {
		offsets[i] = t.offsets[src]
	}
	return offset.NewComposite(sources, offsets)
}

// Seed installs source→offset pairs directly, without the monotone
// check, for initializing a Tracker from a Sink's last committed
// CompositeOffset on construction.
func (t *Tracker) Seed(composite *offset.Composite) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, src := range composite.Sources() {
		o, ok := composite.Get(src)
		if !ok || o == nil {
			continue
		}
		if _, seen := t.offsets[src]; !seen {
			t.order = append(t.order, src)
		}
		t.offsets[src] = o
	}
}

// Equal reports whether t and other track the same offsets, ignoring
// insertion order.
func (t *Tracker) Equal(other *Tracker) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	if len(t.offsets) != len(other.offsets) {
		return false
	}
	for src, o := range t.offsets {
		oo, ok := other.offsets[src]
		if !ok {
			return false
		}
		ord, err := o.Compare(oo)
		if err != nil || ord != offset.Equal {
			return false
		}
	}
	return true
}
