// Package statestore implements the two layers of versioned state
// (component D): the in-memory, persistent (copy-on-write) SessionMap
// used by driver-side keyed-aggregation experiments, and the on-disk
// versioned StateStore used by stateful operators in the execution
// loop.
package statestore

// entry is one slot in a delta: either a live value or a tombstone
// recording a removal.
type entry[V any] struct {
	value     V
	tombstone bool
}

// KV is one visible entry returned by Iterator.
type KV[K comparable, V any] struct {
	Key       K
	Value     V
	Tombstone bool
}

// SessionMap is a persistent, copy-on-write map from K to V. Copy
// creates a child that shares its parent by reference; mutating a
// child never affects the parent. A SessionMap is not internally
// synchronized: a child may be handed to another goroutine, but
// concurrent mutation of the same instance is the caller's job to
// avoid, exactly as spec'd for the driver-side helper this models.
type SessionMap[K comparable, V any] struct {
	parent *SessionMap[K, V]
	delta  map[K]entry[V]
}

// NewSessionMap returns an empty root map.
func NewSessionMap[K comparable, V any]() *SessionMap[K, V] {
	return &SessionMap[K, V]{delta: make(map[K]entry[V])}
}

// Put records an insertion or update in this map's delta.
func (m *SessionMap[K, V]) Put(key K, value V) {
	m.delta[key] = entry[V]{value: value}
}

// Get returns the value visible for key: first checking this map's
// own delta (including tombstones, which shadow the parent), then
// falling through to the parent chain.
func (m *SessionMap[K, V]) Get(key K) (V, bool) {
	if e, ok := m.delta[key]; ok {
		if e.tombstone {
			var zero V
			return zero, false
		}
		return e.value, true
	}
	if m.parent != nil {
		return m.parent.Get(key)
	}
	var zero V
	return zero, false
}

// Remove records a tombstone for key in this map's delta, shadowing
// any value the parent chain holds for it.
func (m *SessionMap[K, V]) Remove(key K) {
	m.delta[key] = entry[V]{tombstone: true}
}

// Copy returns a child map sharing this map's structure by reference.
// The child's own delta starts empty; mutating the child never
// mutates m.
func (m *SessionMap[K, V]) Copy() *SessionMap[K, V] {
	return &SessionMap[K, V]{parent: m, delta: make(map[K]entry[V])}
}

// DoCopy returns a plain child (equivalent to Copy) when consolidate
// is false. When consolidate is true, it instead returns a new root —
// a map with no parent, whose delta holds the full merged view
// flattened from the parent chain — so that a long parent chain never
// has to be walked again for a Get. The merged view returned by
// iterator(false) is unchanged by consolidation; only where that data
// lives changes.
func (m *SessionMap[K, V]) DoCopy(consolidate bool) *SessionMap[K, V] {
	if !consolidate {
		return m.Copy()
	}
	merged := make(map[K]entry[V])
	m.mergeInto(merged)
	// Drop tombstones: a consolidated root has no parent left to
	// shadow, so a tombstoned key simply has no entry.
	for k, e := range merged {
		if e.tombstone {
			delete(merged, k)
		}
	}
	return &SessionMap[K, V]{delta: merged}
}

// mergeInto walks the parent chain oldest-first, then overlays this
// map's own delta, so later writers win.
func (m *SessionMap[K, V]) mergeInto(acc map[K]entry[V]) {
	if m.parent != nil {
		m.parent.mergeInto(acc)
	}
	for k, e := range m.delta {
		acc[k] = e
	}
}

// Iterator returns the entries changed in this map's own delta
// (deltaOnly=true, tombstones included) or the merged, live view of
// the full parent chain (deltaOnly=false, tombstones suppressed).
func (m *SessionMap[K, V]) Iterator(deltaOnly bool) []KV[K, V] {
	if deltaOnly {
		out := make([]KV[K, V], 0, len(m.delta))
		for k, e := range m.delta {
			out = append(out, KV[K, V]{Key: k, Value: e.value, Tombstone: e.tombstone})
		}
		return out
	}

	merged := make(map[K]entry[V])
	m.mergeInto(merged)
	out := make([]KV[K, V], 0, len(merged))
	for k, e := range merged {
		if e.tombstone {
			continue
		}
		out = append(out, KV[K, V]{Key: k, Value: e.value})
	}
	return out
}
