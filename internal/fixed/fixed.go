// Package fixed provides append-only containers whose previously
// returned references stay valid across later insertions. The checker
// and the VM hold long-lived pointers into environments that are still
// being populated; these containers make that safe.
//
// The discipline is "insert extends, never rewrites": entries are boxed
// individually so growth of the internal index never moves them, inserts
// are serialized by a mutex, and an entry is never mutated after
// insertion. Readers holding earlier references need no locking.
package fixed

import "sync"

// Map is an append-only map. Get returns a pointer that remains valid
// for the lifetime of the map regardless of further insertions.
type Map[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{entries: make(map[K]*V)}
}

// TryInsert inserts value under key and returns its stable slot. If the
// key already exists nothing changes and ok is false: entries are never
// rewritten.
func (m *Map[K, V]) TryInsert(key K, value V) (slot *V, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, present := m.entries[key]; present {
		return existing, false
	}
	boxed := new(V)
	*boxed = value
	m.entries[key] = boxed
	return boxed, true
}

// Get returns the stable slot for key, or nil.
func (m *Map[K, V]) Get(key K) *V {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key]
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Vec is an append-only vector. Push returns a pointer that remains
// valid across any number of later pushes: entries are individually
// boxed, only the index slice is ever reallocated.
type Vec[T any] struct {
	mu      sync.Mutex
	entries []*T
}

func NewVec[T any]() *Vec[T] {
	return &Vec[T]{}
}

// Push appends value and returns its index and stable slot.
func (v *Vec[T]) Push(value T) (int, *T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	boxed := new(T)
	*boxed = value
	v.entries = append(v.entries, boxed)
	return len(v.entries) - 1, boxed
}

// Get returns the stable slot at index i, or nil when out of range.
func (v *Vec[T]) Get(i int) *T {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= len(v.entries) {
		return nil
	}
	return v.entries[i]
}

// Len returns the number of entries.
func (v *Vec[T]) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// Find returns the index and slot of the first entry satisfying test,
// or (-1, nil).
func (v *Vec[T]) Find(test func(*T) bool) (int, *T) {
	v.mu.Lock()
	n := len(v.entries)
	entries := v.entries
	v.mu.Unlock()
	for i := 0; i < n; i++ {
		if test(entries[i]) {
			return i, entries[i]
		}
	}
	return -1, nil
}
