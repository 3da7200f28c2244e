package vm

import "sync"

// Ref is a mutable reference cell. Cells are the one mutable value in
// the machine, so they carry their own lock and stay safe to share
// between threads.
type Ref struct {
	mu sync.Mutex
	v  Value
}

// NewRef allocates a reference cell holding v on t's heap.
func NewRef(t *Thread, v Value) (Value, error) {
	guard := t.Root(v)
	defer guard.Release()
	return t.AllocUserdata(&Ref{v: v}, valueSize)
}

// Load returns the cell's current value.
func (r *Ref) Load() Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v
}

// Store replaces the cell's value.
func (r *Ref) Store(v Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.v = v
}

// Traverse keeps the held value reachable.
func (r *Ref) Traverse(visit func(*Object)) {
	r.mu.Lock()
	v := r.v
	r.mu.Unlock()
	v.Traverse(visit)
}

// AsRef unwraps a reference cell value.
func AsRef(v Value) (*Ref, bool) {
	if v.Tag != TagUserdata {
		return nil, false
	}
	box, ok := v.Obj.Data.(*UserdataBox)
	if !ok {
		return nil, false
	}
	r, ok := box.V.(*Ref)
	return r, ok
}
