package vm

// Traverseable is the capability every heap-resident type implements:
// report every outgoing heap reference, so the collector's reachability
// walk never under-counts.
type Traverseable interface {
	Traverse(visit func(*Object))
}

// Object is the header of one heap allocation. Objects never move;
// the collector only unlinks the unreachable ones.
type Object struct {
	Data Traverseable

	owner  *GC
	marked bool
	size   uint64
}

// Size returns the accounted size of the allocation in bytes.
func (o *Object) Size() uint64 { return o.size }

// GC is a tracing collector owning one heap. Every thread carries its
// own, and the machine keeps one more for global bindings. Collection
// happens only inside Alloc, when the owner is at a safe point and has
// handed its roots over; the trace stops at objects of another heap, so
// a thread collecting never touches state it does not own.
type GC struct {
	objects   []*Object
	allocated uint64
	threshold uint64
	limit     uint64

	// Explicitly registered roots, for references living outside the
	// stack and globals (typically held across an extern call).
	roots []*Object
}

// NewGC creates a collector with a soft collection threshold and a hard
// memory ceiling in bytes.
func NewGC(threshold, limit uint64) *GC {
	if threshold == 0 || threshold > limit {
		threshold = limit
	}
	return &GC{threshold: threshold, limit: limit}
}

// Allocated returns the accounted live byte total.
func (gc *GC) Allocated() uint64 { return gc.allocated }

// Live returns the number of live heap objects.
func (gc *GC) Live() int { return len(gc.objects) }

// Alloc allocates data as a heap object of the given accounted size.
// If the allocation would cross the collection threshold, a full
// trace-and-reclaim pass runs against roots first; if even a full
// collection cannot bring the total under the configured ceiling the
// allocation fails with OutOfMemory rather than silently truncating.
func (gc *GC) Alloc(data Traverseable, size uint64, roots Traverseable) (*Object, error) {
	if gc.allocated+size > gc.threshold {
		gc.Collect(roots)
		for gc.allocated+size > gc.threshold && gc.threshold < gc.limit {
			gc.threshold *= 2
			if gc.threshold > gc.limit {
				gc.threshold = gc.limit
			}
		}
		if gc.allocated+size > gc.limit {
			return nil, &OutOfMemoryError{Limit: gc.limit, Needed: size}
		}
	}
	obj := &Object{Data: data, owner: gc, size: size}
	gc.objects = append(gc.objects, obj)
	gc.allocated += size
	return obj, nil
}

// Collect marks everything reachable from the registered roots plus the
// supplied extra roots and frees the rest. Contents of surviving objects
// are untouched: the heap never compacts or moves.
func (gc *GC) Collect(roots Traverseable) {
	for _, r := range gc.roots {
		gc.mark(r)
	}
	if roots != nil {
		roots.Traverse(gc.mark)
	}

	live := gc.objects[:0]
	var liveBytes uint64
	for _, obj := range gc.objects {
		if obj.marked {
			obj.marked = false
			live = append(live, obj)
			liveBytes += obj.size
		}
	}
	// Drop the tail so freed objects are not retained by the backing
	// array.
	for i := len(live); i < len(gc.objects); i++ {
		gc.objects[i] = nil
	}
	gc.objects = live
	gc.allocated = liveBytes
}

func (gc *GC) mark(obj *Object) {
	// Objects owned by another heap are not traced. Cross-heap
	// references only ever point into the global heap, whose objects
	// live as long as the machine.
	if obj == nil || obj.owner != gc || obj.marked {
		return
	}
	obj.marked = true
	obj.Data.Traverse(gc.mark)
}

// Root registers obj as a collection root and returns a guard that
// removes the registration. Any reference crossing the VM/foreign
// boundary for longer than one primitive call must be rooted for that
// duration; the guard's Release runs on every exit path, including the
// foreign function failing.
func (gc *GC) Root(obj *Object) *Rooted {
	gc.roots = append(gc.roots, obj)
	return &Rooted{gc: gc, obj: obj}
}

// Rooted is a scoped root registration.
type Rooted struct {
	gc       *GC
	obj      *Object
	released bool
}

// Obj returns the rooted object.
func (r *Rooted) Obj() *Object { return r.obj }

// Release unregisters the root. Safe to call more than once.
func (r *Rooted) Release() {
	if r.released {
		return
	}
	r.released = true
	roots := r.gc.roots
	for i := len(roots) - 1; i >= 0; i-- {
		if roots[i] == r.obj {
			r.gc.roots = append(roots[:i], roots[i+1:]...)
			return
		}
	}
}
