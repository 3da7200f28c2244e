package vm

import (
	"errors"
	"testing"
)

// listNode is a minimal traverseable for heap tests: a chain of objects.
type listNode struct {
	next *Object
}

func (n *listNode) Traverse(visit func(*Object)) {
	visit(n.next)
}

func TestCollectReclaimsUnreachable(t *testing.T) {
	gc := NewGC(1<<20, 1<<30)
	var chain *Object
	for i := 0; i < 10; i++ {
		obj, err := gc.Alloc(&listNode{next: chain}, 64, nil)
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		chain = obj
	}
	if gc.Live() != 10 {
		t.Fatalf("live = %d, want 10", gc.Live())
	}

	// Root the head: the whole chain survives.
	guard := gc.Root(chain)
	gc.Collect(nil)
	if gc.Live() != 10 {
		t.Fatalf("rooted chain collected: live = %d", gc.Live())
	}

	// Drop the root: everything goes.
	guard.Release()
	gc.Collect(nil)
	if gc.Live() != 0 {
		t.Fatalf("live = %d after dropping root, want 0", gc.Live())
	}
	if gc.Allocated() != 0 {
		t.Fatalf("allocated = %d, want 0", gc.Allocated())
	}
}

func TestCollectKeepsInterior(t *testing.T) {
	gc := NewGC(1<<20, 1<<30)
	inner, err := gc.Alloc(&listNode{}, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	outer, err := gc.Alloc(&listNode{next: inner}, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	guard := gc.Root(outer)
	defer guard.Release()
	gc.Collect(nil)
	if gc.Live() != 2 {
		t.Fatalf("live = %d, want inner kept through outer", gc.Live())
	}
}

func TestAllocTriggersCollection(t *testing.T) {
	gc := NewGC(256, 1<<30)
	// Garbage allocations below the threshold accumulate.
	for i := 0; i < 3; i++ {
		if _, err := gc.Alloc(&listNode{}, 64, nil); err != nil {
			t.Fatal(err)
		}
	}
	// The next allocation crosses 256 and sweeps the garbage.
	if _, err := gc.Alloc(&listNode{}, 128, nil); err != nil {
		t.Fatal(err)
	}
	if gc.Live() != 1 {
		t.Fatalf("live = %d, want only the triggering allocation", gc.Live())
	}
}

func TestOutOfMemory(t *testing.T) {
	gc := NewGC(64, 128)
	keep, err := gc.Alloc(&listNode{}, 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	guard := gc.Root(keep)
	defer guard.Release()

	_, err = gc.Alloc(&listNode{}, 100, nil)
	var oom *OutOfMemoryError
	if !errors.As(err, &oom) {
		t.Fatalf("got %v, want out of memory", err)
	}
	if oom.Limit != 128 {
		t.Fatalf("limit = %d, want 128", oom.Limit)
	}
}

func TestRootedReleaseIdempotent(t *testing.T) {
	gc := NewGC(1<<20, 1<<30)
	obj, err := gc.Alloc(&listNode{}, 16, nil)
	if err != nil {
		t.Fatal(err)
	}
	guard := gc.Root(obj)
	guard.Release()
	guard.Release()
	gc.Collect(nil)
	if gc.Live() != 0 {
		t.Fatalf("live = %d, want 0", gc.Live())
	}
}

func heapContains(gc *GC, obj *Object) bool {
	for _, o := range gc.objects {
		if o == obj {
			return true
		}
	}
	return false
}

func TestCollectIgnoresForeignObjects(t *testing.T) {
	global := NewGC(1<<20, 1<<30)
	local := NewGC(1<<20, 1<<30)

	shared, err := global.Alloc(&listNode{}, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	holder, err := local.Alloc(&listNode{next: shared}, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	guard := local.Root(holder)
	defer guard.Release()

	local.Collect(nil)
	if !heapContains(local, holder) {
		t.Fatal("rooted object swept by its own heap")
	}
	if !heapContains(global, shared) {
		t.Fatal("foreign object swept by another heap's collection")
	}

	// The local trace stopped at the foreign object without marking it,
	// so its owning heap still reclaims it normally.
	global.Collect(nil)
	if global.Live() != 0 {
		t.Fatalf("live = %d after owning-heap collection, want 0", global.Live())
	}
}
