package symbols

import (
	"sync"
	"testing"
)

func TestInternIdentity(t *testing.T) {
	in := NewInterner()
	a1 := in.Intern("alpha")
	a2 := in.Intern("alpha")
	b := in.Intern("beta")

	if !a1.Eq(a2) {
		t.Fatal("same name interned to different symbols")
	}
	if a1.Eq(b) {
		t.Fatal("different names interned to the same symbol")
	}
	if a1.Name() != "alpha" || b.Name() != "beta" {
		t.Fatalf("names = %q, %q", a1.Name(), b.Name())
	}
	if in.Len() != 2 {
		t.Fatalf("len = %d, want 2", in.Len())
	}
}

func TestZeroSymbolInvalid(t *testing.T) {
	var s Symbol
	if s.IsValid() {
		t.Fatal("zero symbol claims validity")
	}
	in := NewInterner()
	if !in.Intern("x").IsValid() {
		t.Fatal("interned symbol invalid")
	}
}

func TestSeparateInternersAreIndependent(t *testing.T) {
	a := NewInterner().Intern("name")
	b := NewInterner().Intern("name")
	if a.Eq(b) {
		t.Fatal("symbols from different interners compared equal")
	}
}

func TestInternConcurrent(t *testing.T) {
	in := NewInterner()
	var wg sync.WaitGroup
	results := make([]Symbol, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = in.Intern("shared")
		}(i)
	}
	wg.Wait()
	for _, s := range results[1:] {
		if !s.Eq(results[0]) {
			t.Fatal("concurrent interning produced distinct symbols")
		}
	}
	if in.Len() != 1 {
		t.Fatalf("len = %d, want 1", in.Len())
	}
}
