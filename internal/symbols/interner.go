// Package symbols provides string interning. Every identifier in the
// checker and the VM is a Symbol: a stable handle whose equality is a
// pointer comparison rather than a string comparison.
package symbols

import "sync"

// Symbol is an interned identifier. The zero Symbol is invalid; symbols
// are only obtained through an Interner. Two symbols from the same
// interner are equal iff they intern the same string.
type Symbol struct {
	d *symData
}

type symData struct {
	name string
}

// Name returns the canonical display name of the symbol.
func (s Symbol) Name() string {
	if s.d == nil {
		return "<invalid symbol>"
	}
	return s.d.name
}

func (s Symbol) String() string { return s.Name() }

// Eq reports symbol identity. O(1): compares handles, never strings.
func (s Symbol) Eq(other Symbol) bool { return s.d == other.d }

// IsValid reports whether the symbol was produced by an interner.
func (s Symbol) IsValid() bool { return s.d != nil }

// Interner maps strings to symbols. Instances are explicit: a checker or
// VM constructs its own (or shares one), tests never touch global state.
// Safe for concurrent use.
type Interner struct {
	mu      sync.Mutex
	symbols map[string]*symData
}

func NewInterner() *Interner {
	return &Interner{symbols: make(map[string]*symData)}
}

// Intern returns the unique Symbol for name, creating it on first use.
func (i *Interner) Intern(name string) Symbol {
	i.mu.Lock()
	defer i.mu.Unlock()
	if d, ok := i.symbols[name]; ok {
		return Symbol{d: d}
	}
	d := &symData{name: name}
	i.symbols[name] = d
	return Symbol{d: d}
}

// Len returns the number of distinct interned strings.
func (i *Interner) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.symbols)
}
