package types

import (
	"fmt"

	"github.com/lumenlang/lumen/internal/symbols"
)

// FreeVars appends every distinct unbound unification variable in t to
// acc, in first-occurrence order. Flag-gated: subtrees without variables
// are skipped wholesale.
func FreeVars(s *Subst, t Type, acc []*Var) []*Var {
	t = s.Resolve(t)
	if t.Flags()&HasVariables == 0 {
		return acc
	}
	switch tt := t.(type) {
	case *Var:
		for _, v := range acc {
			if v.ID == tt.ID {
				return acc
			}
		}
		return append(acc, tt)
	case *App:
		acc = FreeVars(s, tt.Ctor, acc)
		for _, a := range tt.Args {
			acc = FreeVars(s, a, acc)
		}
		return acc
	case *Function:
		return FreeVars(s, tt.Ret, FreeVars(s, tt.Arg, acc))
	case *Record:
		return FreeVars(s, tt.Row, acc)
	case *Variant:
		return FreeVars(s, tt.Row, acc)
	case *Effect:
		return FreeVars(s, tt.Row, acc)
	case *ExtendRow:
		for _, f := range tt.Fields {
			acc = FreeVars(s, f.Type, acc)
		}
		return FreeVars(s, tt.Rest, acc)
	case *Forall:
		return FreeVars(s, tt.Body, acc)
	case *Alias:
		for _, a := range tt.Args {
			acc = FreeVars(s, a, acc)
		}
		return acc
	default:
		return acc
	}
}

// Generalize quantifies every free unification variable of t that does
// not appear in the enclosing scope (escaping), producing a Forall. The
// result carries no unification variables of its own.
func Generalize(s *Subst, interner *symbols.Interner, t Type, escaping []*Var) Type {
	t = s.Apply(t)
	if t.Flags()&HasVariables == 0 {
		return t
	}
	escaped := make(map[uint32]struct{}, len(escaping))
	for _, v := range escaping {
		escaped[v.ID] = struct{}{}
	}

	free := FreeVars(s, t, nil)
	var gens []*Generic
	for i, v := range free {
		if _, esc := escaped[v.ID]; esc {
			continue
		}
		name := interner.Intern(genericName(i))
		g := &Generic{Name: name, KindVal: v.KindVal}
		gens = append(gens, g)
		s.Bind(v, g)
	}
	if len(gens) == 0 {
		return s.Apply(t)
	}
	return NewForall(gens, s.Apply(t))
}

// genericName yields a, b, .., z, a1, b1, ..
func genericName(i int) string {
	letter := rune('a' + i%26)
	if i < 26 {
		return string(letter)
	}
	return fmt.Sprintf("%c%d", letter, i/26)
}

// Instantiate replaces the quantified variables of a Forall with fresh
// unification variables. Every call site gets independent variables, so
// using a polymorphic binding at Int and at String never unifies the two.
func Instantiate(s *Subst, t Type) Type {
	forall, ok := t.(*Forall)
	if !ok {
		return t
	}
	m := make(map[symbols.Symbol]Type, len(forall.Vars))
	for _, g := range forall.Vars {
		v := s.Fresh()
		v.KindVal = g.KindVal
		m[g.Name] = v
	}
	return Instantiate(s, ReplaceGenerics(forall.Body, m))
}

// Skolemize replaces the quantified variables of a Forall with rigid
// skolem constants, for checking inside the body of the quantifier.
func Skolemize(s *Subst, t Type) Type {
	forall, ok := t.(*Forall)
	if !ok {
		return t
	}
	m := make(map[symbols.Symbol]Type, len(forall.Vars))
	for _, g := range forall.Vars {
		sk := s.FreshSkolem(g.Name)
		sk.KindVal = g.KindVal
		m[g.Name] = sk
	}
	return Skolemize(s, ReplaceGenerics(forall.Body, m))
}
