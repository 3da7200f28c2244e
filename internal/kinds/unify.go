package kinds

import "fmt"

// MismatchError is a kind unification failure. It is collected, never
// fatal: a declaration with a kind error is poisoned with Hole and
// checking continues with the remaining declarations.
type MismatchError struct {
	Expected Kind
	Actual   Kind
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("kind mismatch: expected `%s` but found `%s`", e.Expected, e.Actual)
}

// OccursError reports an attempt to bind a kind variable to a kind
// containing itself.
type OccursError struct {
	Var  KVar
	Kind Kind
}

func (e *OccursError) Error() string {
	return fmt.Sprintf("infinite kind: %s occurs in %s", e.Var, e.Kind)
}

// Subst maps kind variable ids to kinds.
type Subst map[uint32]Kind

// Apply substitutes bound variables in k, following chains. Unbound
// variables and leaves are returned unchanged (no copying).
func (s Subst) Apply(k Kind) Kind {
	switch kk := k.(type) {
	case KVar:
		if bound, ok := s[kk.ID]; ok {
			return s.Apply(bound)
		}
		return k
	case KArrow:
		arg := s.Apply(kk.Arg)
		ret := s.Apply(kk.Ret)
		if arg == kk.Arg && ret == kk.Ret {
			return k
		}
		return KArrow{Arg: arg, Ret: ret}
	default:
		return k
	}
}

// Default replaces every unbound kind variable in k with Type. Run once
// kind inference for a declaration group is complete, mirroring the usual
// Haskell-style defaulting of leftover kind variables.
func (s Subst) Default(k Kind) Kind {
	switch kk := s.Apply(k).(type) {
	case KVar:
		return Type
	case KHole:
		return Type
	case KArrow:
		return KArrow{Arg: s.Default(kk.Arg), Ret: s.Default(kk.Ret)}
	default:
		return kk
	}
}

// Unifier binds kind variables so that unified kinds become equal under
// its substitution.
type Unifier struct {
	Subst  Subst
	nextID uint32
}

func NewUnifier() *Unifier {
	return &Unifier{Subst: make(Subst)}
}

// Fresh returns a new, unbound kind variable.
func (u *Unifier) Fresh() KVar {
	u.nextID++
	return KVar{ID: u.nextID}
}

// Unify makes expected and actual equal by binding kind variables,
// or reports why it cannot.
func (u *Unifier) Unify(expected, actual Kind) error {
	e := u.Subst.Apply(expected)
	a := u.Subst.Apply(actual)

	// Holes place no constraint on the other side.
	if _, ok := e.(KHole); ok {
		return nil
	}
	if _, ok := a.(KHole); ok {
		return nil
	}

	if ev, ok := e.(KVar); ok {
		return u.bind(ev, a)
	}
	if av, ok := a.(KVar); ok {
		return u.bind(av, e)
	}

	switch ek := e.(type) {
	case KType:
		if _, ok := a.(KType); ok {
			return nil
		}
	case KRow:
		if _, ok := a.(KRow); ok {
			return nil
		}
	case KArrow:
		if ak, ok := a.(KArrow); ok {
			if err := u.Unify(ek.Arg, ak.Arg); err != nil {
				return err
			}
			return u.Unify(ek.Ret, ak.Ret)
		}
	}
	return &MismatchError{Expected: e, Actual: a}
}

func (u *Unifier) bind(v KVar, k Kind) error {
	if kv, ok := k.(KVar); ok && kv.ID == v.ID {
		return nil
	}
	if ContainsVar(u.Subst.Apply(k), v.ID) {
		return &OccursError{Var: v, Kind: k}
	}
	u.Subst[v.ID] = k
	return nil
}
