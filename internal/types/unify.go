package types

import (
	"fmt"
	"strings"

	"github.com/lumenlang/lumen/internal/symbols"
)

// Resolver lets the unifier expand named types it does not own. It is
// implemented by whatever holds already-checked bindings: a module table,
// REPL state, or the VM global environment.
type Resolver interface {
	FindTypeInfo(name symbols.Symbol) (*AliasData, bool)
}

// TypeMismatch is the failure of structural unification, carrying both
// sides so diagnostics can show the user's expected type verbatim.
type TypeMismatch struct {
	Expected Type
	Actual   Type
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("expected `%s` but found `%s`", e.Expected, e.Actual)
}

// OccursError reports an attempt to construct an infinite type.
type OccursError struct {
	Var  *Var
	Type Type
}

func (e *OccursError) Error() string {
	return fmt.Sprintf("infinite type: %s occurs in %s", e.Var, e.Type)
}

// MissingFieldsError reports fields required by one side of a row
// unification that the other, closed side cannot supply.
type MissingFieldsError struct {
	Type   Type
	Fields []symbols.Symbol
}

func (e *MissingFieldsError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name()
	}
	return fmt.Sprintf("type `%s` is missing the fields: %s", e.Type, strings.Join(names, ", "))
}

// DuplicateFieldError reports the same field name occurring twice in one
// row.
type DuplicateFieldError struct {
	Name symbols.Symbol
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("duplicate field `%s`", e.Name)
}

// UndefinedTypeError reports a named type the environment cannot resolve.
type UndefinedTypeError struct {
	Name symbols.Symbol
}

func (e *UndefinedTypeError) Error() string {
	return fmt.Sprintf("undefined type `%s`", e.Name)
}

// Unifier makes types equal by binding unification variables in its
// Subst. A failed unification reports an error and yields the Error type
// so checking can continue instead of aborting.
type Unifier struct {
	Subst    *Subst
	Resolver Resolver
}

func NewUnifier(subst *Subst, resolver Resolver) *Unifier {
	return &Unifier{Subst: subst, Resolver: resolver}
}

// Unify attempts to make expected and actual structurally equal. On
// success the returned type is the unified shape; on failure it is the
// Error poison and the error describes the first conflict.
func (u *Unifier) Unify(expected, actual Type) (Type, error) {
	t, err := u.unify(expected, actual)
	if err != nil {
		return ErrorType, err
	}
	return t, nil
}

func (u *Unifier) unify(expected, actual Type) (Type, error) {
	e := u.Subst.Resolve(expected)
	a := u.Subst.Resolve(actual)

	if e == a {
		return e, nil
	}

	// Error is poison: it silently satisfies any shape.
	if _, ok := e.(*Error); ok {
		return a, nil
	}
	if _, ok := a.(*Error); ok {
		return e, nil
	}

	if ev, ok := e.(*Var); ok {
		return u.bind(ev, a)
	}
	if av, ok := a.(*Var); ok {
		return u.bind(av, e)
	}

	// Resolve unresolved named references through the environment.
	if id, ok := e.(*Ident); ok {
		resolved, err := u.resolveIdent(id)
		if err != nil {
			return nil, err
		}
		return u.unify(resolved, a)
	}
	if id, ok := a.(*Ident); ok {
		resolved, err := u.resolveIdent(id)
		if err != nil {
			return nil, err
		}
		return u.unify(e, resolved)
	}

	// An application whose constructor is a named type is an alias
	// application: fold the arguments into alias form so expansion can
	// substitute them.
	if ap, ok := e.(*App); ok {
		if id, isIdent := ap.Ctor.(*Ident); isIdent {
			resolved, err := u.resolveIdent(id)
			if err != nil {
				return nil, err
			}
			return u.unify(NewAlias(resolved.(*Alias).Data, ap.Args), a)
		}
	}
	if ap, ok := a.(*App); ok {
		if id, isIdent := ap.Ctor.(*Ident); isIdent {
			resolved, err := u.resolveIdent(id)
			if err != nil {
				return nil, err
			}
			return u.unify(e, NewAlias(resolved.(*Alias).Data, ap.Args))
		}
	}

	// Alias handling. When only one side is in alias form the *expected*
	// side is preferred for expansion so errors keep naming the type the
	// user wrote.
	ea, eIsAlias := e.(*Alias)
	aa, aIsAlias := a.(*Alias)
	switch {
	case eIsAlias && aIsAlias:
		if ea.Data == aa.Data {
			return u.unifyAliasArgs(ea, aa)
		}
		if exp := ea.Expand(); exp != nil {
			return u.unify(exp, a)
		}
		if exp := aa.Expand(); exp != nil {
			return u.unify(e, exp)
		}
		return nil, &TypeMismatch{Expected: e, Actual: a}
	case eIsAlias:
		if exp := ea.Expand(); exp != nil {
			return u.unify(exp, a)
		}
		return nil, &TypeMismatch{Expected: e, Actual: a}
	case aIsAlias:
		if exp := aa.Expand(); exp != nil {
			return u.unify(e, exp)
		}
		return nil, &TypeMismatch{Expected: e, Actual: a}
	}

	switch et := e.(type) {
	case *Builtin:
		if at, ok := a.(*Builtin); ok && at.Tag == et.Tag {
			return e, nil
		}
	case *Opaque:
		if _, ok := a.(*Opaque); ok {
			return e, nil
		}
	case *Skolem:
		// Rigid: a skolem matches only the very same skolem.
		if at, ok := a.(*Skolem); ok && at.ID == et.ID {
			return e, nil
		}
	case *Generic:
		if at, ok := a.(*Generic); ok && at.Name.Eq(et.Name) {
			return e, nil
		}
	case *Function:
		if at, ok := a.(*Function); ok {
			arg, err := u.unify(et.Arg, at.Arg)
			if err != nil {
				return nil, err
			}
			ret, err := u.unify(et.Ret, at.Ret)
			if err != nil {
				return nil, err
			}
			return NewFunction(arg, ret), nil
		}
	case *App:
		if at, ok := a.(*App); ok && len(et.Args) == len(at.Args) {
			ctor, err := u.unify(et.Ctor, at.Ctor)
			if err != nil {
				return nil, err
			}
			args := make([]Type, len(et.Args))
			for i := range et.Args {
				arg, err := u.unify(et.Args[i], at.Args[i])
				if err != nil {
					return nil, err
				}
				args[i] = arg
			}
			return NewApp(ctor, args), nil
		}
	case *Record:
		if at, ok := a.(*Record); ok {
			row, err := u.unifyRows(e, a, et.Row, at.Row)
			if err != nil {
				return nil, err
			}
			return NewRecord(row), nil
		}
	case *Variant:
		if at, ok := a.(*Variant); ok {
			row, err := u.unifyRows(e, a, et.Row, at.Row)
			if err != nil {
				return nil, err
			}
			return NewVariant(row), nil
		}
	case *Effect:
		if at, ok := a.(*Effect); ok {
			row, err := u.unifyRows(e, a, et.Row, at.Row)
			if err != nil {
				return nil, err
			}
			return NewEffect(row), nil
		}
	case *EmptyRow:
		switch a.(type) {
		case *EmptyRow:
			return e, nil
		case *ExtendRow:
			return u.unifyRows(e, a, e, a)
		}
	case *ExtendRow:
		switch a.(type) {
		case *ExtendRow, *EmptyRow:
			return u.unifyRows(e, a, e, a)
		}
	case *Forall:
		if _, ok := a.(*Forall); ok {
			return u.unifyForalls(et, a.(*Forall))
		}
		// A polytype against a monotype: instantiate and retry.
		return u.unify(Instantiate(u.Subst, et), a)
	}

	if af, ok := a.(*Forall); ok {
		return u.unify(e, Instantiate(u.Subst, af))
	}

	return nil, &TypeMismatch{Expected: e, Actual: a}
}

func (u *Unifier) bind(v *Var, t Type) (Type, error) {
	if tv, ok := t.(*Var); ok && tv.ID == v.ID {
		return v, nil
	}
	if u.Subst.Occurs(v, t) {
		return nil, &OccursError{Var: v, Type: u.Subst.Apply(t)}
	}
	u.Subst.Bind(v, t)
	return t, nil
}

func (u *Unifier) resolveIdent(id *Ident) (Type, error) {
	if u.Resolver != nil {
		if data, ok := u.Resolver.FindTypeInfo(id.Name); ok {
			return NewAlias(data, nil), nil
		}
	}
	return nil, &UndefinedTypeError{Name: id.Name}
}

// RemoveAliases resolves named references and expands top-level aliases
// until a structural type surfaces. Abstract aliases stop the walk: they
// have no structure to expose.
func (u *Unifier) RemoveAliases(t Type) (Type, error) {
	for {
		t = u.Subst.Resolve(t)
		switch tt := t.(type) {
		case *Ident:
			resolved, err := u.resolveIdent(tt)
			if err != nil {
				return nil, err
			}
			t = resolved
		case *App:
			id, ok := tt.Ctor.(*Ident)
			if !ok {
				return t, nil
			}
			resolved, err := u.resolveIdent(id)
			if err != nil {
				return nil, err
			}
			t = NewAlias(resolved.(*Alias).Data, tt.Args)
		case *Alias:
			exp := tt.Expand()
			if exp == nil {
				return t, nil
			}
			t = exp
		default:
			return t, nil
		}
	}
}

func (u *Unifier) unifyAliasArgs(e, a *Alias) (Type, error) {
	if len(e.Args) != len(a.Args) {
		return nil, &TypeMismatch{Expected: e, Actual: a}
	}
	args := make([]Type, len(e.Args))
	for i := range e.Args {
		arg, err := u.unify(e.Args[i], a.Args[i])
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return NewAlias(e.Data, args), nil
}

// unifyForalls checks alpha-equivalence by skolemizing both sides with
// the same rigid constants and unifying the bodies.
func (u *Unifier) unifyForalls(e, a *Forall) (Type, error) {
	if len(e.Vars) != len(a.Vars) {
		return nil, &TypeMismatch{Expected: e, Actual: a}
	}
	em := make(map[symbols.Symbol]Type, len(e.Vars))
	am := make(map[symbols.Symbol]Type, len(a.Vars))
	for i, g := range e.Vars {
		sk := u.Subst.FreshSkolem(g.Name)
		sk.KindVal = g.KindVal
		em[g.Name] = sk
		am[a.Vars[i].Name] = sk
	}
	if _, err := u.unify(ReplaceGenerics(e.Body, em), ReplaceGenerics(a.Body, am)); err != nil {
		return nil, err
	}
	return e, nil
}

// unifyRows matches the fields of two rows by name, order-independent.
// Fields present on only one side are reconciled against the other row's
// tail variable when it is open; against a closed tail they are an error.
// Two open rows with disjoint field sets unify into the union row with a
// fresh shared tail.
func (u *Unifier) unifyRows(eOwner, aOwner, erow, arow Type) (Type, error) {
	eflat, edup := FlattenRow(u.Subst, erow)
	if edup != nil {
		return nil, &DuplicateFieldError{Name: *edup}
	}
	aflat, adup := FlattenRow(u.Subst, arow)
	if adup != nil {
		return nil, &DuplicateFieldError{Name: *adup}
	}

	var unified []Field
	var eOnly, aOnly []Field
	for _, ef := range eflat.Fields {
		af, ok := aflat.Lookup(ef.Name)
		if !ok {
			eOnly = append(eOnly, ef)
			continue
		}
		ft, err := u.unify(ef.Type, af.Type)
		if err != nil {
			return nil, err
		}
		unified = append(unified, Field{Name: ef.Name, Type: ft})
	}
	for _, af := range aflat.Fields {
		if _, ok := eflat.Lookup(af.Name); !ok {
			aOnly = append(aOnly, af)
		}
	}

	// Fields only the expected row has must come out of the actual row's
	// tail, and vice versa.
	if len(eOnly) > 0 && aflat.Closed() {
		names := make([]symbols.Symbol, len(eOnly))
		for i, f := range eOnly {
			names[i] = f.Name
		}
		return nil, &MissingFieldsError{Type: u.Subst.Apply(aOwner), Fields: names}
	}
	if len(aOnly) > 0 && eflat.Closed() {
		names := make([]symbols.Symbol, len(aOnly))
		for i, f := range aOnly {
			names[i] = f.Name
		}
		return nil, &MissingFieldsError{Type: u.Subst.Apply(eOwner), Fields: names}
	}

	switch {
	case len(eOnly) == 0 && len(aOnly) == 0:
		tail := eflat.Tail
		if !eflat.Closed() || !aflat.Closed() {
			t, err := u.unify(eflat.Tail, aflat.Tail)
			if err != nil {
				return nil, err
			}
			tail = t
		}
		return NewExtendRow(unified, tail), nil
	default:
		// At least one side is open here (a closed side with missing
		// fields was rejected above). When both are open the unified row
		// is the union of the fields over a fresh shared tail; when one
		// is closed, the open tail is capped with the closed side's
		// leftover fields and the result is closed.
		var tail Type = EmptyRowV
		if !eflat.Closed() && !aflat.Closed() {
			tail = u.Subst.FreshRow()
		}
		if !eflat.Closed() {
			ev, ok := eflat.Tail.(*Var)
			if !ok {
				// A rigid tail (skolem or generic) cannot absorb fields.
				return nil, &TypeMismatch{Expected: u.Subst.Apply(eOwner), Actual: u.Subst.Apply(aOwner)}
			}
			rest := NewExtendRow(aOnly, tail)
			if u.Subst.Occurs(ev, rest) {
				return nil, &OccursError{Var: ev, Type: rest}
			}
			u.Subst.Bind(ev, rest)
		}
		if !aflat.Closed() {
			av, ok := aflat.Tail.(*Var)
			if !ok {
				return nil, &TypeMismatch{Expected: u.Subst.Apply(eOwner), Actual: u.Subst.Apply(aOwner)}
			}
			rest := NewExtendRow(eOnly, tail)
			if u.Subst.Occurs(av, rest) {
				return nil, &OccursError{Var: av, Type: rest}
			}
			u.Subst.Bind(av, rest)
		}
		all := append(append(unified, eOnly...), aOnly...)
		return NewExtendRow(all, tail), nil
	}
}
