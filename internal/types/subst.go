package types

import (
	"github.com/lumenlang/lumen/internal/kinds"
	"github.com/lumenlang/lumen/internal/symbols"
)

// Subst holds the bindings of unification variables made so far. One
// Subst is threaded through a whole checking pass; binding is the only
// mutation the type algebra permits.
type Subst struct {
	bindings map[uint32]Type
	nextID   uint32
}

func NewSubst() *Subst {
	return &Subst{bindings: make(map[uint32]Type)}
}

// Fresh returns a new unbound unification variable of kind Type.
func (s *Subst) Fresh() *Var {
	s.nextID++
	return &Var{ID: s.nextID}
}

// FreshRow returns a new unbound row variable (kind Row), used as the
// open tail of an extensible record or variant.
func (s *Subst) FreshRow() *Var {
	s.nextID++
	return &Var{ID: s.nextID, KindVal: kinds.Row}
}

// FreshSkolem returns a new rigid constant named after the generic it
// replaces.
func (s *Subst) FreshSkolem(name symbols.Symbol) *Skolem {
	s.nextID++
	return &Skolem{Name: name, ID: s.nextID}
}

// Bind records v := t. Callers must have run the occurs check first.
func (s *Subst) Bind(v *Var, t Type) {
	s.bindings[v.ID] = t
}

// Lookup returns the binding of a variable id, if any.
func (s *Subst) Lookup(id uint32) (Type, bool) {
	t, ok := s.bindings[id]
	return t, ok
}

// Resolve follows variable bindings at the root of t until it reaches a
// non-variable or an unbound variable. Children are not touched.
func (s *Subst) Resolve(t Type) Type {
	for {
		v, ok := t.(*Var)
		if !ok {
			return t
		}
		bound, ok := s.bindings[v.ID]
		if !ok {
			return t
		}
		t = bound
	}
}

// Apply substitutes every bound variable in t, rebuilding only the spine
// of nodes whose children actually changed. Subtrees without the
// HasVariables flag are returned as-is.
func (s *Subst) Apply(t Type) Type {
	if t.Flags()&HasVariables == 0 {
		return t
	}
	switch tt := t.(type) {
	case *Var:
		if bound, ok := s.bindings[tt.ID]; ok {
			return s.Apply(bound)
		}
		return tt
	case *App:
		ctor := s.Apply(tt.Ctor)
		args, changed := s.applyList(tt.Args)
		if ctor == tt.Ctor && !changed {
			return tt
		}
		return NewApp(ctor, args)
	case *Function:
		arg := s.Apply(tt.Arg)
		ret := s.Apply(tt.Ret)
		if arg == tt.Arg && ret == tt.Ret {
			return tt
		}
		return NewFunction(arg, ret)
	case *Record:
		row := s.Apply(tt.Row)
		if row == tt.Row {
			return tt
		}
		return NewRecord(row)
	case *Variant:
		row := s.Apply(tt.Row)
		if row == tt.Row {
			return tt
		}
		return NewVariant(row)
	case *Effect:
		row := s.Apply(tt.Row)
		if row == tt.Row {
			return tt
		}
		return NewEffect(row)
	case *ExtendRow:
		fields, fchanged := s.applyFields(tt.Fields)
		rest := s.Apply(tt.Rest)
		if !fchanged && rest == tt.Rest {
			return tt
		}
		return NewExtendRow(fields, rest)
	case *Forall:
		body := s.Apply(tt.Body)
		if body == tt.Body {
			return tt
		}
		return NewForall(tt.Vars, body)
	case *Alias:
		args, changed := s.applyList(tt.Args)
		if !changed {
			return tt
		}
		return NewAlias(tt.Data, args)
	default:
		return t
	}
}

func (s *Subst) applyList(in []Type) ([]Type, bool) {
	out := in
	changed := false
	for i, t := range in {
		nt := s.Apply(t)
		if nt != t {
			if !changed {
				out = append([]Type{}, in...)
				changed = true
			}
			out[i] = nt
		}
	}
	return out, changed
}

func (s *Subst) applyFields(in []Field) ([]Field, bool) {
	out := in
	changed := false
	for i, f := range in {
		nt := s.Apply(f.Type)
		if nt != f.Type {
			if !changed {
				out = append([]Field{}, in...)
				changed = true
			}
			out[i].Type = nt
		}
	}
	return out, changed
}

// Occurs reports whether the unbound variable v appears anywhere in t
// (after resolving bindings). The HasVariables flag prunes subtrees that
// cannot contain any variable at all.
func (s *Subst) Occurs(v *Var, t Type) bool {
	t = s.Resolve(t)
	if t.Flags()&HasVariables == 0 {
		return false
	}
	switch tt := t.(type) {
	case *Var:
		return tt.ID == v.ID
	case *App:
		if s.Occurs(v, tt.Ctor) {
			return true
		}
		for _, a := range tt.Args {
			if s.Occurs(v, a) {
				return true
			}
		}
	case *Function:
		return s.Occurs(v, tt.Arg) || s.Occurs(v, tt.Ret)
	case *Record:
		return s.Occurs(v, tt.Row)
	case *Variant:
		return s.Occurs(v, tt.Row)
	case *Effect:
		return s.Occurs(v, tt.Row)
	case *ExtendRow:
		for _, f := range tt.Fields {
			if s.Occurs(v, f.Type) {
				return true
			}
		}
		return s.Occurs(v, tt.Rest)
	case *Forall:
		return s.Occurs(v, tt.Body)
	case *Alias:
		for _, a := range tt.Args {
			if s.Occurs(v, a) {
				return true
			}
		}
	}
	return false
}

// ReplaceGenerics substitutes generic parameters by name, sharing every
// subtree that does not mention a generic.
func ReplaceGenerics(t Type, m map[symbols.Symbol]Type) Type {
	if t.Flags()&HasGenerics == 0 {
		return t
	}
	switch tt := t.(type) {
	case *Generic:
		if r, ok := m[tt.Name]; ok {
			return r
		}
		return tt
	case *App:
		ctor := ReplaceGenerics(tt.Ctor, m)
		args := make([]Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = ReplaceGenerics(a, m)
		}
		return NewApp(ctor, args)
	case *Function:
		return NewFunction(ReplaceGenerics(tt.Arg, m), ReplaceGenerics(tt.Ret, m))
	case *Record:
		return NewRecord(ReplaceGenerics(tt.Row, m))
	case *Variant:
		return NewVariant(ReplaceGenerics(tt.Row, m))
	case *Effect:
		return NewEffect(ReplaceGenerics(tt.Row, m))
	case *ExtendRow:
		fields := make([]Field, len(tt.Fields))
		for i, f := range tt.Fields {
			fields[i] = Field{Name: f.Name, Type: ReplaceGenerics(f.Type, m)}
		}
		return NewExtendRow(fields, ReplaceGenerics(tt.Rest, m))
	case *Forall:
		// Shadowing: quantified names are not replaced inside the body.
		inner := m
		for _, v := range tt.Vars {
			if _, ok := m[v.Name]; ok {
				inner = make(map[symbols.Symbol]Type, len(m))
				for k, r := range m {
					inner[k] = r
				}
				for _, sv := range tt.Vars {
					delete(inner, sv.Name)
				}
				break
			}
		}
		return NewForall(tt.Vars, ReplaceGenerics(tt.Body, inner))
	case *Alias:
		args := make([]Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = ReplaceGenerics(a, m)
		}
		return NewAlias(tt.Data, args)
	default:
		return t
	}
}
