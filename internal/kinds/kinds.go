// Package kinds implements the kind algebra: the "types of types" that
// classify how type constructors may be applied. Kinds are unified
// independently of (and before) type inference.
package kinds

import "fmt"

// Kind represents the shape of a type constructor.
// * (Type) is the kind of proper types (Int, List Int).
// Row is the kind of record/variant rows.
// * -> * is the kind of unary type constructors (List, Option).
type Kind interface {
	String() string
	Equal(Kind) bool
}

// KHole is an inference placeholder: a kind not yet constrained at all.
// Holes unify with anything without binding.
type KHole struct{}

func (k KHole) String() string { return "_" }
func (k KHole) Equal(other Kind) bool {
	_, ok := other.(KHole)
	return ok
}

// KVar is a kind variable introduced during kind inference.
type KVar struct {
	ID uint32
}

func (k KVar) String() string { return fmt.Sprintf("k%d", k.ID) }
func (k KVar) Equal(other Kind) bool {
	o, ok := other.(KVar)
	return ok && o.ID == k.ID
}

// KType is the kind of proper types (*).
type KType struct{}

func (k KType) String() string { return "Type" }
func (k KType) Equal(other Kind) bool {
	_, ok := other.(KType)
	return ok
}

// KRow is the kind of record and variant rows.
type KRow struct{}

func (k KRow) String() string { return "Row" }
func (k KRow) Equal(other Kind) bool {
	_, ok := other.(KRow)
	return ok
}

// KArrow is the kind of a type constructor expecting an argument of kind
// Arg and producing kind Ret.
type KArrow struct {
	Arg Kind
	Ret Kind
}

func (k KArrow) String() string {
	return fmt.Sprintf("(%s -> %s)", k.Arg, k.Ret)
}

func (k KArrow) Equal(other Kind) bool {
	o, ok := other.(KArrow)
	if !ok {
		return false
	}
	return k.Arg.Equal(o.Arg) && k.Ret.Equal(o.Ret)
}

// Shared leaf kinds. Leaves are immutable so the singletons may be used
// freely across threads.
var (
	Type Kind = KType{}
	Row  Kind = KRow{}
	Hole Kind = KHole{}
)

// MakeArrow builds a right-nested arrow kind from its argument kinds.
// MakeArrow(Type, Type, Type) is Type -> Type -> Type.
func MakeArrow(ks ...Kind) Kind {
	if len(ks) == 0 {
		return Type
	}
	if len(ks) == 1 {
		return ks[0]
	}
	return KArrow{Arg: ks[0], Ret: MakeArrow(ks[1:]...)}
}

// Walk visits k and every kind reachable through Arrow edges.
// Hole, Var, Type and Row are leaves.
func Walk(k Kind, visit func(Kind)) {
	visit(k)
	if arrow, ok := k.(KArrow); ok {
		Walk(arrow.Arg, visit)
		Walk(arrow.Ret, visit)
	}
}

// ContainsVar reports whether the kind variable id occurs anywhere in k.
func ContainsVar(k Kind, id uint32) bool {
	found := false
	Walk(k, func(sub Kind) {
		if v, ok := sub.(KVar); ok && v.ID == id {
			found = true
		}
	})
	return found
}
