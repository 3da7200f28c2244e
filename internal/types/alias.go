package types

import (
	"strings"

	"github.com/lumenlang/lumen/internal/kinds"
	"github.com/lumenlang/lumen/internal/symbols"
)

// AliasData is the definition of a named type: formal parameters plus an
// optional right-hand side. Typ is nil while only the kind/arity of the
// name is known, which is how abstract (opaque) types are represented.
type AliasData struct {
	Name   symbols.Symbol
	Params []*Generic
	Typ    Type
}

// Kind derives the alias's kind from its parameters.
func (d *AliasData) Kind() kinds.Kind {
	k := kinds.Type
	for i := len(d.Params) - 1; i >= 0; i-- {
		k = kinds.KArrow{Arg: d.Params[i].Kind(), Ret: k}
	}
	return k
}

// IsAbstract reports whether the alias has no known right-hand side.
func (d *AliasData) IsAbstract() bool { return d.Typ == nil }

// Alias is a resolved reference to an AliasData applied to type
// arguments. Expansion is lazy: nothing is substituted until unification
// asks for it, which is what keeps recursive aliases from looping.
type Alias struct {
	Data *AliasData
	Args []Type

	flags Flags
}

func NewAlias(data *AliasData, args []Type) *Alias {
	var f Flags
	for _, a := range args {
		f |= a.Flags()
	}
	return &Alias{Data: data, Args: args, flags: f}
}

func (t *Alias) Flags() Flags { return t.flags }
func (t *Alias) Kind() kinds.Kind {
	k := t.Data.Kind()
	for range t.Args {
		if arrow, ok := k.(kinds.KArrow); ok {
			k = arrow.Ret
		} else {
			return kinds.Type
		}
	}
	return k
}
func (t *Alias) String() string {
	if len(t.Args) == 0 {
		return t.Data.Name.Name()
	}
	parts := make([]string, 0, len(t.Args)+1)
	parts = append(parts, t.Data.Name.Name())
	for _, a := range t.Args {
		parts = append(parts, a.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Expand substitutes the alias's arguments positionally into its
// right-hand side. Returns nil for abstract aliases and for
// under-applied ones.
func (t *Alias) Expand() Type {
	if t.Data.IsAbstract() || len(t.Args) < len(t.Data.Params) {
		return nil
	}
	if len(t.Data.Params) == 0 && len(t.Args) == 0 {
		return t.Data.Typ
	}
	m := make(map[symbols.Symbol]Type, len(t.Data.Params))
	for i, p := range t.Data.Params {
		m[p.Name] = t.Args[i]
	}
	expanded := ReplaceGenerics(t.Data.Typ, m)
	// Over-application spills into a type application.
	if extra := t.Args[len(t.Data.Params):]; len(extra) > 0 {
		if app, ok := expanded.(*App); ok {
			merged := append(append([]Type{}, app.Args...), extra...)
			return NewApp(app.Ctor, merged)
		}
		return NewApp(expanded, extra)
	}
	return expanded
}
