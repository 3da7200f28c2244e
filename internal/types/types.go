// Package types implements the type algebra of the language: functions,
// applied constructors, records and variants as extensible rows, aliases,
// foralls, generics, skolem constants and unification variables, together
// with substitution and the structural unifier.
package types

import (
	"fmt"
	"strings"

	"github.com/lumenlang/lumen/internal/kinds"
	"github.com/lumenlang/lumen/internal/symbols"
)

// Flags is a cached bitset summary of structural properties of a type
// tree, computed bottom-up at construction. A flag is set iff the subtree
// actually contains the feature, which lets traversals skip subtrees that
// cannot be affected by a substitution or search.
type Flags uint8

const (
	HasVariables Flags = 1 << iota
	HasSkolems
	HasGenerics
	HasForall
	HasIdents
)

// NeedsGeneralize marks types that still mention unification variables or
// skolems and therefore cannot be stored in an environment as-is.
const NeedsGeneralize = HasVariables | HasSkolems

// Type is the interface implemented by every node of the type algebra.
// Nodes are immutable once constructed and freely shared; mutation happens
// only through Subst bindings.
type Type interface {
	Flags() Flags
	Kind() kinds.Kind
	String() string
}

// BuiltinTag enumerates primitive types known to the VM.
type BuiltinTag uint8

const (
	BuiltinInt BuiltinTag = iota
	BuiltinFloat
	BuiltinString
	BuiltinArray
)

func (t BuiltinTag) String() string {
	switch t {
	case BuiltinInt:
		return "Int"
	case BuiltinFloat:
		return "Float"
	case BuiltinString:
		return "String"
	case BuiltinArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// Var is a unification variable: an unknown type bound during inference
// through a Subst.
type Var struct {
	ID      uint32
	KindVal kinds.Kind
}

func (t *Var) Flags() Flags { return HasVariables }
func (t *Var) Kind() kinds.Kind {
	if t.KindVal == nil {
		return kinds.Type
	}
	return t.KindVal
}
func (t *Var) String() string { return fmt.Sprintf("t%d", t.ID) }

// Skolem is a rigid type constant introduced when checking inside a
// forall. A skolem unifies only with itself.
type Skolem struct {
	Name    symbols.Symbol
	ID      uint32
	KindVal kinds.Kind
}

func (t *Skolem) Flags() Flags { return HasSkolems }
func (t *Skolem) Kind() kinds.Kind {
	if t.KindVal == nil {
		return kinds.Type
	}
	return t.KindVal
}
func (t *Skolem) String() string { return fmt.Sprintf("%s@%d", t.Name, t.ID) }

// Generic is a bound parameter of a polymorphic definition, substituted
// with a fresh variable at each instantiation site.
type Generic struct {
	Name    symbols.Symbol
	KindVal kinds.Kind
}

func (t *Generic) Flags() Flags { return HasGenerics }
func (t *Generic) Kind() kinds.Kind {
	if t.KindVal == nil {
		return kinds.Type
	}
	return t.KindVal
}
func (t *Generic) String() string { return t.Name.Name() }

// Ident is an unresolved reference to a named type, resolved against the
// environment during unification.
type Ident struct {
	Name symbols.Symbol
}

func (t *Ident) Flags() Flags     { return HasIdents }
func (t *Ident) Kind() kinds.Kind { return kinds.Type }
func (t *Ident) String() string   { return t.Name.Name() }

// Builtin is a primitive type.
type Builtin struct {
	Tag BuiltinTag
}

func (t *Builtin) Flags() Flags { return 0 }
func (t *Builtin) Kind() kinds.Kind {
	if t.Tag == BuiltinArray {
		return kinds.MakeArrow(kinds.Type, kinds.Type)
	}
	return kinds.Type
}
func (t *Builtin) String() string { return t.Tag.String() }

// Opaque is a type whose structure is hidden from the checker entirely.
type Opaque struct{}

func (t *Opaque) Flags() Flags     { return 0 }
func (t *Opaque) Kind() kinds.Kind { return kinds.Type }
func (t *Opaque) String() string   { return "<opaque>" }

// Error is the poison type produced after a reported error. It unifies
// with everything without producing further reports.
type Error struct{}

func (t *Error) Flags() Flags     { return 0 }
func (t *Error) Kind() kinds.Kind { return kinds.Type }
func (t *Error) String() string   { return "<error>" }

// App is an applied type constructor, e.g. List Int.
type App struct {
	Ctor Type
	Args []Type

	flags Flags
}

func NewApp(ctor Type, args []Type) *App {
	f := ctor.Flags()
	for _, a := range args {
		f |= a.Flags()
	}
	return &App{Ctor: ctor, Args: args, flags: f}
}

func (t *App) Flags() Flags { return t.flags }
func (t *App) Kind() kinds.Kind {
	k := t.Ctor.Kind()
	for range t.Args {
		if arrow, ok := k.(kinds.KArrow); ok {
			k = arrow.Ret
		} else {
			return kinds.Type
		}
	}
	return k
}
func (t *App) String() string {
	parts := make([]string, 0, len(t.Args)+1)
	parts = append(parts, t.Ctor.String())
	for _, a := range t.Args {
		parts = append(parts, a.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Function is the type of a single-argument function; multi-argument
// functions are curried chains.
type Function struct {
	Arg Type
	Ret Type

	flags Flags
}

func NewFunction(arg, ret Type) *Function {
	return &Function{Arg: arg, Ret: ret, flags: arg.Flags() | ret.Flags()}
}

// NewFunctionN folds a parameter list and result into a curried chain.
func NewFunctionN(args []Type, ret Type) Type {
	out := ret
	for i := len(args) - 1; i >= 0; i-- {
		out = NewFunction(args[i], out)
	}
	return out
}

func (t *Function) Flags() Flags     { return t.flags }
func (t *Function) Kind() kinds.Kind { return kinds.Type }
func (t *Function) String() string {
	arg := t.Arg.String()
	if _, ok := t.Arg.(*Function); ok {
		arg = "(" + arg + ")"
	}
	return fmt.Sprintf("%s -> %s", arg, t.Ret)
}

// Record is a record type over a row.
type Record struct {
	Row Type

	flags Flags
}

func NewRecord(row Type) *Record { return &Record{Row: row, flags: row.Flags()} }

func (t *Record) Flags() Flags     { return t.flags }
func (t *Record) Kind() kinds.Kind { return kinds.Type }
func (t *Record) String() string   { return "{ " + rowString(t.Row, ", ") + " }" }

// Variant is a sum type over a row: each field is a constructor.
type Variant struct {
	Row Type

	flags Flags
}

func NewVariant(row Type) *Variant { return &Variant{Row: row, flags: row.Flags()} }

func (t *Variant) Flags() Flags     { return t.flags }
func (t *Variant) Kind() kinds.Kind { return kinds.Type }
func (t *Variant) String() string   { return "| " + rowString(t.Row, " | ") }

// Effect is an effect row. Carried structurally; no effect inference is
// performed by this checker.
type Effect struct {
	Row Type

	flags Flags
}

func NewEffect(row Type) *Effect { return &Effect{Row: row, flags: row.Flags()} }

func (t *Effect) Flags() Flags     { return t.flags }
func (t *Effect) Kind() kinds.Kind { return kinds.Type }
func (t *Effect) String() string   { return "[| " + rowString(t.Row, ", ") + " |]" }

// Forall is a universally quantified type.
type Forall struct {
	Vars []*Generic
	Body Type

	flags Flags
}

func NewForall(vars []*Generic, body Type) Type {
	if len(vars) == 0 {
		return body
	}
	return &Forall{Vars: vars, Body: body, flags: body.Flags() | HasForall | HasGenerics}
}

func (t *Forall) Flags() Flags     { return t.flags }
func (t *Forall) Kind() kinds.Kind { return t.Body.Kind() }
func (t *Forall) String() string {
	names := make([]string, len(t.Vars))
	for i, v := range t.Vars {
		names[i] = v.Name.Name()
	}
	return fmt.Sprintf("forall %s . %s", strings.Join(names, " "), t.Body)
}

// Field is one named entry of a row.
type Field struct {
	Name symbols.Symbol
	Type Type
}

// ExtendRow extends a tail row with named fields. The tail is EmptyRow
// for a closed row, a Var for an open one, or another ExtendRow.
type ExtendRow struct {
	Fields []Field
	Rest   Type

	flags Flags
}

func NewExtendRow(fields []Field, rest Type) Type {
	if len(fields) == 0 {
		return rest
	}
	f := rest.Flags()
	for _, field := range fields {
		f |= field.Type.Flags()
	}
	return &ExtendRow{Fields: fields, Rest: rest, flags: f}
}

func (t *ExtendRow) Flags() Flags     { return t.flags }
func (t *ExtendRow) Kind() kinds.Kind { return kinds.Row }
func (t *ExtendRow) String() string   { return rowString(t, ", ") }

// EmptyRow terminates a closed row.
type EmptyRow struct{}

func (t *EmptyRow) Flags() Flags     { return 0 }
func (t *EmptyRow) Kind() kinds.Kind { return kinds.Row }
func (t *EmptyRow) String() string   { return "" }

func rowString(row Type, sep string) string {
	parts := []string{}
	rest := row
	for {
		if ext, ok := rest.(*ExtendRow); ok {
			for _, f := range ext.Fields {
				parts = append(parts, fmt.Sprintf("%s : %s", f.Name, f.Type))
			}
			rest = ext.Rest
			continue
		}
		break
	}
	if _, closed := rest.(*EmptyRow); !closed {
		parts = append(parts, ".. "+rest.String())
	}
	return strings.Join(parts, sep)
}

// Shared singletons for the leaf types.
var (
	IntType    Type = &Builtin{Tag: BuiltinInt}
	FloatType  Type = &Builtin{Tag: BuiltinFloat}
	StringType Type = &Builtin{Tag: BuiltinString}
	ArrayCtor  Type = &Builtin{Tag: BuiltinArray}
	ErrorType  Type = &Error{}
	OpaqueType Type = &Opaque{}
	EmptyRowV  Type = &EmptyRow{}
)

// NewArray applies the builtin Array constructor to an element type.
func NewArray(elem Type) Type {
	return NewApp(ArrayCtor, []Type{elem})
}
