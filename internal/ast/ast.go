// Package ast defines the expression and pattern nodes consumed by the
// type checker. The parser producing these nodes lives outside this
// module; identifiers arrive pre-resolved to interned symbols, so the
// checker performs type resolution only, never name resolution.
package ast

import (
	"github.com/lumenlang/lumen/internal/meta"
	"github.com/lumenlang/lumen/internal/pos"
	"github.com/lumenlang/lumen/internal/symbols"
	"github.com/lumenlang/lumen/internal/types"
)

// Node is the base interface for all AST nodes. Every node carries the
// span of source text it came from.
type Node interface {
	Span() pos.Span
}

// Expression is a Node that evaluates to a value.
type Expression interface {
	Node
	expressionNode()
}

// Pattern is a Node that deconstructs a value.
type Pattern interface {
	Node
	patternNode()
}

// IntLit is an integer literal.
type IntLit struct {
	Pos   pos.Span
	Value int64
}

// FloatLit is a floating point literal.
type FloatLit struct {
	Pos   pos.Span
	Value float64
}

// StringLit is a string literal.
type StringLit struct {
	Pos   pos.Span
	Value string
}

// Ident is a reference to a binding.
type Ident struct {
	Pos  pos.Span
	Name symbols.Symbol
}

// Lambda is an anonymous function with curried-style argument list.
type Lambda struct {
	Pos  pos.Span
	Args []symbols.Symbol
	Body Expression
}

// App applies a function to arguments.
type App struct {
	Pos  pos.Span
	Func Expression
	Args []Expression
}

// Binding is one definition inside a Let group.
type Binding struct {
	Pos      pos.Span
	Name     symbols.Symbol
	Args     []symbols.Symbol // sugar for a lambda body when non-empty
	Typ      types.Type       // declared type annotation, nil if absent
	Expr     Expression
	Metadata *meta.Metadata // doc comment and attributes, nil if absent
}

// Let introduces a group of bindings. When Rec is set the bindings may
// refer to each other and are checked as one recursive group.
type Let struct {
	Pos      pos.Span
	Rec      bool
	Bindings []*Binding
	Body     Expression
}

// RecordField is one field of a record construction expression.
type RecordField struct {
	Pos   pos.Span
	Name  symbols.Symbol
	Value Expression // nil means field punning: `{ x }` is `{ x = x }`
}

// Record constructs a record value.
type Record struct {
	Pos    pos.Span
	Fields []RecordField
	Typ    types.Type // declared type annotation, nil if absent
}

// Selector accesses a record field.
type Selector struct {
	Pos   pos.Span
	Expr  Expression
	Field symbols.Symbol
}

// Variant constructs a variant (sum constructor) value.
type Variant struct {
	Pos  pos.Span
	Tag  symbols.Symbol
	Args []Expression
}

// MatchAlt is one alternative of a Match expression.
type MatchAlt struct {
	Pos     pos.Span
	Pattern Pattern
	Expr    Expression
}

// Match dispatches on the shape of a scrutinee value.
type Match struct {
	Pos   pos.Span
	Expr  Expression
	Alts  []*MatchAlt
}

// Annotated asserts the type of an expression.
type Annotated struct {
	Pos  pos.Span
	Expr Expression
	Typ  types.Type
}

// TypeBinding declares one type alias in a TypeBindings group.
type TypeBinding struct {
	Pos    pos.Span
	Name   symbols.Symbol
	Params []symbols.Symbol
	Typ    types.Type // nil declares an abstract type
}

// TypeBindings introduces a group of (possibly mutually recursive) type
// alias declarations scoped over Body.
type TypeBindings struct {
	Pos      pos.Span
	Bindings []*TypeBinding
	Body     Expression
}

func (e *IntLit) Span() pos.Span       { return e.Pos }
func (e *FloatLit) Span() pos.Span     { return e.Pos }
func (e *StringLit) Span() pos.Span    { return e.Pos }
func (e *Ident) Span() pos.Span        { return e.Pos }
func (e *Lambda) Span() pos.Span       { return e.Pos }
func (e *App) Span() pos.Span          { return e.Pos }
func (e *Let) Span() pos.Span          { return e.Pos }
func (e *Record) Span() pos.Span       { return e.Pos }
func (e *Selector) Span() pos.Span     { return e.Pos }
func (e *Variant) Span() pos.Span      { return e.Pos }
func (e *Match) Span() pos.Span        { return e.Pos }
func (e *Annotated) Span() pos.Span    { return e.Pos }
func (e *TypeBindings) Span() pos.Span { return e.Pos }

func (e *IntLit) expressionNode()       {}
func (e *FloatLit) expressionNode()     {}
func (e *StringLit) expressionNode()    {}
func (e *Ident) expressionNode()        {}
func (e *Lambda) expressionNode()       {}
func (e *App) expressionNode()          {}
func (e *Let) expressionNode()          {}
func (e *Record) expressionNode()       {}
func (e *Selector) expressionNode()     {}
func (e *Variant) expressionNode()      {}
func (e *Match) expressionNode()        {}
func (e *Annotated) expressionNode()    {}
func (e *TypeBindings) expressionNode() {}

// IdentPat binds the whole matched value to a name.
type IdentPat struct {
	Pos  pos.Span
	Name symbols.Symbol
}

// CtorPat matches a variant constructor and binds its fields.
type CtorPat struct {
	Pos  pos.Span
	Tag  symbols.Symbol
	Args []Pattern
}

// RecordPat matches a record and binds a subset of its fields.
type RecordPat struct {
	Pos    pos.Span
	Fields []RecordPatField
}

// RecordPatField is one field of a record pattern. A nil Pattern binds
// the field under its own name.
type RecordPatField struct {
	Name    symbols.Symbol
	Pattern Pattern
}

// LiteralPat matches an exact literal value.
type LiteralPat struct {
	Pos  pos.Span
	Expr Expression // IntLit, FloatLit or StringLit
}

func (p *IdentPat) Span() pos.Span   { return p.Pos }
func (p *CtorPat) Span() pos.Span    { return p.Pos }
func (p *RecordPat) Span() pos.Span  { return p.Pos }
func (p *LiteralPat) Span() pos.Span { return p.Pos }

func (p *IdentPat) patternNode()   {}
func (p *CtorPat) patternNode()    {}
func (p *RecordPat) patternNode()  {}
func (p *LiteralPat) patternNode() {}
