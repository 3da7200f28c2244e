package checker

import (
	"fmt"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/meta"
	"github.com/lumenlang/lumen/internal/pos"
	"github.com/lumenlang/lumen/internal/symbols"
	"github.com/lumenlang/lumen/internal/types"
)

// Typecheck is one checking pass over an expression tree. It owns the
// substitution and the collected error list; the environment it resolves
// names against is borrowed.
type Typecheck struct {
	env      Environment
	interner *symbols.Interner
	subst    *types.Subst
	unifier  *types.Unifier
	scope    scope
	metadata metadataTable
	errors   Errors

	// lastRecordMeta holds the metadata assembled by the most recently
	// checked record construction, picked up by the enclosing binding.
	lastRecordMeta *meta.Metadata
}

func New(env Environment, interner *symbols.Interner) *Typecheck {
	tc := &Typecheck{
		env:      env,
		interner: interner,
		subst:    types.NewSubst(),
		scope:    newScope(),
		metadata: make(metadataTable),
	}
	tc.unifier = types.NewUnifier(tc.subst, tc)
	return tc
}

// FindTypeInfo implements types.Resolver: local type bindings shadow the
// environment's.
func (tc *Typecheck) FindTypeInfo(name symbols.Symbol) (*types.AliasData, bool) {
	if data, ok := tc.scope.lookupTypeInfo(name); ok {
		return data, true
	}
	return tc.env.FindTypeInfo(name)
}

// TypecheckExpr infers the type of expr. It is never partial: on error
// the best-effort type is returned (possibly the Error poison) together
// with every problem collected during the pass.
func (tc *Typecheck) TypecheckExpr(expr ast.Expression) (types.Type, Errors) {
	tc.errors = nil
	t := tc.infer(expr)
	t = types.Generalize(tc.subst, tc.interner, t, nil)
	return t, tc.errors
}

// Metadata returns the metadata that checking attached to a symbol.
func (tc *Typecheck) Metadata(name symbols.Symbol) (*meta.Metadata, bool) {
	m, ok := tc.metadata[name.Name()]
	return m, ok
}

func (tc *Typecheck) error(span pos.Span, err error) types.Type {
	tc.errors = append(tc.errors, Error{Span: span, Err: err})
	return types.ErrorType
}

// unify records a failure against span and poisons the result so
// checking continues.
func (tc *Typecheck) unify(span pos.Span, expected, actual types.Type) types.Type {
	t, err := tc.unifier.Unify(expected, actual)
	if err != nil {
		return tc.error(span, err)
	}
	return t
}

func (tc *Typecheck) infer(expr ast.Expression) types.Type {
	switch e := expr.(type) {
	case *ast.IntLit:
		return types.IntType
	case *ast.FloatLit:
		return types.FloatType
	case *ast.StringLit:
		return types.StringType
	case *ast.Ident:
		return tc.inferIdent(e.Pos, e.Name)
	case *ast.Lambda:
		return tc.inferLambda(e)
	case *ast.App:
		return tc.inferApp(e)
	case *ast.Let:
		return tc.inferLet(e)
	case *ast.Record:
		return tc.inferRecord(e)
	case *ast.Selector:
		return tc.inferSelector(e)
	case *ast.Variant:
		return tc.inferVariant(e)
	case *ast.Match:
		return tc.inferMatch(e)
	case *ast.Annotated:
		return tc.inferAnnotated(e)
	case *ast.TypeBindings:
		return tc.inferTypeBindings(e)
	default:
		return tc.error(expr.Span(), fmt.Errorf("unhandled expression %T", expr))
	}
}

func (tc *Typecheck) inferIdent(span pos.Span, name symbols.Symbol) types.Type {
	if t, ok := tc.scope.lookupVar(name); ok {
		return types.Instantiate(tc.subst, t)
	}
	if t, ok := tc.env.FindType(name); ok {
		return types.Instantiate(tc.subst, t)
	}
	return tc.error(span, &UndefinedVariableError{Name: name})
}

func (tc *Typecheck) inferLambda(e *ast.Lambda) types.Type {
	saved := tc.scope
	args := make([]types.Type, len(e.Args))
	for i, name := range e.Args {
		v := tc.subst.Fresh()
		args[i] = v
		tc.scope = tc.scope.bindVar(name, v)
	}
	body := tc.infer(e.Body)
	tc.scope = saved
	return types.NewFunctionN(args, body)
}

func (tc *Typecheck) inferApp(e *ast.App) types.Type {
	fnType := tc.infer(e.Func)
	for _, arg := range e.Args {
		argType := tc.infer(arg)
		fnType = types.Instantiate(tc.subst, tc.subst.Resolve(fnType))
		if fn, ok := fnType.(*types.Function); ok {
			tc.unify(arg.Span(), fn.Arg, argType)
			fnType = fn.Ret
			continue
		}
		ret := tc.subst.Fresh()
		if r := tc.unify(arg.Span(), types.NewFunction(argType, ret), fnType); r == types.ErrorType {
			return types.ErrorType
		}
		fnType = ret
	}
	return fnType
}

func (tc *Typecheck) inferRecord(e *ast.Record) types.Type {
	fields := make([]types.Field, 0, len(e.Fields))
	recordMeta := &meta.Metadata{}
	for _, f := range e.Fields {
		var ft types.Type
		if f.Value != nil {
			ft = tc.infer(f.Value)
		} else {
			// Punned field: `{ x }` reads the binding `x`.
			ft = tc.inferIdent(f.Pos, f.Name)
		}
		fields = append(fields, types.Field{Name: f.Name, Type: ft})

		// Propagate the field source's metadata into the record, so the
		// record containing this field can display its documentation.
		if fm := tc.fieldMetadata(f); fm.HasData() {
			if recordMeta.Module == nil {
				recordMeta.Module = make(map[string]*meta.Metadata)
			}
			recordMeta.Module[f.Name.Name()] = fm
		}
	}
	t := types.ClosedRecord(fields)
	if e.Typ != nil {
		tc.unify(e.Pos, e.Typ, t)
		t = tc.subst.Apply(t)
	} else {
		// An unannotated literal whose field set matches a registered
		// record takes that declared type, alias identity included.
		names := make([]symbols.Symbol, len(e.Fields))
		for i, f := range e.Fields {
			names[i] = f.Name
		}
		if rec, _, ok := tc.env.FindRecord(names); ok {
			rec = types.Instantiate(tc.subst, rec)
			tc.unify(e.Pos, rec, t)
			t = tc.subst.Apply(rec)
		}
	}
	if recordMeta.HasData() {
		tc.lastRecordMeta = recordMeta
	}
	return t
}

// fieldMetadata finds the metadata already attached to the binding a
// record field is constructed from: the punned name, or the source
// identifier when the field value is a plain reference.
func (tc *Typecheck) fieldMetadata(f ast.RecordField) *meta.Metadata {
	name := f.Name
	if id, ok := f.Value.(*ast.Ident); ok {
		name = id.Name
	}
	if m, ok := tc.metadata[name.Name()]; ok {
		return m
	}
	return &meta.Metadata{}
}

func (tc *Typecheck) inferSelector(e *ast.Selector) types.Type {
	exprType := tc.infer(e.Expr)
	exprType = types.Instantiate(tc.subst, tc.subst.Resolve(exprType))
	if structural, err := tc.unifier.RemoveAliases(exprType); err == nil {
		exprType = structural
	}

	// Fast path: the shape is already known.
	if fields, ok := types.RowFields(tc.subst, exprType); ok {
		for _, f := range fields {
			if f.Name.Eq(e.Field) {
				return f.Type
			}
		}
	}

	// Otherwise constrain the type to an open row containing exactly the
	// accessed field, deferring the full shape.
	fieldType := tc.subst.Fresh()
	expected := types.SingletonRecord(e.Field, fieldType, tc.subst.FreshRow())
	if r := tc.unify(e.Pos, expected, exprType); r == types.ErrorType {
		return types.ErrorType
	}
	return fieldType
}

func (tc *Typecheck) inferVariant(e *ast.Variant) types.Type {
	ctorType, ok := tc.scope.lookupVar(e.Tag)
	if !ok {
		var found bool
		ctorType, found = tc.env.FindType(e.Tag)
		if !found {
			return tc.error(e.Pos, &UndefinedConstructorError{Tag: e.Tag})
		}
	}
	fnType := types.Instantiate(tc.subst, ctorType)
	for _, arg := range e.Args {
		argType := tc.infer(arg)
		fnType = types.Instantiate(tc.subst, tc.subst.Resolve(fnType))
		if fn, ok := fnType.(*types.Function); ok {
			tc.unify(arg.Span(), fn.Arg, argType)
			fnType = fn.Ret
			continue
		}
		ret := tc.subst.Fresh()
		if r := tc.unify(arg.Span(), types.NewFunction(argType, ret), fnType); r == types.ErrorType {
			return types.ErrorType
		}
		fnType = ret
	}
	return fnType
}

func (tc *Typecheck) inferMatch(e *ast.Match) types.Type {
	scrutinee := tc.infer(e.Expr)
	result := tc.subst.Fresh()
	for _, alt := range e.Alts {
		saved := tc.scope
		tc.checkPattern(alt.Pattern, scrutinee)
		altType := tc.infer(alt.Expr)
		tc.unify(alt.Expr.Span(), result, altType)
		tc.scope = saved
	}
	return tc.subst.Resolve(result)
}

func (tc *Typecheck) inferAnnotated(e *ast.Annotated) types.Type {
	// Check the body against the rigid (skolemized) annotation so the
	// quantified variables cannot leak bindings, then hand back the
	// annotation as written.
	tc.kindcheckAnnotation(e.Pos, e.Typ)
	expected := types.Skolemize(tc.subst, e.Typ)
	actual := tc.infer(e.Expr)
	tc.unify(e.Pos, expected, actual)
	return e.Typ
}

func (tc *Typecheck) checkPattern(p ast.Pattern, matchType types.Type) {
	switch pt := p.(type) {
	case *ast.IdentPat:
		tc.scope = tc.scope.bindVar(pt.Name, matchType)
	case *ast.LiteralPat:
		litType := tc.infer(pt.Expr)
		tc.unify(pt.Pos, matchType, litType)
	case *ast.RecordPat:
		fields := make([]types.Field, len(pt.Fields))
		elemTypes := make([]types.Type, len(pt.Fields))
		for i, f := range pt.Fields {
			v := tc.subst.Fresh()
			elemTypes[i] = v
			fields[i] = types.Field{Name: f.Name, Type: v}
		}
		expected := types.NewRecord(types.NewExtendRow(fields, tc.subst.FreshRow()))
		tc.unify(pt.Pos, expected, matchType)
		for i, f := range pt.Fields {
			if f.Pattern != nil {
				tc.checkPattern(f.Pattern, elemTypes[i])
			} else {
				tc.scope = tc.scope.bindVar(f.Name, elemTypes[i])
			}
		}
	case *ast.CtorPat:
		ctorType, ok := tc.scope.lookupVar(pt.Tag)
		if !ok {
			var found bool
			ctorType, found = tc.env.FindType(pt.Tag)
			if !found {
				tc.error(pt.Pos, &UndefinedConstructorError{Tag: pt.Tag})
				return
			}
		}
		fnType := types.Instantiate(tc.subst, ctorType)
		for _, argPat := range pt.Args {
			fnType = types.Instantiate(tc.subst, tc.subst.Resolve(fnType))
			if fn, ok := fnType.(*types.Function); ok {
				tc.checkPattern(argPat, fn.Arg)
				fnType = fn.Ret
				continue
			}
			arg := tc.subst.Fresh()
			ret := tc.subst.Fresh()
			if r := tc.unify(pt.Pos, types.NewFunction(arg, ret), fnType); r == types.ErrorType {
				return
			}
			tc.checkPattern(argPat, arg)
			fnType = ret
		}
		tc.unify(pt.Pos, matchType, fnType)
	}
}
