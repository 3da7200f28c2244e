package checker

import (
	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/kinds"
	"github.com/lumenlang/lumen/internal/pos"
	"github.com/lumenlang/lumen/internal/symbols"
	"github.com/lumenlang/lumen/internal/types"
)

// kindChecker infers kinds for one type-binding group before any type
// inference touches it: every constructor must be applied with a
// consistent arity and shape. Failures are collected per declaration and
// poisoned with Hole so the remaining declarations still get checked.
type kindChecker struct {
	tc      *Typecheck
	unifier *kinds.Unifier
	// paramKinds maps in-scope type parameters and group members to
	// their (possibly still variable) kinds.
	paramKinds map[string]kinds.Kind
}

// kindcheckGroup infers the kinds of a group of mutually recursive type
// alias declarations and returns their resolved AliasData.
func (tc *Typecheck) kindcheckGroup(bindings []*ast.TypeBinding) []*types.AliasData {
	kc := &kindChecker{
		tc:         tc,
		unifier:    kinds.NewUnifier(),
		paramKinds: make(map[string]kinds.Kind),
	}

	// Give every group member and every parameter a kind variable up
	// front so members can refer to each other.
	paramVars := make([][]kinds.KVar, len(bindings))
	for i, b := range bindings {
		vars := make([]kinds.KVar, len(b.Params))
		var selfKind kinds.Kind = kinds.Type
		for j := len(b.Params) - 1; j >= 0; j-- {
			v := kc.unifier.Fresh()
			vars[j] = v
			selfKind = kinds.KArrow{Arg: v, Ret: selfKind}
		}
		paramVars[i] = vars
		kc.paramKinds[b.Name.Name()] = selfKind
	}

	datas := make([]*types.AliasData, len(bindings))
	for i, b := range bindings {
		for j, p := range b.Params {
			kc.paramKinds[p.Name()] = paramVars[i][j]
		}
		if b.Typ != nil {
			got := kc.kindOf(b.Pos, b.Typ)
			if err := kc.unifier.Unify(kinds.Type, got); err != nil {
				tc.error(b.Pos, err)
			}
		}
		for _, p := range b.Params {
			delete(kc.paramKinds, p.Name())
		}
	}

	// Defaulting: leftover kind variables become Type.
	for i, b := range bindings {
		params := make([]*types.Generic, len(b.Params))
		for j, p := range b.Params {
			params[j] = &types.Generic{
				Name:    p,
				KindVal: kc.unifier.Subst.Default(paramVars[i][j]),
			}
		}
		var rhs types.Type
		if b.Typ != nil {
			rhs = generalizeParams(b.Typ, b.Params)
		}
		datas[i] = &types.AliasData{Name: b.Name, Params: params, Typ: rhs}
	}
	return datas
}

// kindcheckAnnotation validates a type annotation's constructor
// applications, reporting shape errors without stopping the type pass.
func (tc *Typecheck) kindcheckAnnotation(span pos.Span, t types.Type) {
	kc := &kindChecker{
		tc:         tc,
		unifier:    kinds.NewUnifier(),
		paramKinds: make(map[string]kinds.Kind),
	}
	kc.kindOf(span, t)
}

func (kc *kindChecker) kindOf(span pos.Span, t types.Type) kinds.Kind {
	switch tt := t.(type) {
	case *types.Builtin:
		return tt.Kind()
	case *types.Var:
		return tt.Kind()
	case *types.Skolem:
		return tt.Kind()
	case *types.Generic:
		if k, ok := kc.paramKinds[tt.Name.Name()]; ok {
			return k
		}
		return tt.Kind()
	case *types.Ident:
		if k, ok := kc.paramKinds[tt.Name.Name()]; ok {
			return k
		}
		if data, ok := kc.tc.FindTypeInfo(tt.Name); ok {
			return data.Kind()
		}
		if k, ok := kc.tc.env.FindKind(tt.Name); ok {
			return k
		}
		kc.tc.error(span, &types.UndefinedTypeError{Name: tt.Name})
		return kinds.Hole
	case *types.Alias:
		return kc.applied(span, tt.Data.Kind(), tt.Args)
	case *types.App:
		return kc.applied(span, kc.kindOf(span, tt.Ctor), tt.Args)
	case *types.Function:
		kc.expect(span, kinds.Type, kc.kindOf(span, tt.Arg))
		kc.expect(span, kinds.Type, kc.kindOf(span, tt.Ret))
		return kinds.Type
	case *types.Record:
		kc.expect(span, kinds.Row, kc.kindOf(span, tt.Row))
		return kinds.Type
	case *types.Variant:
		kc.expect(span, kinds.Row, kc.kindOf(span, tt.Row))
		return kinds.Type
	case *types.Effect:
		kc.expect(span, kinds.Row, kc.kindOf(span, tt.Row))
		return kinds.Type
	case *types.ExtendRow:
		for _, f := range tt.Fields {
			kc.expect(span, kinds.Type, kc.kindOf(span, f.Type))
		}
		kc.expect(span, kinds.Row, kc.kindOf(span, tt.Rest))
		return kinds.Row
	case *types.EmptyRow:
		return kinds.Row
	case *types.Forall:
		for _, v := range tt.Vars {
			kc.paramKinds[v.Name.Name()] = v.Kind()
		}
		k := kc.kindOf(span, tt.Body)
		for _, v := range tt.Vars {
			delete(kc.paramKinds, v.Name.Name())
		}
		return k
	default:
		return kinds.Type
	}
}

// applied checks a constructor kind against its argument kinds, yielding
// the result kind. An over-applied or mis-shaped constructor is a
// collected kind error and the result poisons to Hole.
func (kc *kindChecker) applied(span pos.Span, ctorKind kinds.Kind, args []types.Type) kinds.Kind {
	result := ctorKind
	for _, arg := range args {
		argKind := kc.kindOf(span, arg)
		ret := kc.unifier.Fresh()
		if err := kc.unifier.Unify(result, kinds.KArrow{Arg: argKind, Ret: ret}); err != nil {
			kc.tc.error(span, err)
			return kinds.Hole
		}
		result = kc.unifier.Subst.Apply(ret)
	}
	return result
}

func (kc *kindChecker) expect(span pos.Span, want, got kinds.Kind) {
	if err := kc.unifier.Unify(want, got); err != nil {
		kc.tc.error(span, err)
	}
}

// generalizeParams rewrites parameter references (which the parser
// delivers as Idents) into Generic nodes so alias expansion can
// substitute them positionally.
func generalizeParams(t types.Type, params []symbols.Symbol) types.Type {
	if len(params) == 0 {
		return t
	}
	m := make(map[symbols.Symbol]types.Type, len(params))
	for _, p := range params {
		m[p] = &types.Generic{Name: p}
	}
	return replaceIdents(t, m)
}

func replaceIdents(t types.Type, m map[symbols.Symbol]types.Type) types.Type {
	if t.Flags()&types.HasIdents == 0 {
		return t
	}
	switch tt := t.(type) {
	case *types.Ident:
		if r, ok := m[tt.Name]; ok {
			return r
		}
		return tt
	case *types.App:
		args := make([]types.Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = replaceIdents(a, m)
		}
		return types.NewApp(replaceIdents(tt.Ctor, m), args)
	case *types.Function:
		return types.NewFunction(replaceIdents(tt.Arg, m), replaceIdents(tt.Ret, m))
	case *types.Record:
		return types.NewRecord(replaceIdents(tt.Row, m))
	case *types.Variant:
		return types.NewVariant(replaceIdents(tt.Row, m))
	case *types.Effect:
		return types.NewEffect(replaceIdents(tt.Row, m))
	case *types.ExtendRow:
		fields := make([]types.Field, len(tt.Fields))
		for i, f := range tt.Fields {
			fields[i] = types.Field{Name: f.Name, Type: replaceIdents(f.Type, m)}
		}
		return types.NewExtendRow(fields, replaceIdents(tt.Rest, m))
	case *types.Forall:
		return types.NewForall(tt.Vars, replaceIdents(tt.Body, m))
	default:
		return t
	}
}
