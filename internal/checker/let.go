package checker

import (
	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/meta"
	"github.com/lumenlang/lumen/internal/types"
)

// inferLet checks one binding group. Recursive groups run the full state
// machine: Collect (every binding's declared or fresh type enters scope
// before any body is checked, so the members can refer to each other) →
// Check-bodies → Recursion-check → Generalize. Non-recursive groups are
// sequential: each binding is checked and generalized before the next
// one can see it.
func (tc *Typecheck) inferLet(e *ast.Let) types.Type {
	outer := tc.scope
	escaping := tc.scopeFreeVars(outer)

	if e.Rec {
		// Collect.
		bindingTypes := make([]types.Type, len(e.Bindings))
		for i, b := range e.Bindings {
			if b.Typ != nil {
				bindingTypes[i] = b.Typ
			} else {
				bindingTypes[i] = tc.subst.Fresh()
			}
			tc.scope = tc.scope.bindVar(b.Name, bindingTypes[i])
		}
		// Check bodies.
		for i, b := range e.Bindings {
			tc.checkBindingBody(b, bindingTypes[i])
		}
		// Recursion check.
		tc.recursionCheck(e)
		// Generalize.
		for i, b := range e.Bindings {
			gen := types.Generalize(tc.subst, tc.interner, bindingTypes[i], escaping)
			tc.scope = tc.scope.bindVar(b.Name, gen)
			tc.attachBindingMetadata(b)
		}
	} else {
		for _, b := range e.Bindings {
			var expected types.Type
			if b.Typ != nil {
				expected = b.Typ
			} else {
				expected = tc.subst.Fresh()
			}
			tc.checkBindingBody(b, expected)
			gen := types.Generalize(tc.subst, tc.interner, expected, escaping)
			tc.scope = tc.scope.bindVar(b.Name, gen)
			tc.attachBindingMetadata(b)
		}
	}

	result := tc.infer(e.Body)
	tc.scope = outer
	return result
}

// checkBindingBody infers the binding's body (desugaring argument lists
// into a lambda) and unifies it against the collected scope type. A
// declared forall is made rigid for the check so its variables cannot be
// bound to anything concrete.
func (tc *Typecheck) checkBindingBody(b *ast.Binding, expected types.Type) {
	body := b.Expr
	if len(b.Args) > 0 {
		body = &ast.Lambda{Pos: b.Pos, Args: b.Args, Body: b.Expr}
	}
	if b.Typ != nil {
		tc.kindcheckAnnotation(b.Pos, b.Typ)
	}
	tc.lastRecordMeta = nil
	actual := tc.infer(body)
	if expected.Flags()&types.HasForall != 0 {
		tc.unify(b.Pos, types.Skolemize(tc.subst, expected), actual)
		return
	}
	tc.unify(b.Pos, expected, actual)
}

// attachBindingMetadata merges a binding's own doc comment/attributes
// with whatever a record construction in its body contributed, and
// records argument names for display.
func (tc *Typecheck) attachBindingMetadata(b *ast.Binding) {
	m := &meta.Metadata{}
	if b.Metadata != nil {
		m.Merge(b.Metadata)
	}
	if tc.lastRecordMeta != nil {
		m.Merge(tc.lastRecordMeta)
		tc.lastRecordMeta = nil
	}
	if len(m.Args) == 0 && len(b.Args) > 0 {
		args := make([]string, len(b.Args))
		for i, a := range b.Args {
			args[i] = a.Name()
		}
		m.Args = args
	}
	tc.metadata.attach(b.Name, m)
}

// scopeFreeVars collects the unification variables that appear in the
// enclosing scope's bindings. These must not be generalized: they belong
// to an outer, still-unfinished inference.
func (tc *Typecheck) scopeFreeVars(s scope) []*types.Var {
	var acc []*types.Var
	itr := s.vars.Iterator()
	for !itr.Done() {
		_, t, _ := itr.Next()
		if t.Flags()&types.HasVariables != 0 {
			acc = types.FreeVars(tc.subst, t, acc)
		}
	}
	return acc
}

// inferTypeBindings kind-checks a group of (possibly mutually recursive)
// type alias declarations, brings them into scope, and checks the body.
func (tc *Typecheck) inferTypeBindings(e *ast.TypeBindings) types.Type {
	outer := tc.scope
	datas := tc.kindcheckGroup(e.Bindings)
	for i, b := range e.Bindings {
		tc.scope = tc.scope.bindTypeInfo(b.Name, datas[i])
	}
	result := tc.infer(e.Body)
	tc.scope = outer
	return result
}
