package checker

import (
	"github.com/lumenlang/lumen/internal/ast"
)

// recursionCheck rejects recursive bindings whose eager evaluation would
// read the value of a group member before it exists. A reference to a
// sibling is fine once it is guarded by a lambda (the read happens at
// some later call), but reading it while the group is still being
// constructed touches uninitialized storage in the VM.
func (tc *Typecheck) recursionCheck(e *ast.Let) {
	group := make(map[string]struct{}, len(e.Bindings))
	for _, b := range e.Bindings {
		group[b.Name.Name()] = struct{}{}
	}

	for _, b := range e.Bindings {
		body := b.Expr
		lazy := len(b.Args) > 0 // argument sugar is a lambda
		before := len(tc.errors)
		tc.checkEagerUses(group, body, lazy)
		if len(tc.errors) > before {
			continue
		}
		if !lazy && !isConstructorExpr(body) {
			tc.error(b.Pos, &NotConstructorError{Name: b.Name})
		}
	}
}

// checkEagerUses walks an expression reporting every group member read
// outside a lambda. The lazy flag sticks: once under a lambda, all
// deeper reads are deferred to call time.
func (tc *Typecheck) checkEagerUses(group map[string]struct{}, expr ast.Expression, lazy bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		if _, in := group[e.Name.Name()]; in && !lazy {
			tc.error(e.Pos, &InvalidRecursionError{Name: e.Name})
		}
	case *ast.Lambda:
		tc.checkEagerUses(group, e.Body, true)
	case *ast.App:
		tc.checkEagerUses(group, e.Func, lazy)
		for _, a := range e.Args {
			tc.checkEagerUses(group, a, lazy)
		}
	case *ast.Let:
		for _, b := range e.Bindings {
			inner := lazy || len(b.Args) > 0
			tc.checkEagerUses(group, b.Expr, inner)
		}
		tc.checkEagerUses(group, e.Body, lazy)
	case *ast.Record:
		for _, f := range e.Fields {
			if f.Value != nil {
				tc.checkEagerUses(group, f.Value, lazy)
			} else if _, in := group[f.Name.Name()]; in && !lazy {
				tc.error(f.Pos, &InvalidRecursionError{Name: f.Name})
			}
		}
	case *ast.Selector:
		tc.checkEagerUses(group, e.Expr, lazy)
	case *ast.Variant:
		for _, a := range e.Args {
			tc.checkEagerUses(group, a, lazy)
		}
	case *ast.Match:
		tc.checkEagerUses(group, e.Expr, lazy)
		for _, alt := range e.Alts {
			tc.checkEagerUses(group, alt.Expr, lazy)
		}
	case *ast.Annotated:
		tc.checkEagerUses(group, e.Expr, lazy)
	case *ast.TypeBindings:
		tc.checkEagerUses(group, e.Body, lazy)
	}
}

// isConstructorExpr reports whether an expression's final value is
// constructed in place: a lambda, record or variant (possibly behind an
// annotation, type bindings or the body of a nested let).
func isConstructorExpr(expr ast.Expression) bool {
	switch e := expr.(type) {
	case *ast.Lambda, *ast.Record, *ast.Variant:
		return true
	case *ast.Annotated:
		return isConstructorExpr(e.Expr)
	case *ast.Let:
		return isConstructorExpr(e.Body)
	case *ast.TypeBindings:
		return isConstructorExpr(e.Body)
	default:
		return false
	}
}
