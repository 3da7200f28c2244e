package checker

import (
	"fmt"
	"strings"

	"github.com/lumenlang/lumen/internal/pos"
	"github.com/lumenlang/lumen/internal/symbols"
)

// Error is one collected checking-time problem, tagged with the source
// span it was detected at. Checking never stops at the first error:
// callers want every mistake reported in one pass.
type Error struct {
	Span pos.Span
	Err  error
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// Errors is the batch of problems found by one checking pass.
type Errors []Error

func (es Errors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}

// HasErrors reports whether any problem was collected.
func (es Errors) HasErrors() bool { return len(es) > 0 }

// UndefinedVariableError reports a reference to a binding the scope and
// environment cannot resolve.
type UndefinedVariableError struct {
	Name symbols.Symbol
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable `%s`", e.Name)
}

// UndefinedConstructorError reports a variant constructor that is not in
// scope.
type UndefinedConstructorError struct {
	Tag symbols.Symbol
}

func (e *UndefinedConstructorError) Error() string {
	return fmt.Sprintf("undefined constructor `%s`", e.Tag)
}

// InvalidRecursionError reports a recursive binding whose value would be
// read before it has finished being constructed.
type InvalidRecursionError struct {
	Name symbols.Symbol
}

func (e *InvalidRecursionError) Error() string {
	return fmt.Sprintf("`%s` may not be used recursively here", e.Name)
}

// NotConstructorError reports a recursive binding whose final expression
// does not construct a value (lambda, record or variant), so evaluating
// it eagerly would read uninitialized storage.
type NotConstructorError struct {
	Name symbols.Symbol
}

func (e *NotConstructorError) Error() string {
	return fmt.Sprintf("the body of the recursive binding `%s` must end in a lambda, record or variant construction", e.Name)
}
