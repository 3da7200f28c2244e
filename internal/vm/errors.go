package vm

import (
	"errors"
	"fmt"
)

// ErrDead is returned by operations on a thread that has been shut down.
var ErrDead = errors.New("vm: thread is dead")

// UndefinedBindingError reports a global lookup that found nothing.
type UndefinedBindingError struct {
	Name string
}

func (e *UndefinedBindingError) Error() string {
	return fmt.Sprintf("binding `%s` does not exist", e.Name)
}

// UndefinedFieldError reports a record field access that found nothing.
type UndefinedFieldError struct {
	Field string
}

func (e *UndefinedFieldError) Error() string {
	return fmt.Sprintf("field `%s` does not exist", e.Field)
}

// TypeAlreadyExistsError reports a duplicate type registration.
type TypeAlreadyExistsError struct {
	Name string
}

func (e *TypeAlreadyExistsError) Error() string {
	return fmt.Sprintf("type `%s` already exists", e.Name)
}

// GlobalAlreadyExistsError reports a duplicate global definition.
// Redefinition is never a silent overwrite.
type GlobalAlreadyExistsError struct {
	Name string
}

func (e *GlobalAlreadyExistsError) Error() string {
	return fmt.Sprintf("global `%s` already exists", e.Name)
}

// MetadataDoesNotExistError reports a metadata lookup for a symbol that
// has none attached.
type MetadataDoesNotExistError struct {
	Name string
}

func (e *MetadataDoesNotExistError) Error() string {
	return fmt.Sprintf("no metadata exists for `%s`", e.Name)
}

// WrongTypeError reports a value whose runtime tag does not match what
// an operation required.
type WrongTypeError struct {
	Expected string
	Actual   string
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("expected a value of type `%s` but found `%s`", e.Expected, e.Actual)
}

// OutOfMemoryError reports that a full collection could not free enough
// space to satisfy an allocation under the configured ceiling.
type OutOfMemoryError struct {
	Limit  uint64
	Needed uint64
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("out of memory: needed %d bytes but the limit is %d", e.Needed, e.Limit)
}

// StackOverflowError reports that a call would exceed the configured
// frame depth. It is a recoverable VM error, not a native fault: the
// thread's globals and heap remain valid.
type StackOverflowError struct {
	Limit int
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("stack overflow: call depth limit is %d frames", e.Limit)
}

// MessageError carries a plain error message.
type MessageError struct {
	Message string
}

func (e *MessageError) Error() string { return e.Message }

// PanicError is raised when a foreign function fails. It aborts the
// running call chain; the thread unwinds and stays usable.
type PanicError struct {
	Message string
	Thread  string // thread id, for hosts running several threads
}

func (e *PanicError) Error() string {
	if e.Thread != "" {
		return fmt.Sprintf("panic [thread %s]: %s", e.Thread, e.Message)
	}
	return "panic: " + e.Message
}
