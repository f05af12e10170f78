// Package modelerr defines the recoverable failures reported by the list
// model and its collaborators.
//
// Every failure is a sentinel wrapped in an *Error carrying the operation,
// the offending role and/or index. Callers match on the sentinel with
// errors.Is. None of these conditions is fatal: the operation that reports
// one has left the model exactly as it found it.
package modelerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfRange reports an index or role id outside its valid bounds.
	ErrOutOfRange = errors.New("out of range")
	// ErrDuplicateRole reports a role name collision on add or rename.
	ErrDuplicateRole = errors.New("duplicate role")
	// ErrMissingAccessor reports a role registered without a getter, or a
	// write through a role that has no setter.
	ErrMissingAccessor = errors.New("missing accessor")
	// ErrMissingConstructor reports an append with no constructor registered.
	ErrMissingConstructor = errors.New("missing constructor")
	// ErrConstructionFailure reports a constructor invocation that failed.
	ErrConstructionFailure = errors.New("construction failure")
	// ErrReentrant reports a mutation started while another one is running.
	ErrReentrant = errors.New("reentrant mutation")
	// ErrClosed reports use of a model after Close.
	ErrClosed = errors.New("model closed")
)

// NoIndex marks an Error that does not refer to a row or role position.
const NoIndex = -1

// Error is a sentinel failure annotated with where it happened.
type Error struct {
	Op    string // entry point, e.g. "append" or "setrole"
	Role  string // role name, if any
	Index int    // row index or role id, NoIndex when not applicable
	Err   error  // sentinel, possibly wrapping a collaborator error
}

// New builds an *Error with no index.
func New(op string, err error) *Error {
	return &Error{Op: op, Index: NoIndex, Err: err}
}

// AtIndex builds an *Error for a row index or role id.
func AtIndex(op string, index int, err error) *Error {
	return &Error{Op: op, Index: index, Err: err}
}

// ForRole builds an *Error naming a role.
func ForRole(op, role string, err error) *Error {
	return &Error{Op: op, Role: role, Index: NoIndex, Err: err}
}

// Wrap joins a sentinel with the collaborator error that caused it, so both
// match with errors.Is.
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Role != "" {
		fmt.Fprintf(&b, " role %q", e.Role)
	}
	if e.Index != NoIndex {
		fmt.Fprintf(&b, " [%d]", e.Index)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
