// Package fault classifies workflow errors so callers can react to the
// kind of failure without parsing messages. Sentinel errors built with New
// compare with errors.Is even after wrapping via fmt.Errorf("%w: ...").
package fault

import "errors"

// Kind is a stable, machine-checkable error category.
type Kind string

const (
	// Authorization: the actor lacks the required role.
	Authorization Kind = "authorization"
	// Validation: the input is malformed or out of range.
	Validation Kind = "validation"
	// State: the operation conflicts with current state (already
	// processed, insufficient balance, nothing to settle).
	State Kind = "state"
	// System: the underlying store failed; not recoverable locally.
	System Kind = "system"
)

// Error is a kinded error. Workflow packages declare sentinels with New and
// wrap them with context at the call site.
type Error struct {
	kind Kind
	msg  string
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

// KindOf walks the error chain and returns the kind of the first *Error
// found. Unclassified errors are System failures.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return System
}
