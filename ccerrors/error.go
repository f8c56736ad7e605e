// Package ccerrors provides the structured error type shared by every
// package outside the pure evaluator: host, capability, governance, and
// orchestrator all wrap failures in Error so a caller can inspect the
// closed taxonomy (eval.ErrorKind) without losing the underlying cause
// chain, modeled on the teacher's runtime/agent/toolerrors.ToolError.
package ccerrors

import (
	"errors"
	"fmt"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
)

// Error is a structured failure carrying a closed ErrorKind, a
// human-readable message, and an optional cause for errors.Is/As chains.
type Error struct {
	Kind    eval.ErrorKind
	Message string
	Cause   error
}

// New constructs an Error with no cause.
func New(kind eval.ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf formats message according to a format specifier.
func Newf(kind eval.ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of kind that wraps cause, reusing cause's
// message when none is supplied.
func Wrap(kind eval.ErrorKind, cause error, message string) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + ": " + e.Message
}

// Unwrap supports errors.Is/As over the cause chain.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, ccerrors.New(eval.ErrTimeout, "")) without
// caring about Message.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// FromEvalError converts an evaluator error into an Error, preserving its
// kind and message (the span is evaluator-internal and not carried past
// this boundary).
func FromEvalError(ee *eval.EvalError) *Error {
	if ee == nil {
		return nil
	}
	return &Error{Kind: ee.Kind, Message: ee.Message}
}

// ToEvalError converts an Error back into the evaluator's own error type,
// used when the Orchestrator re-enters Evaluate with a structured error
// value for a failed host call (spec.md §4.8, "resume with value or
// error"). The resulting EvalError carries a zero Span since the
// originating expression is no longer in scope at this boundary.
func (e *Error) ToEvalError() *eval.EvalError {
	return &eval.EvalError{Kind: e.Kind, Message: e.Message}
}
