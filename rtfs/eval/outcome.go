// Package eval implements the pure, sandboxed RTFS evaluator (spec.md §4.3).
// The only effect is the `call` special form, which suspends evaluation and
// surfaces a structured HostCall; the Orchestrator resumes evaluation with
// the host's result. Between suspensions, evaluation is strictly
// deterministic: no I/O, no clocks, no randomness, no global mutable state
// (spec.md §4.3, "Purity").
package eval

import (
	"fmt"

	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// ErrorKind is the closed error taxonomy of spec.md §7.
type ErrorKind string

const (
	ErrParse             ErrorKind = "ParseError"
	ErrType              ErrorKind = "TypeError"
	ErrUnknownSymbol     ErrorKind = "UnknownSymbol"
	ErrUnknownCapability ErrorKind = "UnknownCapability"
	ErrSchema            ErrorKind = "SchemaError"
	ErrSecurityViolation ErrorKind = "SecurityViolation"
	ErrGovernanceDenied  ErrorKind = "GovernanceDenied"
	ErrQuotaExceeded     ErrorKind = "QuotaExceeded"
	ErrTimeout           ErrorKind = "TimeoutError"
	ErrRateLimitExceeded ErrorKind = "RateLimitExceeded"
	ErrCircuitOpen       ErrorKind = "CircuitOpen"
	ErrCapability        ErrorKind = "CapabilityError"
	ErrIntegrity         ErrorKind = "IntegrityError"
	ErrCancelled         ErrorKind = "Cancelled"
	ErrInternal          ErrorKind = "Internal"
)

// EvalError is a structured evaluator failure: kind, message, and the
// source span of the expression that produced it (spec.md §7).
type EvalError struct {
	Kind    ErrorKind
	Message string
	Span    value.Span
}

func (e *EvalError) Error() string { return string(e.Kind) + ": " + e.Message }

func newErr(kind ErrorKind, span value.Span, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Message: fmt.Sprintf(format, args...), Span: span}
}

// HostCall is the structured request surfaced when evaluation reaches a
// `call` special form (spec.md §3, "HostCall"). CorrelationID makes the
// call idempotent under replay: a previously completed call with the same
// id returns its recorded result instead of re-dispatching.
type HostCall struct {
	CapabilityID  string
	Args          []value.Value
	Metadata      *value.Map
	CorrelationID string
}

// Status discriminates the three possible outcomes of Evaluate (spec.md
// §4.3, "Outcome").
type Status int

const (
	StatusComplete Status = iota
	StatusRequiresHost
	StatusError
)

// Outcome is the result of evaluating an expression: exactly one of
// Complete(value), RequiresHost(call, resumption key), or Error.
type Outcome struct {
	Status Status

	Value Value // for StatusComplete

	Call          HostCall // for StatusRequiresHost
	ResumptionKey string   // for StatusRequiresHost

	Err *EvalError // for StatusError
}

// Value is a re-export alias so callers of this package do not need a
// second import for the common case of reading Outcome.Value.
type Value = value.Value

func complete(v Value) Outcome { return Outcome{Status: StatusComplete, Value: v} }

func requiresHost(call HostCall, key string) Outcome {
	return Outcome{Status: StatusRequiresHost, Call: call, ResumptionKey: key}
}

func errOutcome(err *EvalError) Outcome { return Outcome{Status: StatusError, Err: err} }
