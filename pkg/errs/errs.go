// Package errs defines the error taxonomy shared across the simulator:
// validation failures at a boundary, state-invariant refusals inside a
// mutator, transient I/O hiccups, resource-unavailability at startup or
// during a tick, and fatal conditions that must reach the orchestrator.
package errs

import "fmt"

// Kind classifies an error for callers that need to branch on it without
// string matching.
type Kind int

const (
	Validation Kind = iota
	State
	Transient
	Resource
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case State:
		return "state"
	case Transient:
		return "transient"
	case Resource:
		return "resource"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so it can be inspected with
// errors.As without exposing the original error's concrete type.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, op, msg string, err error) *Error {
	return &Error{Kind: k, Op: op, Message: msg, Err: err}
}

func Validationf(op, format string, args ...any) *Error {
	return newErr(Validation, op, fmt.Sprintf(format, args...), nil)
}

func Statef(op, format string, args ...any) *Error {
	return newErr(State, op, fmt.Sprintf(format, args...), nil)
}

func Transientf(op, format string, args ...any) *Error {
	return newErr(Transient, op, fmt.Sprintf(format, args...), nil)
}

func Resourcef(op, format string, args ...any) *Error {
	return newErr(Resource, op, fmt.Sprintf(format, args...), nil)
}

func Fatalf(op, format string, args ...any) *Error {
	return newErr(Fatal, op, fmt.Sprintf(format, args...), nil)
}

// Is reports whether err carries the given Kind.
func Is(err error, k Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}
