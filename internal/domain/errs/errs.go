// Package errs defines the error kinds shared by the annotation engine.
//
// Kinds are sentinel values; callers match them with errors.Is. Wrap and New
// attach the operation that failed so log lines carry where it happened.
package errs

import (
	"errors"
	"strings"
)

// Sentinel kinds.
var (
	// ErrValidation marks malformed input rejected before touching state.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence marks a failed remote save. Local state is already applied.
	ErrPersistence = errors.New("persistence failed")
	// ErrRender marks a failed clip render. The selection is preserved.
	ErrRender = errors.New("render failed")
	// ErrNotFound marks an unknown index, game or session.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation issued in the wrong editor state.
	ErrConflict = errors.New("conflict")
	// ErrClosed marks use of a torn-down session or coordinator.
	ErrClosed = errors.New("closed")
)

// Error carries an operation name, a kind and an optional cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		if e.Kind != nil {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New returns an error of the given kind for op.
func New(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap returns an error of the given kind for op, wrapping cause.
func Wrap(op string, kind, cause error) error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// Validation is shorthand for a validation error with a message.
func Validation(op, msg string) error {
	return &Error{Op: op, Kind: ErrValidation, Err: errors.New(msg)}
}

// KindOf returns the first known kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrClosed, ErrPersistence, ErrRender} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
