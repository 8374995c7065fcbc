// Package apperr defines the failure kinds returned by the expense and budget services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can render an accurate response.
type Kind int

// Failure kinds.
const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindInvalidState
	KindConflict
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is matching. Any *Error matches the sentinel of its kind.
var (
	ErrValidation      = &Error{Kind: KindValidation, Msg: "validation failed"}
	ErrNotFound        = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrForbidden       = &Error{Kind: KindForbidden, Msg: "forbidden"}
	ErrInvalidState    = &Error{Kind: KindInvalidState, Msg: "invalid state"}
	ErrConflict        = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Msg: "unauthenticated"}
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input.
func Validation(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

// NotFound reports a missing referenced entity.
func NotFound(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

// Forbidden reports a permission denial.
func Forbidden(format string, args ...any) error {
	return newf(KindForbidden, format, args...)
}

// InvalidState reports an illegal transition from the current state.
func InvalidState(format string, args ...any) error {
	return newf(KindInvalidState, format, args...)
}

// Conflict reports a violated structural constraint.
func Conflict(format string, args ...any) error {
	return newf(KindConflict, format, args...)
}

// Unauthenticated reports a request without a resolvable principal.
func Unauthenticated(format string, args ...any) error {
	return newf(KindUnauthenticated, format, args...)
}

// Wrap classifies err under kind with a message.
func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
