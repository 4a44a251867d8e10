// Package apperr defines the typed error taxonomy shared by the services.
// Validation and invariant violations are returned as *Error values carrying
// a Kind; the HTTP layer maps kinds to status codes and never inspects
// message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a service error.
type Kind string

const (
	NotFound        Kind = "not_found"
	Unauthorized    Kind = "unauthorized"
	InvalidArgument Kind = "invalid_argument"
	Conflict        Kind = "conflict"
	InvalidState    Kind = "invalid_state"
	Validation      Kind = "validation"
	Internal        Kind = "internal"
)

// Error is a classified service error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors report
// Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether the error chain contains an error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
