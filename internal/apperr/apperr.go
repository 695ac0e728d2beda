// Package apperr defines the error taxonomy returned across the service boundary.
//
// Every public operation converts failures from storage and policy checks into an *Error
// carrying a Kind and a message that can be shown to a user as-is.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	KindUnknown Kind = iota
	AuthenticationRequired
	NotAuthorized
	InvalidTarget
	DependentDataBlocks
	NotFound
	StorageFailure
)

func (k Kind) String() string {
	switch k {
	case AuthenticationRequired:
		return "authentication_required"
	case NotAuthorized:
		return "not_authorized"
	case InvalidTarget:
		return "invalid_target"
	case DependentDataBlocks:
		return "dependent_data_blocks"
	case NotFound:
		return "not_found"
	case StorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind with an empty message, so
// errors.Is(err, &apperr.Error{Kind: apperr.NotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a storage error, keeping the store's message verbatim.
func Storage(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: StorageFailure, Message: err.Error(), Err: err}
}

// KindOf returns the kind of err, KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
