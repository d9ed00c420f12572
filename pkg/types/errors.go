package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure the way the API server's HTTP layer
// needs to see it, independent of where in the stack it originated.
type ErrorKind int

const (
	ErrWrongFormat ErrorKind = iota
	ErrConflict
	ErrNotFound
	ErrInvalidReference
	ErrBackend
	ErrUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case ErrWrongFormat:
		return "WrongFormat"
	case ErrConflict:
		return "Conflict"
	case ErrNotFound:
		return "NotFound"
	case ErrInvalidReference:
		return "InvalidReference"
	case ErrBackend:
		return "BackendError"
	case ErrUnexpected:
		return "UnexpectedError"
	default:
		return "Unknown"
	}
}

// Error is a kinded error carrying a human-readable message. Stores,
// caches, and controllers return these so the API layer can map them
// to status codes without string-sniffing.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf unwraps err down to a *Error and returns its Kind, defaulting
// to ErrUnexpected for anything else (including nil, which callers
// should not pass).
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrUnexpected
}
