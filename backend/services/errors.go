package services

import "errors"

// ErrorKind is the stable error classification exposed to API clients.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindForbidden  ErrorKind = "forbidden"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func ErrValidation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func ErrForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func ErrNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func ErrConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// KindOf classifies any error; unrecognized errors are internal.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
