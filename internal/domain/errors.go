package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the host layer can map them to responses
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION"
	KindConflict            ErrorKind = "CONFLICT"
	KindInsufficientBalance ErrorKind = "INSUFFICIENT_BALANCE"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindExternalService     ErrorKind = "EXTERNAL_SERVICE"
	KindConsistency         ErrorKind = "CONSISTENCY"
)

// Error is the structured error returned by the ledger, settlement and cashier services
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError wraps an existing error in an Error
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is, or wraps, an Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the first Error in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
