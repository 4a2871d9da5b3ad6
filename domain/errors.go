package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInvalid       ErrorCode = "INVALID"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodePartialUpdate ErrorCode = "PARTIAL_UPDATE"
	ErrCodeInternal      ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrUserNotFound   = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound   = NewError(ErrCodeNotFound, "task not found")
	ErrUsernameTaken  = NewError(ErrCodeConflict, "username already exists")
	ErrUnauthorized   = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrForbidden      = NewError(ErrCodeForbidden, "operation not permitted")
	ErrInvalidPayload = NewError(ErrCodeInvalid, "invalid payload")
)

// NewForbidden builds a forbidden error with a specific message.
func NewForbidden(message string) *Error {
	return NewError(ErrCodeForbidden, message)
}

// NewPartialUpdate reports a cross-reference repair that could not complete
// within the synchronous retry budget. The first-side write is durable and
// the pending repair is journaled for the reconciliation sweep.
func NewPartialUpdate(message string, err error) *Error {
	return WrapError(ErrCodePartialUpdate, message, err)
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
