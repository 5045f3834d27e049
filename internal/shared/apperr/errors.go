package apperr

import (
	"errors"
	"fmt"
)

// Kind phân loại lỗi theo taxonomy của circulation engine
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindPrecondition Kind = "PRECONDITION_FAILED"
	KindConflict     Kind = "CONFLICT"
	KindValidation   Kind = "VALIDATION_ERROR"
	KindInternal     Kind = "INTERNAL"
)

// Error is a classified domain error. Domain packages declare sentinel
// values of this type and wrap them with fmt.Errorf("%w: ...") for detail.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// NotFound: referenced entity absent
func NotFound(code, message string) *Error {
	return newError(KindNotFound, code, message)
}

// Precondition: entity exists but is in the wrong state
func Precondition(code, message string) *Error {
	return newError(KindPrecondition, code, message)
}

// Conflict: operation would violate an invariant
func Conflict(code, message string) *Error {
	return newError(KindConflict, code, message)
}

// Validation: malformed input
func Validation(code, message string) *Error {
	return newError(KindValidation, code, message)
}

// Validationf builds an ad-hoc validation error (used for DTO validation output).
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ErrInvalidInput is the generic validation sentinel.
var ErrInvalidInput = Validation("INVALID_INPUT", "invalid input")

// As extracts the classified error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsPrecondition(err error) bool { return KindOf(err) == KindPrecondition }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
