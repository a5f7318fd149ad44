// Package apperrors defines the error taxonomy shared by the lifecycle
// services and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the taxonomy bucket an error belongs to.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
)

type Code string

const (
	CodeValidationFailed     Code = "VALIDATION_FAILED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeFrozen               Code = "CONTENT_FROZEN"
	CodeDuplicateApplication Code = "DUPLICATE_APPLICATION"
	CodeDuplicateReport      Code = "DUPLICATE_REPORT"
	CodeNotAccepted          Code = "APPLICATION_NOT_ACCEPTED"
	CodeConcurrentUpdate     Code = "CONCURRENT_UPDATE"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidationFailed, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: what + " not found"}
}

// Conflict covers state clashes: duplicates, unreachable transitions, frozen
// content. They surface as 400 like validation errors.
func Conflict(code Code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Code: CodeRateLimited, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// KindOf classifies err; unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the code and message safe to show to a client.
func Public(err error) (Code, string) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Code, appErr.Message
	}
	return CodeInternal, "internal server error"
}
