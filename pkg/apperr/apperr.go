package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is lets predeclared domain errors match wrapped copies by code+message.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Forbidden(msg string) error {
	return New(CodePermissionDenied, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthenticated, msg)
}

func FailedPrecondition(msg string) error {
	return New(CodeFailedPrecondition, msg)
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}

// CodeOf extracts the taxonomy code from any error.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// HTTPStatus maps taxonomy codes onto HTTP status codes. Callers rely on
// the distinction between not-authorized, not-found and not-ready-yet to
// pick a recovery path, so the mapping is deliberately exact.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
