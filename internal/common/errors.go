// Package common holds cross-cutting helpers: typed errors, config and logging.
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes an error the way the RPC layer reports it.
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindInvalidArgument    Kind = "INVALID_ARGUMENT"
	KindNotFound           Kind = "NOT_FOUND"
	KindPermissionDenied   Kind = "PERMISSION_DENIED"
	KindFailedPrecondition Kind = "FAILED_PRECONDITION"
	KindUnavailable        Kind = "UNAVAILABLE"
	KindInternal           Kind = "INTERNAL"
)

// Error is an application error with a reportable kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) *Error {
	return newError(KindUnauthenticated, format, args...)
}

func InvalidArgument(format string, args ...any) *Error {
	return newError(KindInvalidArgument, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func PermissionDenied(format string, args ...any) *Error {
	return newError(KindPermissionDenied, format, args...)
}

func FailedPrecondition(format string, args ...any) *Error {
	return newError(KindFailedPrecondition, format, args...)
}

func Unavailable(format string, args ...any) *Error {
	return newError(KindUnavailable, format, args...)
}

func Internal(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the HTTP status the gin layer writes.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindFailedPrecondition:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
