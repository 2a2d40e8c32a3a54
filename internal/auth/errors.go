package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a resolution failure. Every failure raised by the
// security-context pipeline carries exactly one Kind.
type Kind string

const (
	// KindInvalidAuthentication means no authentication object was attached to the request.
	KindInvalidAuthentication Kind = "invalid_authentication"
	// KindUnauthorized covers classification, tenant, expiry, client and identity-lookup failures.
	KindUnauthorized Kind = "unauthorized"
	// KindBadRequest covers unclassifiable variants and unsupported persisted-schema versions.
	KindBadRequest Kind = "bad_request"
	// KindInternal covers unexpected I/O while querying stores.
	KindInternal Kind = "internal_error"
)

// Error is the single typed error raised by the pipeline. It is terminal for
// the current request and maps 1:1 to an HTTP response.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindInvalidAuthentication, KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// InvalidAuthentication reports a request with no authentication object.
func InvalidAuthentication(msg string) *Error {
	return &Error{Kind: KindInvalidAuthentication, Message: msg}
}

// Unauthorizedf builds a KindUnauthorized error.
func Unauthorizedf(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// BadRequestf builds a KindBadRequest error.
func BadRequestf(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return http.StatusInternalServerError
}
