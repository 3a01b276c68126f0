package services

import (
	"errors"
	"fmt"

	"github.com/anjiri1684/edutech_marketplace/payments"
)

type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindInvalidState    ErrorKind = "invalid_state"
	KindConflict        ErrorKind = "conflict"
	KindValidation      ErrorKind = "validation"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindForbidden       ErrorKind = "forbidden"
	KindProviderFailed  ErrorKind = "provider_failed"
	KindProviderTimeout ErrorKind = "provider_timeout"
	KindUnsupported     ErrorKind = "unsupported"
	KindInternal        ErrorKind = "internal"
)

// Error is the only error type services hand back to handlers. Message is
// safe to show to the caller; Err carries the underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err, treating anything that is not an *Error
// as internal.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func notFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func invalidState(msg string) *Error { return &Error{Kind: KindInvalidState, Message: msg} }
func conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// providerError maps the payments sentinels onto service kinds. A timeout is
// kept distinct from a rejection so callers know a retry is safe.
func providerError(err error) *Error {
	switch {
	case errors.Is(err, payments.ErrProviderTimeout):
		return &Error{Kind: KindProviderTimeout, Message: "Payment provider did not respond in time, please retry", Err: err}
	case errors.Is(err, payments.ErrUnsupported):
		return &Error{Kind: KindUnsupported, Message: "Operation not supported by the configured payment provider", Err: err}
	case errors.Is(err, payments.ErrInvalidSignature):
		return &Error{Kind: KindValidation, Message: "Invalid payment signature", Err: err}
	default:
		return &Error{Kind: KindInternal, Message: "Payment provider request failed", Err: err}
	}
}
