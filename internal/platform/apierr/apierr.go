package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can branch without parsing
// messages. Every public service operation returns one of these on the
// failure side, never a raw error.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindAlreadyReviewed Kind = "ALREADY_REVIEWED"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindNotFound        Kind = "NOT_FOUND"
	KindDB              Kind = "DB_ERROR"
	KindAI              Kind = "AI_ERROR"
	KindTimeout         Kind = "TIMEOUT"
	KindUnknown         Kind = "UNKNOWN_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func AlreadyReviewed() *Error {
	return &Error{Kind: KindAlreadyReviewed, Message: "idea has already been reviewed"}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "unauthorized"
	}
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// DB hides store detail behind a generic message; the cause stays
// wrapped for server-side logs.
func DB(err error) *Error {
	return &Error{Kind: KindDB, Message: "storage operation failed", Err: err}
}

// FromPanic normalizes a recovered panic value. Used by service
// boundaries so nothing escapes raw.
func FromPanic(v any) *Error {
	return &Error{Kind: KindUnknown, Message: "unexpected internal error", Err: fmt.Errorf("panic: %v", v)}
}

// KindOf reports the Kind of err, or KindUnknown for anything that is
// not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// HTTPStatus maps a Kind onto the status code the HTTP layer responds
// with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyReviewed:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindAI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
