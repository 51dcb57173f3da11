// Package apperr defines the application error taxonomy and its HTTP mapping.
//
// Services return apperr values; controllers translate them with Status and
// Message instead of inspecting error strings:
//
//	order, err := svc.Create(ctx, input)
//	if err != nil {
//	    c.Error(apperr.Status(err), apperr.Message(err))
//	    return
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindGateway
	KindSignature
)

// Error carries a kind, a client-safe message, and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────────────

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Gateway wraps a payment-provider failure. The cause is logged server-side
// but never echoed to the client.
func Gateway(err error) error {
	return &Error{Kind: KindGateway, Msg: "payment gateway unavailable", Err: err}
}

// SignatureInvalid is returned when a payment signature fails verification.
// The message is fixed so no secret-derived material can leak.
func SignatureInvalid() error {
	return &Error{Kind: KindSignature, Msg: "payment signature verification failed"}
}

// ── Inspection ───────────────────────────────────────────────────────────────

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindSignature:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err. Internal errors collapse
// to a generic message so no implementation detail reaches the response.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "Internal Server Error"
}
