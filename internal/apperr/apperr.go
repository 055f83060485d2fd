// Package apperr carries the typed failures raised by validators, gates and
// services. Handlers translate them to HTTP once, at the request boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindRestricted
	KindNotFound
	KindConflict
	KindInvalidState
	KindUpstream
)

// Error is a domain failure with a machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Meta    map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindInvalidState:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindRestricted:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: msg}
}

func Restricted(msg string, meta map[string]any) *Error {
	return &Error{Kind: KindRestricted, Code: "USER_RESTRICTED", Message: msg, Meta: meta}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: what + " not found"}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func InvalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Code: "INVALID_STATE", Message: msg}
}

func Upstream(msg string, meta map[string]any, err error) *Error {
	return &Error{Kind: KindUpstream, Code: "UPSTREAM_ERROR", Message: msg, Meta: meta, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: msg, Err: err}
}

// From extracts an *Error, wrapping anything else as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
