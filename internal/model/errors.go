package model

import (
	"errors"
	"fmt"
)

type ErrorKind uint8

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuth
)

type AuthReason uint8

const (
	AuthNone AuthReason = iota
	AuthMissingToken
	AuthMalformedHeader
	AuthInvalidOrExpired
	AuthForbiddenRole
	AuthInvalidCredentials
)

// Stable error codes returned to clients.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "SCHEDULING_CONFLICT"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeMalformedHeader    = "MALFORMED_HEADER"
	CodeInvalidOrExpired   = "INVALID_OR_EXPIRED_TOKEN"
	CodeForbiddenRole      = "FORBIDDEN_ROLE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is the domain error carried from the core to the transports.
// Message is safe to show to callers; Err is for logs only.
type Error struct {
	Kind    ErrorKind
	Reason  AuthReason
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound names the missing entity, e.g. NotFound("Patient", 4).
func NotFound(entity string, id int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %d not found", entity, id),
	}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Code: CodeConflict, Message: msg}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: err}
}

func AuthError(reason AuthReason) *Error {
	e := &Error{Kind: KindAuth, Reason: reason}
	switch reason {
	case AuthMissingToken:
		e.Code, e.Message = CodeMissingToken, "authorization header missing"
	case AuthMalformedHeader:
		e.Code, e.Message = CodeMalformedHeader, "invalid authorization header format, use: Bearer <token>"
	case AuthInvalidOrExpired:
		e.Code, e.Message = CodeInvalidOrExpired, "invalid or expired session"
	case AuthForbiddenRole:
		e.Code, e.Message = CodeForbiddenRole, "role not permitted for this operation"
	case AuthInvalidCredentials:
		e.Code, e.Message = CodeInvalidCredentials, "invalid credentials"
	default:
		e.Code, e.Message = CodeInvalidOrExpired, "unauthorized"
	}
	return e
}

// AsError classifies err. Anything that is not a *Error is internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsAuthReason(err error, reason AuthReason) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuth && e.Reason == reason
}
