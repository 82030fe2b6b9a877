package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the session and records flows.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrAccountBlocked     = New("ACCOUNT_BLOCKED", http.StatusForbidden, "account is blocked")
	ErrEmailUnverified    = New("EMAIL_UNVERIFIED", http.StatusForbidden, "email address is not verified")
	ErrTokenExpired       = New("TOKEN_EXPIRED", http.StatusUnauthorized, "access token expired")
	ErrRefreshFailed      = New("REFRESH_FAILED", http.StatusUnauthorized, "session expired, sign in again")
	ErrConnectivity       = New("CONNECTIVITY", http.StatusServiceUnavailable, "could not reach the records server")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUpstream           = New("UPSTREAM_ERROR", http.StatusBadGateway, "records server returned an error")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// FromFieldErrors flattens a backend field-error payload into one
// multi-line validation error, one "field: message" line per problem.
func FromFieldErrors(fields map[string][]string) *Error {
	if len(fields) == 0 {
		return Clone(ErrValidation, "")
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(fields))
	for _, name := range names {
		for _, msg := range fields[name] {
			lines = append(lines, fmt.Sprintf("%s: %s", name, msg))
		}
	}
	return Clone(ErrValidation, strings.Join(lines, "\n"))
}

// IsAuthRejection reports whether err is an authentication rejection
// (expired or otherwise refused access token) as opposed to a
// connectivity or application failure.
func IsAuthRejection(err error) bool {
	e := FromError(err)
	if e == nil {
		return false
	}
	return e.Code == ErrTokenExpired.Code || e.Code == ErrUnauthorized.Code
}
