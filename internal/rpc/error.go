package rpc

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error kind carried across the transport.
type Code string

const (
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeInternal        Code = "INTERNAL_SERVER_ERROR"
)

// Error is the only error shape that crosses the dispatch boundary.
// Details carries per-field validation messages for BAD_REQUEST;
// RetryAfter carries seconds-until-reset for TOO_MANY_REQUESTS.
// The wrapped cause is for logs only and is never serialized outward.
type Error struct {
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error code to its HTTP status at the transport boundary.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func BadRequest(message string, details map[string]string) *Error {
	return &Error{Code: CodeBadRequest, Message: message, Details: details}
}

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

func TooManyRequests(message string, retryAfter int) *Error {
	return &Error{Code: CodeTooManyRequests, Message: message, RetryAfter: retryAfter}
}

// Internal wraps an unanticipated failure. The cause is preserved for
// logging but the outward message stays generic.
func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: "an unexpected error occurred", cause: cause}
}

// WithCause attaches an underlying error without changing the outward shape.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// AsError extracts a typed *Error if err carries one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
