// Package errcode provides layered error codes shared by all redlimit packages.
// Error code format: MMBBBB (MM = module code, BBBB = business code).
package errcode

import (
	"fmt"
	"net/http"
)

// LayeredError is an error with a stable numeric code, a module tag,
// an HTTP status mapping and an optional wrapped cause.
type LayeredError struct {
	module     string
	code       int
	msg        string
	httpStatus int
	cause      error
}

// New creates a layered error.
// moduleCode: module code (10-99)
// businessCode: business code (0001-9999)
// module: module name (for example "limiter", "config")
// msg: default message
// httpStatus: HTTP status code (optional, defaults to 500)
func New(moduleCode, businessCode int, module, msg string, httpStatus ...int) *LayeredError {
	status := http.StatusInternalServerError
	if len(httpStatus) > 0 {
		status = httpStatus[0]
	}
	return &LayeredError{
		module:     module,
		code:       moduleCode*10000 + businessCode,
		msg:        msg,
		httpStatus: status,
	}
}

// Error implements the error interface.
func (e *LayeredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Code returns the complete numeric error code.
func (e *LayeredError) Code() int {
	return e.code
}

// Module returns the module name.
func (e *LayeredError) Module() string {
	return e.module
}

// Message returns the message without the cause chain.
func (e *LayeredError) Message() string {
	return e.msg
}

// HTTPStatus returns the mapped HTTP status code.
func (e *LayeredError) HTTPStatus() int {
	return e.httpStatus
}

// Unwrap supports errors.Is/errors.As chains.
func (e *LayeredError) Unwrap() error {
	return e.cause
}

// Is matches by code so wrapped instances still compare equal to their definition.
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	if !ok {
		return false
	}
	return e.code == t.code
}

// WithMsgf returns a copy with a formatted message.
func (e *LayeredError) WithMsgf(format string, args ...interface{}) *LayeredError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// Wrap returns a copy carrying cause as the wrapped error.
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	clone := *e
	clone.cause = cause
	return &clone
}

// Wrapf wraps cause and replaces the message in one step.
func (e *LayeredError) Wrapf(cause error, format string, args ...interface{}) *LayeredError {
	clone := *e
	clone.cause = cause
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}
