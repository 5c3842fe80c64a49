package manager

import (
	"errors"
	"fmt"
	"net/http"
)

// validationError signals a client-side fault detected before any process runs.
type validationError struct{ msg string }

func (e validationError) Error() string   { return e.msg }
func (e validationError) StatusCode() int { return http.StatusBadRequest }

// ErrValidation constructs a validationError.
func ErrValidation(format string, args ...any) error {
	return validationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a bad name, missing project file, or path escape.
func IsValidation(err error) bool {
	var e validationError
	return errors.As(err, &e)
}

// notFoundError covers unknown projects, jobs, logs, and a missing local toolchain.
type notFoundError struct{ what, id string }

func (e notFoundError) Error() string {
	if e.id == "" {
		return e.what + " not found"
	}
	return e.what + " not found: " + e.id
}
func (e notFoundError) StatusCode() int { return http.StatusNotFound }

// ErrNotFound constructs a notFoundError.
func ErrNotFound(what, id string) error { return notFoundError{what: what, id: id} }

// IsNotFound reports whether err indicates a missing resource.
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// conflictError signals that the requested resource already exists or runs.
type conflictError struct{ msg string }

func (e conflictError) Error() string   { return e.msg }
func (e conflictError) StatusCode() int { return http.StatusConflict }

// ErrConflict constructs a conflictError.
func ErrConflict(format string, args ...any) error {
	return conflictError{msg: fmt.Sprintf(format, args...)}
}

// IsConflict reports whether err is an already-exists / already-running error.
func IsConflict(err error) bool {
	var e conflictError
	return errors.As(err, &e)
}

// preconditionError is returned when an operation needs state that is absent,
// e.g. chatting with a project that has no running inference endpoint.
type preconditionError struct{ msg string }

func (e preconditionError) Error() string   { return e.msg }
func (e preconditionError) StatusCode() int { return http.StatusBadRequest }

// ErrPrecondition constructs a preconditionError.
func ErrPrecondition(msg string) error { return preconditionError{msg: msg} }

// IsPrecondition reports whether err is a precondition failure.
func IsPrecondition(err error) bool {
	var e preconditionError
	return errors.As(err, &e)
}

// executionError wraps a failed runtime command that had to succeed.
type executionError struct {
	msg string
	err error
}

func (e executionError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}
func (e executionError) Unwrap() error    { return e.err }
func (e executionError) StatusCode() int { return http.StatusInternalServerError }

// ErrExecution constructs an executionError; err may be nil.
func ErrExecution(msg string, err error) error { return executionError{msg: msg, err: err} }

// IsExecution reports whether err is a runtime execution failure.
func IsExecution(err error) bool {
	var e executionError
	return errors.As(err, &e)
}

// upstreamError is returned by Chat when the bot endpoint fails or times out.
type upstreamError struct {
	status int
	body   []byte
	err    error
}

func (e upstreamError) Error() string {
	switch {
	case e.err != nil:
		return "upstream error: " + e.err.Error()
	case len(e.body) > 0:
		return fmt.Sprintf("upstream returned %d: %s", e.status, e.body)
	default:
		return fmt.Sprintf("upstream returned %d", e.status)
	}
}
func (e upstreamError) Unwrap() error    { return e.err }
func (e upstreamError) StatusCode() int { return http.StatusBadGateway }

// IsUpstream reports whether err came from the inference endpoint.
func IsUpstream(err error) bool {
	var e upstreamError
	return errors.As(err, &e)
}

// UpstreamBody returns the upstream response payload carried by err, if any.
func UpstreamBody(err error) []byte {
	var e upstreamError
	if errors.As(err, &e) {
		return e.body
	}
	return nil
}
