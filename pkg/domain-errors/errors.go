// Package domainerrors provides coded errors for the domain layer.
//
// Services return these so handlers can translate a code into an HTTP status
// without inspecting error strings. Stores return pkg/platform/sentinel
// errors instead; services translate those facts into coded errors here.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks bad input: invalid amounts, malformed cost items,
	// threshold ordering violations.
	CodeValidation Code = "validation"
	// CodeBadRequest marks malformed transport input (bad JSON, bad UUID).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks an unknown entity id.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a write that lost to an existing record.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks a missing or invalid session.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a role or ownership check failure.
	CodeForbidden Code = "forbidden"
	// CodeSuspendedAccount marks an action blocked by account suspension.
	CodeSuspendedAccount Code = "suspended_account"
	// CodeProjectNotDonatable marks a donation against a frozen or deleted project.
	CodeProjectNotDonatable Code = "project_not_donatable"
	// CodeInvalidState marks a state-machine transition not allowed from the
	// entity's current state.
	CodeInvalidState Code = "invalid_state"
	// CodeInvariantViolation marks a model constructor or transition guard
	// rejecting inconsistent state. Services usually convert this to
	// CodeValidation before it reaches a handler.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status handlers should write.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeSuspendedAccount:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState, CodeProjectNotDonatable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
