// Package errors defines the typed error taxonomy for the payment
// reconciliation service. Every error carries a category, a machine-readable
// code and optional context, so that callers can branch on failure class
// without string matching and the HTTP boundary can render a stable reason.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category groups errors by failure class.
type Category string

const (
	CategoryConfiguration  Category = "configuration"
	CategoryValidation     Category = "validation"
	CategoryNetwork        Category = "network"
	CategoryStorage        Category = "storage"
	CategoryReconciliation Category = "reconciliation"
	CategoryInternal       Category = "internal"
)

// Code identifies a specific error within a category.
type Code string

const (
	// Configuration errors
	CodeMissingToken  Code = "missing_token"
	CodeInvalidConfig Code = "invalid_config"

	// Validation errors
	CodeInvalidCode Code = "invalid_code"

	// Network errors
	CodeRequestFailed   Code = "request_failed"
	CodeBadStatus       Code = "bad_status"
	CodeBadContentType  Code = "bad_content_type"
	CodeMalformedBody   Code = "malformed_body"
	CodeCircuitOpen     Code = "circuit_open"
	CodeRequestTimedOut Code = "request_timed_out"

	// Storage errors
	CodeTxBegin     Code = "tx_begin"
	CodeTxCommit    Code = "tx_commit"
	CodeQueryFailed Code = "query_failed"

	// Reconciliation errors
	CodePaymentNotFound Code = "payment_not_found"
	CodeUserNotFound    Code = "user_not_found"

	// Internal errors
	CodeUnexpected Code = "unexpected_error"
)

// Error is the base error type for all application errors. It wraps an
// optional cause and captures a stack trace at construction time.
type Error struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Context    map[string]string `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key-value pair to the error.
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new Error.
func New(category Category, code Code, message string) *Error {
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with category and code. Returns nil when err
// is nil so call sites can wrap unconditionally.
func Wrap(err error, category Category, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// ConfigurationError creates a configuration error for the named setting.
func ConfigurationError(code Code, setting string, err error) *Error {
	e := build(err, CategoryConfiguration, code, fmt.Sprintf("configuration error: %s", setting))
	return e.WithContext("setting", setting)
}

// ValidationError creates a validation error for the named field.
func ValidationError(code Code, field, message string) *Error {
	e := New(CategoryValidation, code, message)
	return e.WithContext("field", field)
}

// NetworkError creates a network error for the given endpoint. All network
// errors are treated as transient by the reconciliation loop: the candidate
// account they occurred on is skipped, not retried.
func NetworkError(code Code, endpoint string, err error) *Error {
	e := build(err, CategoryNetwork, code, fmt.Sprintf("bank API request failed: %s", endpoint))
	return e.WithContext("endpoint", endpoint)
}

// StorageError creates a storage error for the given operation.
func StorageError(code Code, operation string, err error) *Error {
	e := build(err, CategoryStorage, code, fmt.Sprintf("storage error during %s", operation))
	return e.WithContext("operation", operation)
}

// InternalError creates an internal error for the given operation.
func InternalError(operation string, err error) *Error {
	e := build(err, CategoryInternal, CodeUnexpected, fmt.Sprintf("unexpected error during %s", operation))
	return e.WithContext("operation", operation)
}

func build(err error, category Category, code Code, message string) *Error {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// IsCategory reports whether err (or anything it wraps) is an Error of the
// given category.
func IsCategory(err error, category Category) bool {
	e, ok := AsError(err)
	return ok && e.Category == category
}

// IsTransient reports whether err represents a transient upstream failure
// that should skip the current candidate account rather than abort the
// reconciliation.
func IsTransient(err error) bool {
	return IsCategory(err, CategoryNetwork)
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
