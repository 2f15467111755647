// Package errors provides custom error types and error handling utilities.
package errors

import (
	"errors"
	"fmt"
	"strconv"
)

// Error codes.
const (
	// Caller errors.
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeNotFound     = "NOT_FOUND"

	// Environment errors.
	CodeInternal    = "INTERNAL_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
)

// Exit statuses returned by ExitCode.
const (
	ExitFailure     = 1
	ExitUsage       = 2
	ExitNotFound    = 3
	ExitUnavailable = 4
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status for this error.
func (e *AppError) ExitCode() int {
	switch e.Code {
	case CodeValidation, CodeInvalidInput:
		return ExitUsage
	case CodeNotFound:
		return ExitNotFound
	case CodeUnavailable, CodeTimeout:
		return ExitUnavailable
	default:
		return ExitFailure
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// RowError reports a malformed input row. Rows are numbered from 1.
func RowError(row int, message string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("row %d: %s", row, message)).
		WithDetail("row", strconv.Itoa(row))
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// LabelNotFoundError reports a class label that is missing from the class counts.
func LabelNotFoundError(label string) *AppError {
	return NotFoundError(fmt.Sprintf("label %q", label)).WithDetail("label", label)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// TimeoutError reports an operation abandoned because its deadline passed
// or its context was cancelled.
func TimeoutError(operation string, err error) *AppError {
	return Wrap(CodeTimeout, fmt.Sprintf("%s timed out", operation), err)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

func hasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsInvalidInput checks if error reports a malformed input row.
func IsInvalidInput(err error) bool {
	return hasCode(err, CodeInvalidInput)
}

// ExitCode returns the exit status for any error; nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return ExitFailure
}
