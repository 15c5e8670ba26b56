// Package errors provides structured error types for stackgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, CLI and HTTP server
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow the error taxonomy of the aggregation engine:
//   - INVALID_SNAPSHOT, MERGE_FAILED: construction errors; the trie build
//     that produced them publishes nothing
//   - INVALID_OPTIONS, INVALID_MODE, INVALID_SCALE, INVALID_FILTER:
//     configuration errors, reported when the options are used
//   - INVALID_INPUT, PARSE_FAILED, FILE_NOT_FOUND: problems with sample input
//   - INTERNAL_*: Unexpected internal errors
//
// Empty snapshots, zero totals and fully filtered stacks are not errors; they
// produce an empty layout.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidMode, "unknown mode %q", mode)
//	if errors.Is(err, errors.ErrCodeInvalidMode) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMergeFailed, origErr, "merge stack %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeParseFailed   Code = "PARSE_FAILED"

	// Construction errors
	ErrCodeInvalidSnapshot Code = "INVALID_SNAPSHOT"
	ErrCodeMergeFailed     Code = "MERGE_FAILED"

	// Configuration errors
	ErrCodeInvalidOptions Code = "INVALID_OPTIONS"
	ErrCodeInvalidMode    Code = "INVALID_MODE"
	ErrCodeInvalidScale   Code = "INVALID_SCALE"
	ErrCodeInvalidFilter  Code = "INVALID_FILTER"
	ErrCodeInvalidKind    Code = "INVALID_KIND"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// Only the outermost *Error is inspected.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConfiguration reports whether err is a configuration error: an option
// combination the statistic descriptor or layout engine cannot honor.
func IsConfiguration(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidOptions, ErrCodeInvalidMode, ErrCodeInvalidScale, ErrCodeInvalidFilter, ErrCodeInvalidKind:
		return true
	}
	return false
}

// IsConstruction reports whether err is a construction error raised while
// building a trie from a malformed snapshot.
func IsConstruction(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidSnapshot, ErrCodeMergeFailed:
		return true
	}
	return false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
