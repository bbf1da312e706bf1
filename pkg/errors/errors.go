// Package errors provides structured error types for reqscan.
//
// Error codes map onto the failure taxonomy of a scan. Codes for per-file and
// per-package failures (SOURCE_READ, PARSE_FAILED, VERSION_LOOKUP_FAILED,
// PROBE_FAILED, CLASSIFICATION_DATA_UNAVAILABLE) are logged and skipped by the
// pipeline. MANIFEST_WRITE_FAILED, INVALID_PATH and configuration errors abort
// the run.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPath, "root %s is not a directory", root)
//	if errors.Is(err, errors.ErrCodeInvalidPath) {
//	    // Handle invalid input
//	}
//
//	err := errors.Wrap(errors.ErrCodeManifestWrite, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the scan failure taxonomy.
const (
	// Non-fatal: logged and skipped.
	ErrCodeSourceRead         Code = "SOURCE_READ"
	ErrCodeParse              Code = "PARSE_FAILED"
	ErrCodeClassificationData Code = "CLASSIFICATION_DATA_UNAVAILABLE"
	ErrCodeVersionLookup      Code = "VERSION_LOOKUP_FAILED"
	ErrCodeProbe              Code = "PROBE_FAILED"

	// Fatal.
	ErrCodeManifestWrite Code = "MANIFEST_WRITE_FAILED"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeAliasConflict Code = "ALIAS_CONFLICT"
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
