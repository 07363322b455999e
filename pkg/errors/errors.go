// Package errors provides structured error types for palace.
//
// Every failure the installer can surface carries a machine-readable [Code]
// and a message naming the offending package or specifier, so the CLI can
// print a precise diagnostic and tests can assert on failure categories
// without matching strings.
//
// # Error Codes
//
//   - FETCH_ERROR, PACKAGE_NOT_FOUND: transport failures and non-2xx responses
//   - NO_MATCHING_VERSION: a range or tag has no satisfying published version
//   - INVALID_MANIFEST, MANIFEST_NOT_FOUND, DECODE_ERROR: manifest and archive failures
//   - SCRIPT_EXECUTION_ERROR: a lifecycle script exited non-zero
//   - INVALID_SPECIFIER, INVALID_PACKAGE, DEPTH_EXCEEDED, INVALID_CONFIG, INTERNAL_ERROR
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNoMatchingVersion, "no version of %s matches %q", name, spec)
//	if errors.Is(err, errors.ErrCodeNoMatchingVersion) {
//	    // handle
//	}
//
// [Is] searches the whole error tree, including errors combined with
// [errors.Join], so a failure in one of several concurrent branches is still
// found by code.
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Transport errors
	ErrCodeFetch           Code = "FETCH_ERROR"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"

	// Resolution errors
	ErrCodeNoMatchingVersion Code = "NO_MATCHING_VERSION"
	ErrCodeInvalidSpecifier  Code = "INVALID_SPECIFIER"
	ErrCodeDepthExceeded     Code = "DEPTH_EXCEEDED"

	// Manifest and archive errors
	ErrCodeInvalidManifest  Code = "INVALID_MANIFEST"
	ErrCodeManifestNotFound Code = "MANIFEST_NOT_FOUND"
	ErrCodeDecode           Code = "DECODE_ERROR"

	// Install errors
	ErrCodeScriptExecution Code = "SCRIPT_EXECUTION_ERROR"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"

	// Configuration and internal errors
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInternal      Code = "INTERNAL_ERROR"
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

// Is reports whether any *Error in err's tree has the given code.
// Both single-cause chains and joined errors are searched.
func Is(err error, code Code) bool {
	found := false
	walk(err, func(e *Error) bool {
		if e.Code == code {
			found = true
			return false
		}
		return true
	})
	return found
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error tree contains no *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Codes returns every code found in err's tree, outermost first.
func Codes(err error) []Code {
	var codes []Code
	walk(err, func(e *Error) bool {
		codes = append(codes, e.Code)
		return true
	})
	return codes
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func walk(err error, fn func(*Error) bool) bool {
	if err == nil {
		return true
	}
	if e, ok := err.(*Error); ok && !fn(e) {
		return false
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if !walk(inner, fn) {
				return false
			}
		}
	case interface{ Unwrap() error }:
		return walk(u.Unwrap(), fn)
	}
	return true
}
