// Package domain defines the core domain models for NoCSRF.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes have the form NC-<AREA>-<NNNN>; the last four digits follow the
// closest HTTP status.
type DomainError struct {
	Code    string // Error code (e.g., "NC-SESS-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionUnavailable indicates the session has no usable identity.
	ErrSessionUnavailable = NewDomainError("NC-SESS-5030", "session unavailable")

	// ErrSessionNotActive indicates the session cannot be read or written.
	ErrSessionNotActive = NewDomainError("NC-SESS-5031", "session not active")

	// ErrSessionNotFound indicates the requested session was not found.
	ErrSessionNotFound = NewDomainError("NC-SESS-4040", "session not found")

	// ErrSessionExpired indicates the session has expired.
	ErrSessionExpired = NewDomainError("NC-SESS-4041", "session expired")

	// ErrSessionConflict indicates the session ID already exists.
	ErrSessionConflict = NewDomainError("NC-SESS-4090", "session id conflict")

	// ErrSessionVersionConflict indicates an optimistic lock conflict.
	ErrSessionVersionConflict = NewDomainError("NC-SESS-4091", "version conflict, please retry")

	// ErrSessionValidation indicates session data validation failed.
	ErrSessionValidation = NewDomainError("NC-SESS-4001", "session validation failed")
)

// ============================================================================
// Key Errors (KEY)
// ============================================================================

var (
	// ErrKeyGeneration indicates the secret key could not be generated.
	ErrKeyGeneration = NewDomainError("NC-KEY-5001", "key generation failed")
)

// ============================================================================
// Token Errors (TOKN)
// ============================================================================

var (
	// ErrTokenMissing indicates no CSRF token was submitted.
	ErrTokenMissing = NewDomainError("NC-TOKN-4000", "csrf token missing")

	// ErrUnsupportedAlgorithm indicates an unknown HMAC algorithm.
	ErrUnsupportedAlgorithm = NewDomainError("NC-TOKN-4001", "unsupported algorithm")

	// ErrTokenMalformed indicates the token does not have the "<mac>.<timestamp>" shape.
	ErrTokenMalformed = NewDomainError("NC-TOKN-4002", "malformed token")

	// ErrTokenMismatch indicates the submitted token did not verify.
	ErrTokenMismatch = NewDomainError("NC-TOKN-4030", "csrf token mismatch")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("NC-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("NC-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("NC-SYS-5030", "service unavailable")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("NC-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("NC-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("NC-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("NC-ARG-1002", "missing required argument")
)
