package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeAccessDenied indicates a valid identity assertion for which no
	// authorization policy grants access (no local account, autoprovision off).
	ErrCodeAccessDenied ErrorCode = "access_denied"
	// ErrCodeProvisioning indicates the account store rejected a create or sync.
	ErrCodeProvisioning ErrorCode = "provisioning"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
)

// Provisioning phases, recorded on ErrCodeProvisioning errors so operators
// can tell a failed create from a failed resync.
const (
	PhaseCreate = "creating"
	PhaseSync   = "syncing"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Phase is the provisioning phase for ErrCodeProvisioning errors (optional)
	Phase string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// AccessDenied creates the error returned when credentials are valid but no
// authorization policy grants access. The message is user-visible and
// intentionally generic.
func AccessDenied() *AppError {
	return &AppError{
		Code:    ErrCodeAccessDenied,
		Message: "access denied: your login credentials are correct, but you do not have authorization to access this site",
	}
}

// Provisioning wraps an account-store failure, recording whether it occurred
// while creating or syncing the local account.
func Provisioning(phase string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeProvisioning,
		Message: fmt.Sprintf("credentials are correct, but an error occurred %s the local account; please open a support ticket", phase),
		Cause:   cause,
		Phase:   phase,
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsAccessDenied checks if an error is an AccessDenied error.
func IsAccessDenied(err error) bool {
	return isCode(err, ErrCodeAccessDenied)
}

// IsProvisioning checks if an error is a Provisioning error.
func IsProvisioning(err error) bool {
	return isCode(err, ErrCodeProvisioning)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetPhase returns the provisioning phase from an error, or empty string when absent.
func GetPhase(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Phase
	}
	return ""
}
