// Package errors provides error code definitions shared across the
// Cragbook core and its Go-UI boundary.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies an error for retry policy and UI surfacing.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Database errors
	ErrDatabase  ErrorCode = "DATABASE_ERROR"
	ErrMigration ErrorCode = "MIGRATION_FAILED"

	// Remote/transport errors. Transport and server failures are
	// retried by the transport layer before being surfaced; auth and
	// validation failures are never retried by the sync layer.
	ErrTransport   ErrorCode = "TRANSPORT_ERROR"
	ErrServer      ErrorCode = "SERVER_ERROR"
	ErrAuthExpired ErrorCode = "AUTH_EXPIRED"
	ErrAuthDenied  ErrorCode = "AUTH_DENIED"
	ErrRateLimited ErrorCode = "RATE_LIMITED"

	// Sync errors
	ErrSyncFailed       ErrorCode = "SYNC_FAILED"
	ErrSyncInProgress   ErrorCode = "SYNC_IN_PROGRESS"
	ErrRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks whether any error in err's chain carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the error code from err's chain, or ErrInternal when
// the chain carries no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// AbortsPass reports whether an error must abort the whole sync pass
// rather than fail a single record: connectivity, server-side outage,
// and credential problems affect every record equally, so continuing
// would only burn retry budget.
func AbortsPass(err error) bool {
	switch CodeOf(err) {
	case ErrTransport, ErrServer, ErrRateLimited, ErrAuthExpired, ErrAuthDenied:
		return true
	}
	return false
}
