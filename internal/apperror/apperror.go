// Package apperror defines the error taxonomy shared by every layer.
//
// Each category is a sentinel error. Constructors return an *AppError that
// wraps the sentinel, so callers classify with errors.Is and read the
// human-readable message with errors.As:
//
//	var appErr *apperror.AppError
//	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrValidation) {
//	    // show appErr.Message next to appErr.Field
//	}
//
// Storage corruption is deliberately absent: stores recover from it locally
// by substituting defaults, so it never reaches a caller as an error.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrAuth         = errors.New("authentication failed")
	ErrStorageWrite = errors.New("storage write failed")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying low-level error (I/O, driver)
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the category sentinel and the low-level cause, so
// errors.Is works for apperror.ErrStorageWrite as well as fs.ErrPermission.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// AuthFailed reports a rejected login or registration attempt.
// HTTP handlers map this to 401 Unauthorized.
func AuthFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: message,
		Field:   field,
	}
}

// InvalidCredentials is the single message used for unknown users and wrong
// passwords alike, so the response does not reveal which one it was.
func InvalidCredentials() *AppError {
	return AuthFailed("", "invalid username or password")
}

// PasswordMismatch reports that the registration confirmation differs
// from the password.
func PasswordMismatch() *AppError {
	return AuthFailed("confirm", "passwords do not match")
}

// StorageWriteFailed reports that a save did not reach durable storage.
// The in-memory state stays authoritative; nothing is retried automatically.
func StorageWriteFailed(what string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorageWrite,
		Message: fmt.Sprintf("could not save %s", what),
		Cause:   cause,
	}
}
