// Package common defines shared sentinel errors and structured error types
// used across the delivery core. Callers should match with errors.Is/errors.As.
package common

import (
	"errors"
	"fmt"
)

var (
	// Sealed-URL token lifecycle errors. Terminal, non-retryable.
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenAlreadyUsed = errors.New("token already used")
	ErrTokenNotFound    = errors.New("token not found")

	// Queue errors.
	ErrQueueFull           = errors.New("mailbox full")
	ErrNoRegisteredDevices = errors.New("recipient has no registered devices")

	ErrFileNotFound = errors.New("file not found")
)

type (
	// ValidationError marks a malformed or missing request field. Always a
	// client error, never retried.
	ValidationError struct {
		Field  string
		Reason string
	}

	// StorageError wraps a transient failure of the underlying store.
	// Retryable by the caller with backoff.
	StorageError struct {
		Op  string
		Err error
	}
)

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err is a StorageError anywhere in its chain.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
