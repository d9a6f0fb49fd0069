// Package apperr defines the error taxonomy shared by services and handlers.
// Callers should match with errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("version conflict")
	ErrValidation   = errors.New("validation failed")
)

// ValidationError names the request field that failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError is a failed call to the asset storage collaborator.
type StorageError struct {
	Op       string
	PublicID string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.PublicID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
