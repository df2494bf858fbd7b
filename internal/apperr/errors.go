// Package apperr defines the error taxonomy shared by the service and HTTP
// layers. Services return these types; handlers translate them into status
// codes in one place so that storage details never leak to callers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports missing or malformed input. Fields lists the
// offending request fields using their wire (JSON/form) names.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// ConflictError is returned when a unique attribute (the event slug) is
// already taken, or when a concurrent write invalidated the request. Reason
// overrides the default message.
type ConflictError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// NotFoundError is returned for unknown events, tickets or tokens.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// AlreadyUsedError is returned when a ticket has already been claimed.
type AlreadyUsedError struct {
	Token string
}

func (e *AlreadyUsedError) Error() string {
	return "this ticket has already been used"
}

// StorageError wraps a database or filesystem failure. Its message is kept
// server-side; callers only ever see a generic message.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Validation builds a ValidationError for the given fields.
func Validation(fields ...string) error {
	return &ValidationError{Fields: fields}
}

// Storage wraps err as a StorageError unless it already carries one of the
// taxonomy types, in which case it is returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsConflict(err) || IsNotFound(err) || IsAlreadyUsed(err) || IsStorage(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsAlreadyUsed(err error) bool {
	var target *AlreadyUsedError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}
