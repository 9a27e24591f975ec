package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError is bad input: blank required field, out-of-range year, negative count.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError means a referenced id does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrorRecordNotFound
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// DataUnavailableError is raised when a report has nothing to show.
type DataUnavailableError struct {
	Year    int
	Message string
}

func (e *DataUnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("No data available for year %d", e.Year)
}

// StoreError wraps a failed document-store call. It is never retried here.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStoreError returns nil for a nil err and leaves taxonomy errors untouched.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) || IsValidationError(err) || IsNotFound(err) || IsDataUnavailable(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrorRecordNotFound)
}

func IsDataUnavailable(err error) bool {
	var target *DataUnavailableError
	return errors.As(err, &target)
}

func IsStoreError(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}
