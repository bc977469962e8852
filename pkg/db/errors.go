package db

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Business-rule errors returned by stores and services. Callers match them
// with errors.Is; none of them is retried automatically.
var (
	// ErrNotFound means the referenced sprint, project or allocation does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNotConfigured means no active priority weights configuration exists.
	ErrNotConfigured = errors.New("no active priority weights configured")

	// ErrDuplicateAllocation means the project already has an allocation in
	// the sprint; callers must update the existing one instead.
	ErrDuplicateAllocation = errors.New("project already allocated in this sprint")

	// ErrCapacityExceeded means the allocation would push the sprint's total
	// allocated points past its capacity.
	ErrCapacityExceeded = errors.New("sprint capacity exceeded")

	// ErrHasDependents means the sprint still has allocations referencing it.
	ErrHasDependents = errors.New("sprint has allocations")

	// ErrConflict means a concurrent write was detected during a
	// read-modify-write; the operation may be retried on a fresh read.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrInvalidEnum means a closed enum received an unrecognized value.
	ErrInvalidEnum = errors.New("invalid enum value")
)

func invalidEnum(kind, raw string) error {
	return fmt.Errorf("%w: unknown %s %q", ErrInvalidEnum, kind, raw)
}

// ValidationError reports every offending field of a rejected input, not
// just the first one found.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty validation error ready to collect
// field problems.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a problem against a field.
func (e *ValidationError) Add(field, problem string) {
	e.Fields[field] = append(e.Fields[field], problem)
}

// Empty reports whether any problem was recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e.Fields[field], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// StorageError wraps a failure from the persistence backend. The underlying
// error is surfaced verbatim, with the failing operation as context.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorage wraps err as a StorageError unless it is nil or already one of
// the business-rule errors above, which pass through untouched.
func WrapStorage(op string, err error) error {
	if err == nil {
		return err
	}
	for _, sentinel := range []error{
		ErrNotFound, ErrNotConfigured, ErrDuplicateAllocation,
		ErrCapacityExceeded, ErrHasDependents, ErrConflict,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &StorageError{Op: op, Err: err}
}
