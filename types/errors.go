package types

import (
	"errors"
	"fmt"
)

// SpecNotFoundError is returned when an entity has no registered specification
type SpecNotFoundError struct {
	Entity string
}

// Error implements the error interface
func (e *SpecNotFoundError) Error() string {
	return fmt.Sprintf("spec not found for entity %q", e.Entity)
}

// InvalidPaginationError reports a rejected skip or take value
type InvalidPaginationError struct {
	Field string // "skip" or "take"
	Value int
}

// Error implements the error interface
func (e *InvalidPaginationError) Error() string {
	switch e.Field {
	case "skip":
		return fmt.Sprintf("invalid pagination: skip must be >= 0, got %d", e.Value)
	case "take":
		return fmt.Sprintf("invalid pagination: take must be >= 1, got %d", e.Value)
	default:
		return fmt.Sprintf("invalid pagination: %s=%d", e.Field, e.Value)
	}
}

// IsSpecNotFound reports whether err wraps a SpecNotFoundError
func IsSpecNotFound(err error) bool {
	var target *SpecNotFoundError
	return errors.As(err, &target)
}

// IsInvalidPagination reports whether err wraps an InvalidPaginationError
func IsInvalidPagination(err error) bool {
	var target *InvalidPaginationError
	return errors.As(err, &target)
}
