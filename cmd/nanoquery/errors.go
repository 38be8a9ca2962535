package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/nanoquery/internal/validation"
	"github.com/arthur-debert/nanoquery/nanoquery/registry"
	"github.com/arthur-debert/nanoquery/nanoquery/spec"
	"github.com/arthur-debert/nanoquery/types"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "load schema", "assemble query")
	Cause       string   // The underlying cause (e.g., "entity not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}

	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}

	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, underlying error, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// NewSchemaError creates an error for schema files that fail to load or finalize
func NewSchemaError(underlying error) *CLIError {
	cause := "invalid schema"
	suggestions := []string{CommonSuggestions.CheckSchema}

	var fieldErr *validation.FieldError
	switch {
	case types.IsSpecNotFound(underlying):
		cause = "a relation targets an entity that is not declared"
		suggestions = append(suggestions, "Declare the target entity or pass the schema file that declares it")
	case errors.As(underlying, &fieldErr) && fieldErr.Field != "":
		cause = fmt.Sprintf("invalid field %s.%s", fieldErr.Entity, fieldErr.Field)
	case errors.As(underlying, &fieldErr):
		cause = fmt.Sprintf("invalid entity %q", fieldErr.Entity)
	case strings.Contains(strings.ToLower(underlying.Error()), "no such file"):
		cause = "schema file not found"
		suggestions = append(suggestions, CommonSuggestions.CheckPaths)
	}

	return &CLIError{
		Operation:   "load schema",
		Cause:       cause,
		Details:     underlying.Error(),
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// NewEntityError creates an error for an entity missing from the registry
func NewEntityError(operation, entity string, reg *registry.Registry, underlying error) *CLIError {
	suggestions := []string{"Run 'nanoquery entities' to see registered entities"}
	if reg != nil && len(reg.Entities()) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Available entities: %s", strings.Join(reg.Entities(), ", ")))
	}

	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("unknown entity %q", entity),
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// NewInputError creates an error for unreadable or malformed input documents
func NewInputError(operation, source string, underlying error) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("cannot read %s", source),
		Details:     underlying.Error(),
		Suggestions: []string{"Input must be a JSON or YAML document", CommonSuggestions.RunHelp},
		Underlying:  underlying,
	}
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	cause := "operation failed"
	var filterErr *spec.FilterValidationError
	var sortErr *spec.SortValidationError
	switch {
	case errors.As(err, &filterErr):
		cause = "filter does not match the entity's filter specification"
		suggestions = append(suggestions, "Run 'nanoquery spec <entity> --json-schema' to see accepted filters")
	case errors.As(err, &sortErr):
		cause = "order does not match the entity's sort specification"
		suggestions = append(suggestions, "Run 'nanoquery spec <entity>' to see sortable fields")
	case types.IsInvalidPagination(err):
		cause = "invalid pagination"
		suggestions = append(suggestions, "Use --policy clamp to clamp out-of-range skip and take")
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     err.Error(),
		Suggestions: suggestions,
		Underlying:  err,
	}
}

// Common error messages and suggestions
var (
	CommonSuggestions = struct {
		CheckSchema string
		CheckConfig string
		CheckPaths  string
		RunHelp     string
		CheckPerms  string
	}{
		CheckSchema: "Check the schema file: every field needs a name and a kind, relations need a target",
		CheckConfig: "Check your configuration file or NANOQUERY_* environment variables",
		CheckPaths:  "Verify --schema points to existing files",
		RunHelp:     "Run command with --help for usage information",
		CheckPerms:  "Check file permissions and directory access",
	}
)
