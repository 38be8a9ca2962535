package validation

import (
	"fmt"

	"github.com/arthur-debert/nanoquery/types"
)

// FieldError describes a malformed field declaration
type FieldError struct {
	Entity string
	Field  string
	Reason string
}

// Error implements the error interface
func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("entity %q: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("entity %q field %q: %s", e.Entity, e.Field, e.Reason)
}

// ValidateEntity checks an entity declaration for consistency
func ValidateEntity(name string, fields []types.FieldDescriptor) error {
	if name == "" {
		return &FieldError{Reason: "entity name cannot be empty"}
	}
	if !IsValidIdentifier(name) {
		return &FieldError{Entity: name, Reason: "entity name must be an identifier"}
	}

	seen := make(map[string]bool)
	for i, f := range fields {
		if f.Name == "" {
			return &FieldError{Entity: name, Reason: fmt.Sprintf("field %d: name cannot be empty", i)}
		}
		if seen[f.Name] {
			return &FieldError{Entity: name, Field: f.Name, Reason: "duplicate field name"}
		}
		seen[f.Name] = true

		if err := ValidateField(name, f); err != nil {
			return err
		}
	}

	return nil
}

// ValidateField checks a single field descriptor
func ValidateField(entity string, f types.FieldDescriptor) error {
	if !IsValidIdentifier(f.Name) {
		return &FieldError{Entity: entity, Field: f.Name, Reason: "name must contain only letters, digits and underscores"}
	}

	if IsReservedFieldName(f.Name) {
		return &FieldError{Entity: entity, Field: f.Name, Reason: "name is reserved for filter combinators"}
	}

	switch f.Kind {
	case types.KindRelation:
		if f.Target == "" {
			return &FieldError{Entity: entity, Field: f.Name, Reason: "relation fields must specify a target entity"}
		}
		if !IsValidIdentifier(f.Target) {
			return &FieldError{Entity: entity, Field: f.Name, Reason: fmt.Sprintf("invalid target entity %q", f.Target)}
		}
		if len(f.Values) > 0 {
			return &FieldError{Entity: entity, Field: f.Name, Reason: "relation fields should not have values"}
		}
	case types.KindEnum:
		if f.Target != "" {
			return &FieldError{Entity: entity, Field: f.Name, Reason: "scalar fields should not have a target"}
		}
		valuesSeen := make(map[string]bool)
		for _, v := range f.Values {
			if v == "" {
				return &FieldError{Entity: entity, Field: f.Name, Reason: "enum values cannot be empty"}
			}
			if valuesSeen[v] {
				return &FieldError{Entity: entity, Field: f.Name, Reason: fmt.Sprintf("duplicate enum value '%s'", v)}
			}
			valuesSeen[v] = true
		}
	default:
		// Unknown kinds are accepted and later fall back to the string operator set
		if f.Target != "" {
			return &FieldError{Entity: entity, Field: f.Name, Reason: "scalar fields should not have a target"}
		}
		if len(f.Values) > 0 {
			return &FieldError{Entity: entity, Field: f.Name, Reason: "only enum fields can have values"}
		}
	}

	return nil
}

// IsReservedFieldName checks if a name collides with the filter combinator keys
func IsReservedFieldName(name string) bool {
	return name == "AND" || name == "OR"
}

// IsValidIdentifier checks that s is a letter or underscore followed by letters,
// digits or underscores
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
