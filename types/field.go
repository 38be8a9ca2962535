package types

import (
	"fmt"
	"strings"
)

// FieldKind is the semantic value kind of an entity field
type FieldKind int

const (
	// KindString is free text
	KindString FieldKind = iota
	// KindNumber covers integers and decimals
	KindNumber
	// KindBoolean is true/false
	KindBoolean
	// KindDate is a date or timestamp
	KindDate
	// KindID is an opaque identifier
	KindID
	// KindEnum is a string restricted to a fixed value list
	KindEnum
	// KindRelation references another entity by name
	KindRelation
)

// KindUnknown marks a kind name that is not recognized. It is kept as a
// scalar and filtered with the string operator set.
const KindUnknown FieldKind = -1

var kindNames = map[FieldKind]string{
	KindString:   "string",
	KindNumber:   "number",
	KindBoolean:  "boolean",
	KindDate:     "date",
	KindID:       "id",
	KindEnum:     "enum",
	KindRelation: "relation",
	KindUnknown:  "unknown",
}

// String returns the string representation of the FieldKind
func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsKnown reports whether k is one of the declared kinds
func (k FieldKind) IsKnown() bool {
	_, ok := kindNames[k]
	return ok && k != KindUnknown
}

// IsScalar reports whether the kind holds a value rather than a reference
func (k FieldKind) IsScalar() bool {
	return k != KindRelation
}

// ParseFieldKind converts a kind name ("string", "number", ...) into a FieldKind.
// Matching is case-insensitive; "int", "float" and "decimal" are accepted as number,
// "bool" as boolean, "datetime" and "timestamp" as date, "uuid" as id and "ref" as relation.
// "unknown" parses to KindUnknown; any other name returns KindUnknown and an error.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return KindString, nil
	case "number", "int", "integer", "float", "decimal":
		return KindNumber, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "date", "datetime", "timestamp":
		return KindDate, nil
	case "id", "uuid":
		return KindID, nil
	case "enum":
		return KindEnum, nil
	case "relation", "ref":
		return KindRelation, nil
	case "unknown":
		return KindUnknown, nil
	default:
		return KindUnknown, fmt.Errorf("unknown field kind %q", s)
	}
}

// FieldDescriptor describes one entity field: its name, its value kind and
// whether clients may sort or filter by it.
type FieldDescriptor struct {
	// Name is the field identifier used in sort and filter expressions
	Name string

	// Kind is the semantic value kind; it never changes after registration
	Kind FieldKind

	// Target names the referenced entity for relation fields.
	// Must be empty for scalar fields.
	Target string

	Sortable   bool
	Filterable bool

	// Values lists the allowed values of an enum field. Informational only,
	// the compiler does not enforce it.
	Values []string
}

// IsRelation reports whether the field references another entity
func (f FieldDescriptor) IsRelation() bool {
	return f.Kind == KindRelation
}

// Scalar returns a sortable and filterable scalar field descriptor
func Scalar(name string, kind FieldKind) FieldDescriptor {
	return FieldDescriptor{Name: name, Kind: kind, Sortable: true, Filterable: true}
}

// Relation returns a sortable and filterable relation field descriptor
func Relation(name, target string) FieldDescriptor {
	return FieldDescriptor{Name: name, Kind: KindRelation, Target: target, Sortable: true, Filterable: true}
}

// SortOnly returns a copy of the descriptor that can be sorted but not filtered
func (f FieldDescriptor) SortOnly() FieldDescriptor {
	f.Sortable, f.Filterable = true, false
	return f
}

// FilterOnly returns a copy of the descriptor that can be filtered but not sorted
func (f FieldDescriptor) FilterOnly() FieldDescriptor {
	f.Sortable, f.Filterable = false, true
	return f
}

// EntitySpec is the published field metadata of one entity
type EntitySpec struct {
	Name   string
	Fields []FieldDescriptor
}

// Field returns the descriptor with the given name
func (e EntitySpec) Field(name string) (FieldDescriptor, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// RelationFields returns only the relation fields
func (e EntitySpec) RelationFields() []FieldDescriptor {
	var result []FieldDescriptor
	for _, f := range e.Fields {
		if f.IsRelation() {
			result = append(result, f)
		}
	}
	return result
}

// Clone returns a deep copy so published specs cannot be mutated through shared slices
func (e EntitySpec) Clone() EntitySpec {
	fields := make([]FieldDescriptor, len(e.Fields))
	for i, f := range e.Fields {
		if f.Values != nil {
			f.Values = append([]string(nil), f.Values...)
		}
		fields[i] = f
	}
	return EntitySpec{Name: e.Name, Fields: fields}
}
