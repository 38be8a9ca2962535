package spec

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/arthur-debert/nanoquery/types"
)

// FilterField is one slot of a FilterSpec. Scalar slots carry the operator
// schema for their kind; relation slots point at the target's FilterSpec.
type FilterField struct {
	Name      string
	Kind      types.FieldKind
	Operators OperatorSchema
	Values    []string
	Target    string
	Ref       *FilterSpec
}

// IsRelation reports whether the slot nests another filter spec
func (f FilterField) IsRelation() bool {
	return f.Target != ""
}

// FilterSpec lists the fields and operators an entity's results may be
// constrained by. AND and OR accept lists of nodes shaped like the FilterSpec itself.
type FilterSpec struct {
	Entity      string
	Fields      []FilterField
	SupportsAnd bool
	SupportsOr  bool

	index map[string]int

	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
}

// BuildFilterSpec projects the filterable fields of an entity. Relation slots
// are left unresolved until LinkFilterSpecs runs.
func BuildFilterSpec(entity types.EntitySpec) *FilterSpec {
	s := &FilterSpec{
		Entity:      entity.Name,
		SupportsAnd: true,
		SupportsOr:  true,
		index:       make(map[string]int),
	}
	for _, f := range entity.Fields {
		if !f.Filterable {
			continue
		}
		field := FilterField{Name: f.Name, Kind: f.Kind}
		if f.IsRelation() {
			field.Target = f.Target
		} else {
			field.Operators = NewOperatorSchema(f.Kind)
			if len(f.Values) > 0 {
				field.Values = append([]string(nil), f.Values...)
			}
		}
		s.index[f.Name] = len(s.Fields)
		s.Fields = append(s.Fields, field)
	}
	return s
}

// LinkFilterSpecs resolves every relation slot against specs, keyed by entity name
func LinkFilterSpecs(specs map[string]*FilterSpec) error {
	for _, name := range sortedKeys(specs) {
		s := specs[name]
		for i := range s.Fields {
			f := &s.Fields[i]
			if !f.IsRelation() {
				continue
			}
			target, ok := specs[f.Target]
			if !ok {
				return fmt.Errorf("filter spec %s.%s: %w", s.Entity, f.Name, &types.SpecNotFoundError{Entity: f.Target})
			}
			f.Ref = target
		}
	}
	return nil
}

// Field returns the slot with the given name
func (s *FilterSpec) Field(name string) (FilterField, bool) {
	i, ok := s.index[name]
	if !ok {
		return FilterField{}, false
	}
	return s.Fields[i], true
}
