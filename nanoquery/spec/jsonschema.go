package spec

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

const schemaDraft = "http://json-schema.org/draft-07/schema#"

// FilterValidationError lists the schema violations found in a filter expression
type FilterValidationError struct {
	Entity     string
	Violations []string
}

// Error implements the error interface
func (e *FilterValidationError) Error() string {
	return fmt.Sprintf("invalid filter for %s: %s", e.Entity, strings.Join(e.Violations, "; "))
}

// JSONSchema renders the FilterSpec as a JSON Schema document. Every entity reachable
// through relation slots gets two definitions: <Entity>Filter, which accepts
// AND/OR, and <Entity>Fields, used for nested relation conditions where the
// combinators are not interpreted.
func (s *FilterSpec) JSONSchema() types.Object {
	definitions := types.Object{}
	for _, spec := range s.reachable() {
		definitions = append(definitions,
			types.Member{Key: filterDef(spec.Entity), Value: spec.definition(true)},
			types.Member{Key: fieldsDef(spec.Entity), Value: spec.definition(false)},
		)
	}

	root := ref(filterDef(s.Entity))
	return types.NewObject(
		"$schema", schemaDraft,
		"title", s.Entity+" filter",
		"anyOf", []any{
			root,
			types.NewObject("type", "array", "items", root),
		},
		"definitions", definitions,
	)
}

// Validate checks a decoded filter expression against JSONSchema. Absent and
// empty expressions are always valid.
func (s *FilterSpec) Validate(expr any) error {
	expr = types.Normalize(expr)
	if types.IsEmpty(expr) {
		return nil
	}

	schema, err := s.compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile filter schema for %s: %w", s.Entity, err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(expr))
	if err != nil {
		return fmt.Errorf("failed to validate filter for %s: %w", s.Entity, err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return &FilterValidationError{Entity: s.Entity, Violations: violations}
}

func (s *FilterSpec) compiledSchema() (*gojsonschema.Schema, error) {
	s.schemaOnce.Do(func() {
		s.schema, s.schemaErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.JSONSchema()))
	})
	return s.schema, s.schemaErr
}

// reachable returns s followed by every linked spec reachable from it, each once
func (s *FilterSpec) reachable() []*FilterSpec {
	seen := map[*FilterSpec]bool{s: true}
	queue := []*FilterSpec{s}
	for i := 0; i < len(queue); i++ {
		for _, f := range queue[i].Fields {
			if f.Ref != nil && !seen[f.Ref] {
				seen[f.Ref] = true
				queue = append(queue, f.Ref)
			}
		}
	}
	return queue
}

func (s *FilterSpec) definition(combinators bool) types.Object {
	properties := types.Object{}
	for _, f := range s.Fields {
		properties = append(properties, types.Member{Key: f.Name, Value: f.schema()})
	}
	if combinators {
		self := ref(filterDef(s.Entity))
		list := types.NewObject("type", "array", "items", self)
		if s.SupportsAnd {
			properties = append(properties, types.Member{Key: "AND", Value: list})
		}
		if s.SupportsOr {
			properties = append(properties, types.Member{Key: "OR", Value: list})
		}
	}
	return types.NewObject(
		"type", "object",
		"additionalProperties", false,
		"properties", properties,
	)
}

func (f FilterField) schema() types.Object {
	if f.IsRelation() {
		if f.Ref == nil {
			return types.NewObject("type", "object")
		}
		return ref(fieldsDef(f.Ref.Entity))
	}

	value := valueSchema(f.Kind, f.Values)
	operators := types.Object{}
	for _, op := range f.Operators.Operators {
		operators = append(operators, types.Member{Key: op.String(), Value: operatorSchema(op, value)})
	}
	return types.NewObject(
		"type", "object",
		"additionalProperties", false,
		"minProperties", 1,
		"properties", operators,
	)
}

func valueSchema(kind types.FieldKind, values []string) types.Object {
	switch kind {
	case types.KindNumber:
		return types.NewObject("type", "number")
	case types.KindBoolean:
		return types.NewObject("type", "boolean")
	case types.KindID:
		return types.NewObject("type", []any{"string", "integer"})
	case types.KindEnum:
		if len(values) > 0 {
			enum := make([]any, len(values))
			for i, v := range values {
				enum[i] = v
			}
			return types.NewObject("type", "string", "enum", enum)
		}
	}
	return types.NewObject("type", "string")
}

func operatorSchema(op filter.Operator, value types.Object) types.Object {
	switch op {
	case filter.OpIn, filter.OpNin:
		return types.NewObject("type", "array", "items", value)
	case filter.OpBetween:
		return types.NewObject("type", "array", "items", value, "minItems", 2, "maxItems", 2)
	case filter.OpLike, filter.OpILike:
		return types.NewObject("type", "string")
	case filter.OpIsNull:
		return types.NewObject("type", "boolean")
	case filter.OpRaw:
		return types.Object{}
	}
	return value
}

func ref(name string) types.Object {
	return types.NewObject("$ref", "#/definitions/"+name)
}

func filterDef(entity string) string { return entity + "Filter" }
func fieldsDef(entity string) string { return entity + "Fields" }
