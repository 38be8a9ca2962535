package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/nanoquery/types"
)

// Sort directions accepted by a sort leaf
const (
	ASC  = "ASC"
	DESC = "DESC"
)

// IsDirection reports whether v is the literal ASC or DESC
func IsDirection(v any) bool {
	s, ok := v.(string)
	return ok && (s == ASC || s == DESC)
}

// SortField is one slot of a SortSpec. A field without a Target is a leaf that
// accepts ASC or DESC; a relation field points at the target's SortSpec.
type SortField struct {
	Name   string
	Target string
	Ref    *SortSpec
}

// IsRelation reports whether the slot nests another sort spec
func (f SortField) IsRelation() bool {
	return f.Target != ""
}

// SortSpec lists the fields an entity's results may be ordered by
type SortSpec struct {
	Entity string
	Fields []SortField
	index  map[string]int
}

// BuildSortSpec projects the sortable fields of an entity. Relation slots are
// left unresolved until LinkSortSpecs runs.
func BuildSortSpec(entity types.EntitySpec) *SortSpec {
	s := &SortSpec{
		Entity: entity.Name,
		index:  make(map[string]int),
	}
	for _, f := range entity.Fields {
		if !f.Sortable {
			continue
		}
		field := SortField{Name: f.Name}
		if f.IsRelation() {
			field.Target = f.Target
		}
		s.index[f.Name] = len(s.Fields)
		s.Fields = append(s.Fields, field)
	}
	return s
}

// LinkSortSpecs resolves every relation slot against specs, keyed by entity name.
// Cycles are fine: slots hold pointers.
func LinkSortSpecs(specs map[string]*SortSpec) error {
	for _, name := range sortedKeys(specs) {
		s := specs[name]
		for i := range s.Fields {
			f := &s.Fields[i]
			if !f.IsRelation() {
				continue
			}
			target, ok := specs[f.Target]
			if !ok {
				return fmt.Errorf("sort spec %s.%s: %w", s.Entity, f.Name, &types.SpecNotFoundError{Entity: f.Target})
			}
			f.Ref = target
		}
	}
	return nil
}

// Field returns the slot with the given name
func (s *SortSpec) Field(name string) (SortField, bool) {
	i, ok := s.index[name]
	if !ok {
		return SortField{}, false
	}
	return s.Fields[i], true
}

// Lookup resolves a dotted path such as "customer.lastName" through nested specs
func (s *SortSpec) Lookup(path string) (SortField, error) {
	parts := strings.Split(path, ".")
	current := s
	for i, part := range parts {
		field, ok := current.Field(part)
		if !ok {
			return SortField{}, fmt.Errorf("sort field %q not found on %s", part, current.Entity)
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if !field.IsRelation() {
			return SortField{}, fmt.Errorf("sort field %s.%s is not a relation", current.Entity, part)
		}
		if field.Ref == nil {
			return SortField{}, fmt.Errorf("sort field %s.%s is not linked", current.Entity, part)
		}
		current = field.Ref
	}
	return SortField{}, fmt.Errorf("empty sort path")
}

// SortValidationError lists the problems found in a sort expression
type SortValidationError struct {
	Entity     string
	Violations []string
}

// Error implements the error interface
func (e *SortValidationError) Error() string {
	return fmt.Sprintf("invalid sort for %s: %s", e.Entity, strings.Join(e.Violations, "; "))
}

// Validate checks a sort expression against the SortSpec: leaves take ASC or DESC,
// relation slots take a nested sort object.
func (s *SortSpec) Validate(order types.Object) error {
	var violations []string
	s.validate("", order, &violations)
	if len(violations) == 0 {
		return nil
	}
	return &SortValidationError{Entity: s.Entity, Violations: violations}
}

func (s *SortSpec) validate(prefix string, order types.Object, violations *[]string) {
	for _, m := range order {
		path := prefix + m.Key
		field, ok := s.Field(m.Key)
		if !ok {
			*violations = append(*violations, fmt.Sprintf("%s: unknown sort field", path))
			continue
		}

		switch v := m.Value.(type) {
		case nil:
		case string:
			if field.IsRelation() {
				*violations = append(*violations, fmt.Sprintf("%s: relation field requires a nested sort object", path))
			} else if !IsDirection(v) {
				*violations = append(*violations, fmt.Sprintf("%s: invalid direction %q, expected ASC or DESC", path, v))
			}
		case types.Object:
			if !field.IsRelation() {
				*violations = append(*violations, fmt.Sprintf("%s: scalar field expects ASC or DESC", path))
			} else if field.Ref == nil {
				*violations = append(*violations, fmt.Sprintf("%s: relation is not linked", path))
			} else {
				field.Ref.validate(path+".", v, violations)
			}
		default:
			*violations = append(*violations, fmt.Sprintf("%s: unsupported value of type %T", path, m.Value))
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
