package registry

import (
	"sort"

	"github.com/arthur-debert/nanoquery/nanoquery/spec"
	"github.com/arthur-debert/nanoquery/types"
)

// Registry is the finalized, read-only view of every entity and its specs
type Registry struct {
	entities map[string]types.EntitySpec
	sorts    map[string]*spec.SortSpec
	filters  map[string]*spec.FilterSpec
	names    []string
}

// Get returns a copy of the entity's field metadata
func (r *Registry) Get(name string) (types.EntitySpec, error) {
	e, ok := r.entities[name]
	if !ok {
		return types.EntitySpec{}, &types.SpecNotFoundError{Entity: name}
	}
	return e.Clone(), nil
}

// SortSpec returns the entity's sort spec
func (r *Registry) SortSpec(name string) (*spec.SortSpec, error) {
	s, ok := r.sorts[name]
	if !ok {
		return nil, &types.SpecNotFoundError{Entity: name}
	}
	return s, nil
}

// FilterSpec returns the entity's filter spec
func (r *Registry) FilterSpec(name string) (*spec.FilterSpec, error) {
	s, ok := r.filters[name]
	if !ok {
		return nil, &types.SpecNotFoundError{Entity: name}
	}
	return s, nil
}

// Entities returns the registered entity names in sorted order
func (r *Registry) Entities() []string {
	return append([]string(nil), r.names...)
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.entities[name]
	return ok
}

func sortedNames(m map[string]types.EntitySpec) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
