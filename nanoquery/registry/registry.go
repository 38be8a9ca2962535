// Package registry holds the field metadata of every entity and the sort and
// filter specs derived from it.
//
// Entities reference each other circularly, so bootstrap runs in two phases:
//
//	b := registry.NewBuilder()
//	b.RegisterEntity("Order", orderFields)       // phase 1, any order
//	b.RegisterEntity("Customer", customerFields)
//	reg, err := b.FinalizeRelations()            // phase 2
//
// The returned Registry is immutable and safe for concurrent readers.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/arthur-debert/nanoquery/internal/validation"
	"github.com/arthur-debert/nanoquery/nanoquery/spec"
	"github.com/arthur-debert/nanoquery/types"
)

var (
	// ErrRelationsPending is returned when an entity is read before its relation fields are resolved
	ErrRelationsPending = errors.New("relation fields not finalized")

	// ErrFinalized is returned when registering after FinalizeRelations
	ErrFinalized = errors.New("registry is finalized, no further registration allowed")

	// ErrAlreadyFinalized is returned by a second call to FinalizeRelations
	ErrAlreadyFinalized = errors.New("relations already finalized")
)

type entry struct {
	spec    types.EntitySpec
	pending []types.FieldDescriptor
}

// Builder collects entity declarations during bootstrap. It is not safe for
// concurrent use.
type Builder struct {
	entries   map[string]*entry
	order     []string
	finalized bool
	logger    *slog.Logger
}

// Option configures a Builder
type Option func(*Builder)

// WithLogger reports registration progress at debug level
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates an empty builder
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{entries: make(map[string]*entry)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterEntity declares an entity. Scalar fields are stored immediately,
// relation fields are held back until FinalizeRelations. Fields that are
// neither sortable nor filterable are dropped. Registering the same name again
// replaces the earlier declaration.
func (b *Builder) RegisterEntity(name string, fields []types.FieldDescriptor) error {
	if b.finalized {
		return fmt.Errorf("register %s: %w", name, ErrFinalized)
	}
	if err := validation.ValidateEntity(name, fields); err != nil {
		return err
	}

	e := &entry{spec: types.EntitySpec{Name: name}}
	for _, f := range fields {
		if !f.Sortable && !f.Filterable {
			b.debug("dropping field that is neither sortable nor filterable", "entity", name, "field", f.Name)
			continue
		}
		if !f.Kind.IsKnown() {
			b.warn("unknown field kind, using string operators", "entity", name, "field", f.Name, "kind", f.Kind.String())
		}
		if f.Values != nil {
			f.Values = append([]string(nil), f.Values...)
		}
		if f.IsRelation() {
			e.pending = append(e.pending, f)
		} else {
			e.spec.Fields = append(e.spec.Fields, f)
		}
	}

	if _, exists := b.entries[name]; exists {
		b.debug("entity re-registered, replacing earlier declaration", "entity", name)
	} else {
		b.order = append(b.order, name)
	}
	b.entries[name] = e
	b.debug("entity registered", "entity", name, "scalars", len(e.spec.Fields), "relations", len(e.pending))
	return nil
}

// Get returns the phase-1 view of an entity. It fails with ErrRelationsPending
// while the entity still has unresolved relation fields.
func (b *Builder) Get(name string) (types.EntitySpec, error) {
	e, ok := b.entries[name]
	if !ok {
		return types.EntitySpec{}, &types.SpecNotFoundError{Entity: name}
	}
	if len(e.pending) > 0 {
		return types.EntitySpec{}, fmt.Errorf("entity %s: %w", name, ErrRelationsPending)
	}
	return e.spec.Clone(), nil
}

// FinalizeRelations runs phase 2: every declared relation field is checked
// against the registered entities and appended to its owner, then all sort and
// filter specs are built and linked. It may be called once.
func (b *Builder) FinalizeRelations() (*Registry, error) {
	if b.finalized {
		return nil, ErrAlreadyFinalized
	}

	for _, name := range b.order {
		e := b.entries[name]
		for _, f := range e.pending {
			if _, ok := b.entries[f.Target]; !ok {
				return nil, fmt.Errorf("entity %s relation %s: %w", name, f.Name, &types.SpecNotFoundError{Entity: f.Target})
			}
		}
	}

	reg := &Registry{
		entities: make(map[string]types.EntitySpec, len(b.entries)),
		sorts:    make(map[string]*spec.SortSpec, len(b.entries)),
		filters:  make(map[string]*spec.FilterSpec, len(b.entries)),
	}
	for _, name := range b.order {
		e := b.entries[name]
		e.spec.Fields = append(e.spec.Fields, e.pending...)
		e.pending = nil

		published := e.spec.Clone()
		reg.entities[name] = published
		reg.sorts[name] = spec.BuildSortSpec(published)
		reg.filters[name] = spec.BuildFilterSpec(published)
	}

	if err := spec.LinkSortSpecs(reg.sorts); err != nil {
		return nil, err
	}
	if err := spec.LinkFilterSpecs(reg.filters); err != nil {
		return nil, err
	}

	b.finalized = true
	reg.names = sortedNames(reg.entities)
	b.debug("relations finalized", "entities", len(reg.names))
	return reg, nil
}

func (b *Builder) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Builder) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
