// Package nanoquery ties the registry, the specifications and the query
// assembler together behind one entry point used per request.
//
//	b := registry.NewBuilder()
//	_ = b.RegisterEntity("Order", orderFields)
//	_ = b.RegisterEntity("Customer", customerFields)
//	reg, err := b.FinalizeRelations()
//	...
//	engine := nanoquery.New(reg, nanoquery.WithStrict(true))
//	q, err := engine.Assemble("Order", raw)
package nanoquery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/nanoquery/registry"
	"github.com/arthur-debert/nanoquery/types"
)

// Engine assembles queries for the entities of a finalized registry.
// It is safe for concurrent use.
type Engine struct {
	registry  *registry.Registry
	assembler *query.Assembler
	policy    query.Policy
	strict    bool
	logger    *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger logs lookup failures, rejected expressions and compiler warnings
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPolicy sets the pagination policy
func WithPolicy(p query.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithStrict validates filter and order expressions against the entity's
// specifications before compiling them.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// New creates an engine over reg
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{registry: reg}
	for _, opt := range opts {
		opt(e)
	}

	aopts := []query.Option{query.WithPolicy(e.policy)}
	if e.logger != nil {
		aopts = append(aopts, query.WithLogger(e.logger))
	}
	e.assembler = query.NewAssembler(aopts...)
	return e
}

// Registry returns the registry the engine reads from
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Strict reports whether expressions are validated before compiling
func (e *Engine) Strict() bool {
	return e.strict
}

// Assemble builds the finalized query for one request against entity.
// The entity must be registered; in strict mode the filter and order must
// also conform to its specifications.
func (e *Engine) Assemble(entity string, raw query.RawArgs) (query.Query, error) {
	sortSpec, err := e.registry.SortSpec(entity)
	if err != nil {
		e.log(slog.LevelWarn, "query for unknown entity", "entity", entity, "error", err)
		return query.Query{}, err
	}
	filterSpec, err := e.registry.FilterSpec(entity)
	if err != nil {
		e.log(slog.LevelWarn, "query for unknown entity", "entity", entity, "error", err)
		return query.Query{}, err
	}

	if e.strict {
		if err := filterSpec.Validate(raw.Filter); err != nil {
			e.log(slog.LevelInfo, "filter rejected", "entity", entity, "error", err)
			return query.Query{}, err
		}
		if err := sortSpec.Validate(raw.Order); err != nil {
			e.log(slog.LevelInfo, "order rejected", "entity", entity, "error", err)
			return query.Query{}, err
		}
	}

	q, err := e.assembler.Assemble(raw)
	if err != nil {
		if types.IsInvalidPagination(err) {
			e.log(slog.LevelInfo, "pagination rejected", "entity", entity, "error", err)
		}
		return query.Query{}, fmt.Errorf("assemble %s query: %w", entity, err)
	}
	e.log(slog.LevelDebug, "query assembled", "entity", entity, "skip", q.Skip, "relations", q.Relations)
	return q, nil
}

// AssembleDocument decodes a JSON or YAML arguments document and assembles it
func (e *Engine) AssembleDocument(entity string, data []byte) (query.Query, error) {
	raw, err := query.ParseRawArgs(data)
	if err != nil {
		return query.Query{}, fmt.Errorf("failed to parse query arguments: %w", err)
	}
	return e.Assemble(entity, raw)
}

func (e *Engine) log(level slog.Level, msg string, args ...any) {
	if e.logger != nil {
		e.logger.Log(context.Background(), level, msg, args...)
	}
}
