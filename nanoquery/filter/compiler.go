// Package filter compiles client filter expressions into the predicate
// structure consumed by the storage layer.
//
// The grammar uses named operators and AND/OR combinators:
//
//	{ "AND": [
//	    { "status": { "eq": "ACTIVE" } },
//	    { "OR": [ { "total": { "gt": 50 } }, { "isVip": { "eq": true } } ] }
//	]}
//
// Compilation is permissive: malformed shapes degrade to best-effort
// pass-through instead of failing. Use spec.FilterSpec.Validate first when
// strict checking is wanted.
package filter

import (
	"log/slog"

	"github.com/arthur-debert/nanoquery/types"
)

const (
	keyAnd = "AND"
	keyOr  = "OR"
)

// Compiler translates filter expressions. The zero value is ready to use and
// logs nothing; compilers are stateless and safe for concurrent use.
type Compiler struct {
	logger *slog.Logger
}

// Option configures a Compiler
type Option func(*Compiler)

// WithLogger makes the compiler report discarded operators and collapsed
// disjunctions at warn level
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// NewCompiler creates a compiler with the given options
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles node with a silent compiler
func Compile(node any) Predicate {
	var c Compiler
	return c.Compile(node)
}

// Compile translates a filter expression into a Predicate. node may be a
// decoded types.Object, a []any (implicit OR), Go maps (keys are taken in
// sorted order) or nil. The input is never modified.
func (c *Compiler) Compile(node any) Predicate {
	return c.compile(types.Normalize(node))
}

func (c *Compiler) compile(node any) Predicate {
	switch n := node.(type) {
	case nil:
		return Conjunction{}
	case []any:
		return c.compileList(n)
	case types.Object:
		if len(n) == 0 {
			return Conjunction{}
		}
		if v, ok := n.Get(keyOr); ok {
			if children, ok := v.([]any); ok {
				return c.compileOr(children)
			}
		}
		if v, ok := n.Get(keyAnd); ok {
			if children, ok := v.([]any); ok {
				return c.compileAnd(children)
			}
		}
		return c.convertObject(n)
	default:
		c.debug("ignoring scalar filter node", "value", node)
		return Conjunction{}
	}
}

// compileList treats a bare array as an implicit OR
func (c *Compiler) compileList(items []any) Predicate {
	if len(items) == 0 {
		return Conjunction{}
	}

	results := make(Disjunction, 0, len(items))
	for _, item := range items {
		switch p := c.compile(item).(type) {
		case Conjunction:
			results = append(results, p)
		case Disjunction:
			results = append(results, p...)
		}
	}

	if len(results) == 1 {
		return results[0]
	}
	return results
}

// compileOr keeps only the first disjunct of a nested disjunction
func (c *Compiler) compileOr(children []any) Predicate {
	results := make(Disjunction, 0, len(children))
	for i, child := range children {
		if conj, ok := c.first(keyOr, i, c.compile(child)); ok {
			results = append(results, conj)
		}
	}
	return results
}

// compileAnd shallow-merges the children; on key collision the later child wins
func (c *Compiler) compileAnd(children []any) Predicate {
	merged := Conjunction{}
	for i, child := range children {
		conj, ok := c.first(keyAnd, i, c.compile(child))
		if !ok {
			continue
		}
		for field, value := range conj {
			merged[field] = value
		}
	}
	return merged
}

// first reduces a compiled child to one conjunction
func (c *Compiler) first(combinator string, index int, p Predicate) (Conjunction, bool) {
	switch v := p.(type) {
	case Conjunction:
		return v, true
	case Disjunction:
		if len(v) == 0 {
			return nil, false
		}
		if len(v) > 1 {
			c.warn("nested disjunction collapsed to its first branch",
				"combinator", combinator,
				"child", index,
				"discarded_branches", len(v)-1)
		}
		return v[0], true
	}
	return nil, false
}

// convertObject converts a field-condition map, skipping combinator keys
func (c *Compiler) convertObject(obj types.Object) Conjunction {
	out := make(Conjunction, len(obj))
	for _, m := range obj {
		if m.Key == keyAnd || m.Key == keyOr {
			continue
		}
		out[m.Key] = c.convertValue(m.Key, m.Value)
	}
	return out
}

func (c *Compiler) convertValue(field string, value any) any {
	obj, ok := value.(types.Object)
	if !ok {
		return value
	}

	for _, m := range obj {
		if !ParseOperator(m.Key).IsKnown() {
			// Not an operator object, a nested filter for a relation
			return c.convertObject(obj)
		}
	}
	if len(obj) == 0 {
		return Conjunction{}
	}

	if len(obj) > 1 {
		discarded := make([]string, 0, len(obj)-1)
		for _, m := range obj[1:] {
			discarded = append(discarded, m.Key)
		}
		c.warn("ambiguous field condition, applying first operator only",
			"field", field,
			"applied", obj[0].Key,
			"discarded", discarded)
	}

	return ParseOperator(obj[0].Key).Apply(obj[0].Value)
}

func (c *Compiler) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Compiler) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
