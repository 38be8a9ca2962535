package query

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/spec"
	"github.com/arthur-debert/nanoquery/types"
)

// Policy decides what happens to out-of-range pagination values
type Policy int

const (
	// PolicyReject fails with InvalidPaginationError
	PolicyReject Policy = iota
	// PolicyClamp moves skip up to 0 and take up to 1
	PolicyClamp
)

// String returns the policy name used in configuration
func (p Policy) String() string {
	switch p {
	case PolicyReject:
		return "reject"
	case PolicyClamp:
		return "clamp"
	default:
		return "unknown"
	}
}

// ParsePolicy converts "reject" or "clamp" into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "reject":
		return PolicyReject, nil
	case "clamp":
		return PolicyClamp, nil
	default:
		return PolicyReject, fmt.Errorf("unknown pagination policy %q", s)
	}
}

// Assembler turns RawArgs into a Query. It holds no per-request state and is
// safe for concurrent use.
type Assembler struct {
	policy   Policy
	compiler *filter.Compiler
	logger   *slog.Logger
}

// Option configures an Assembler
type Option func(*Assembler)

// WithPolicy sets the pagination policy
func WithPolicy(p Policy) Option {
	return func(a *Assembler) {
		a.policy = p
	}
}

// WithLogger passes logger to the filter compiler and logs clamped values
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates an assembler, rejecting bad pagination by default
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger != nil {
		a.compiler = filter.NewCompiler(filter.WithLogger(a.logger))
	} else {
		a.compiler = filter.NewCompiler()
	}
	return a
}

// Assemble uses a default assembler
func Assemble(raw RawArgs) (Query, error) {
	return NewAssembler().Assemble(raw)
}

// Assemble validates pagination, compiles the filter, passes the order through
// and infers the relations the order expression needs joined.
func (a *Assembler) Assemble(raw RawArgs) (Query, error) {
	q := Query{Order: raw.Order}

	if raw.Skip != nil {
		q.Skip = *raw.Skip
		if q.Skip < 0 {
			if a.policy != PolicyClamp {
				return Query{}, &types.InvalidPaginationError{Field: "skip", Value: q.Skip}
			}
			a.debug("clamping skip", "value", q.Skip)
			q.Skip = 0
		}
	}

	if raw.Take != nil {
		take := *raw.Take
		if take < 1 {
			if a.policy != PolicyClamp {
				return Query{}, &types.InvalidPaginationError{Field: "take", Value: take}
			}
			a.debug("clamping take", "value", take)
			take = 1
		}
		q.Take = &take
	}

	q.Where = a.compiler.Compile(raw.Filter)
	if d, ok := q.Where.(filter.Disjunction); ok && len(d) == 0 {
		q.Where = filter.Conjunction{}
	}

	q.Relations = InferRelations(raw.Order)
	return q, nil
}

// InferRelations returns the top-level order keys whose value is not ASC or
// DESC, in first-seen order without duplicates. Those keys hold nested sort
// objects and name relations the storage layer must join. A null value is an
// absent leaf, not a relation.
func InferRelations(order types.Object) []string {
	relations := []string{}
	seen := make(map[string]bool)
	for _, m := range order {
		if m.Value == nil || spec.IsDirection(m.Value) || seen[m.Key] {
			continue
		}
		seen[m.Key] = true
		relations = append(relations, m.Key)
	}
	return relations
}

func (a *Assembler) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
