// Package sqlwhere renders finalized queries as SQL with squirrel.
//
// Column conditions map onto squirrel's comparison types; a relation condition
// qualifies its columns with the relation name, which SelectBuilder joins under
// that alias. Raw expressions are written into the statement verbatim: callers
// must only pass raw values they trust.
package sqlwhere

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/nanoquery/internal/validation"
	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/nanoquery/spec"
	"github.com/arthur-debert/nanoquery/types"
)

// JoinFunc returns the clause following LEFT JOIN for a relation of table
type JoinFunc func(table, relation string) (string, error)

// Renderer converts predicates and queries for one base table
type Renderer struct {
	table       string
	placeholder sq.PlaceholderFormat
	join        JoinFunc
}

// Option configures a Renderer
type Option func(*Renderer)

// WithPlaceholder sets the bind parameter style, e.g. sq.Dollar for PostgreSQL
func WithPlaceholder(p sq.PlaceholderFormat) Option {
	return func(r *Renderer) {
		r.placeholder = p
	}
}

// WithJoin replaces the default join convention
func WithJoin(fn JoinFunc) Option {
	return func(r *Renderer) {
		r.join = fn
	}
}

// New creates a renderer. With an empty table, top-level columns are left unqualified.
func New(table string, opts ...Option) *Renderer {
	r := &Renderer{
		table:       table,
		placeholder: sq.Question,
		join:        DefaultJoin,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultJoin joins the relation's table, named after the relation, on
// <relation>.id = <table>.<relation>_id
func DefaultJoin(table, relation string) (string, error) {
	return fmt.Sprintf("%s ON %s.%s = %s.%s",
		quote(relation), quote(relation), quote("id"), quote(table), quote(relation+"_id")), nil
}

// EntityJoins joins each relation of entity to its target entity's table,
// aliased with the relation name
func EntityJoins(entity types.EntitySpec) JoinFunc {
	return func(table, relation string) (string, error) {
		f, ok := entity.Field(relation)
		if !ok || !f.IsRelation() {
			return "", fmt.Errorf("%s has no relation %q", entity.Name, relation)
		}
		return fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
			quote(f.Target), quote(relation), quote(relation), quote("id"), quote(table), quote(relation+"_id")), nil
	}
}

// Where renders a predicate with unqualified top-level columns. An empty
// predicate renders as nil: no WHERE clause.
func Where(p filter.Predicate) (sq.Sqlizer, error) {
	return New("").Where(p)
}

// Where renders a predicate. Conjunction fields are emitted in sorted order.
func (r *Renderer) Where(p filter.Predicate) (sq.Sqlizer, error) {
	switch v := p.(type) {
	case nil:
		return nil, nil
	case filter.Conjunction:
		if len(v) == 0 {
			return nil, nil
		}
		return r.conjunction(r.table, v, 0)
	case filter.Disjunction:
		if len(v) == 0 {
			return nil, nil
		}
		or := make(sq.Or, 0, len(v))
		for _, c := range v {
			cond, err := r.conjunction(r.table, c, 0)
			if err != nil {
				return nil, err
			}
			if cond == nil {
				// an empty branch matches everything
				return nil, nil
			}
			or = append(or, cond)
		}
		return or, nil
	default:
		return nil, fmt.Errorf("unsupported predicate %T", p)
	}
}

func (r *Renderer) conjunction(qualifier string, c filter.Conjunction, depth int) (sq.Sqlizer, error) {
	fields := make([]string, 0, len(c))
	for field := range c {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	and := make(sq.And, 0, len(fields))
	for _, field := range fields {
		if !validation.IsValidIdentifier(field) {
			return nil, fmt.Errorf("invalid column name %q", field)
		}
		value := c[field]

		if nested, ok := value.(filter.Conjunction); ok {
			if depth > 0 {
				return nil, fmt.Errorf("relation %s: conditions nested more than one relation deep are not supported", field)
			}
			cond, err := r.conjunction(field, nested, depth+1)
			if err != nil {
				return nil, err
			}
			if cond != nil {
				and = append(and, cond)
			}
			continue
		}

		cond, err := condition(column(qualifier, field), value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field, err)
		}
		and = append(and, cond)
	}

	switch len(and) {
	case 0:
		return nil, nil
	case 1:
		return and[0], nil
	default:
		return and, nil
	}
}

func condition(col string, value any) (sq.Sqlizer, error) {
	switch v := value.(type) {
	case filter.Not:
		return negate(col, v.Value)
	case filter.In:
		return sq.Eq{col: v.Values}, nil
	case filter.Range:
		switch v.Op {
		case filter.OpGt:
			return sq.Gt{col: v.Value}, nil
		case filter.OpGte:
			return sq.GtOrEq{col: v.Value}, nil
		case filter.OpLt:
			return sq.Lt{col: v.Value}, nil
		case filter.OpLte:
			return sq.LtOrEq{col: v.Value}, nil
		}
		return nil, fmt.Errorf("unsupported range operator %s", v.Op)
	case filter.Between:
		return sq.Expr(col+" BETWEEN ? AND ?", v.Low, v.High), nil
	case filter.Pattern:
		if v.CaseInsensitive {
			return sq.ILike{col: v.Pattern}, nil
		}
		return sq.Like{col: v.Pattern}, nil
	case filter.IsNull:
		return sq.Eq{col: nil}, nil
	case filter.Raw:
		expr, ok := v.Expr.(string)
		if !ok {
			return nil, fmt.Errorf("raw condition on %s must be a string, got %T", col, v.Expr)
		}
		if strings.Contains(expr, "?") {
			return nil, fmt.Errorf("raw condition on %s must not contain placeholders", col)
		}
		return sq.Expr(col + " = " + expr), nil
	case filter.Conjunction:
		return nil, fmt.Errorf("unexpected nested condition")
	case types.Object:
		return nil, fmt.Errorf("cannot compare %s with an object", col)
	default:
		// plain values and lists: squirrel renders slices as IN
		return sq.Eq{col: v}, nil
	}
}

func negate(col string, value any) (sq.Sqlizer, error) {
	switch v := value.(type) {
	case filter.In:
		return sq.NotEq{col: v.Values}, nil
	case filter.IsNull:
		return sq.NotEq{col: nil}, nil
	case filter.Pattern:
		if v.CaseInsensitive {
			return sq.NotILike{col: v.Pattern}, nil
		}
		return sq.NotLike{col: v.Pattern}, nil
	case filter.Comparator:
		inner, err := condition(col, v)
		if err != nil {
			return nil, err
		}
		sql, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT ("+sql+")", args...), nil
	case types.Object:
		return nil, fmt.Errorf("cannot compare %s with an object", col)
	default:
		return sq.NotEq{col: v}, nil
	}
}

// Select builds a SELECT over the renderer's table applying the query's
// filter, order, pagination and relation joins
func (r *Renderer) Select(q query.Query, columns ...string) (sq.SelectBuilder, error) {
	if r.table == "" {
		return sq.SelectBuilder{}, fmt.Errorf("select requires a table name")
	}
	if !validation.IsValidIdentifier(r.table) {
		return sq.SelectBuilder{}, fmt.Errorf("invalid table name %q", r.table)
	}
	if len(columns) == 0 {
		columns = []string{quote(r.table) + ".*"}
	}

	b := sq.Select(columns...).From(quote(r.table)).PlaceholderFormat(r.placeholder)

	for _, relation := range joinedRelations(q) {
		if !validation.IsValidIdentifier(relation) {
			return sq.SelectBuilder{}, fmt.Errorf("invalid relation name %q", relation)
		}
		clause, err := r.join(r.table, relation)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		b = b.LeftJoin(clause)
	}

	where, err := r.Where(q.Where)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	if where != nil {
		b = b.Where(where)
	}

	orderBy, err := r.orderBy(r.table, q.Order, 0)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	if len(orderBy) > 0 {
		b = b.OrderBy(orderBy...)
	}

	if q.Take != nil {
		b = b.Limit(uint64(*q.Take))
	}
	if q.Skip > 0 {
		b = b.Offset(uint64(q.Skip))
	}
	return b, nil
}

func (r *Renderer) orderBy(qualifier string, order types.Object, depth int) ([]string, error) {
	var clauses []string
	for _, m := range order {
		if !validation.IsValidIdentifier(m.Key) {
			return nil, fmt.Errorf("invalid order column %q", m.Key)
		}
		switch v := m.Value.(type) {
		case nil:
		case string:
			if !spec.IsDirection(v) {
				return nil, fmt.Errorf("order %s: invalid direction %q", m.Key, v)
			}
			clauses = append(clauses, column(qualifier, m.Key)+" "+v)
		case types.Object:
			if depth > 0 {
				return nil, fmt.Errorf("order %s: nesting more than one relation deep is not supported", m.Key)
			}
			nested, err := r.orderBy(m.Key, v, depth+1)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, nested...)
		default:
			return nil, fmt.Errorf("order %s: unsupported value of type %T", m.Key, m.Value)
		}
	}
	return clauses, nil
}

// joinedRelations returns the order relations followed by the relations the
// filter references, without duplicates
func joinedRelations(q query.Query) []string {
	seen := make(map[string]bool)
	var relations []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			relations = append(relations, name)
		}
	}
	for _, name := range q.Relations {
		add(name)
	}

	var conjunctions []filter.Conjunction
	switch w := q.Where.(type) {
	case filter.Conjunction:
		conjunctions = []filter.Conjunction{w}
	case filter.Disjunction:
		conjunctions = w
	}
	for _, c := range conjunctions {
		var names []string
		for field, value := range c {
			if _, ok := value.(filter.Conjunction); ok {
				names = append(names, field)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			add(name)
		}
	}
	return relations
}

func column(qualifier, name string) string {
	if qualifier == "" {
		return quote(name)
	}
	return quote(qualifier) + "." + quote(name)
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
