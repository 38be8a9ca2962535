// Package memory evaluates finalized queries against in-memory records. It is
// the reference storage backend used by the CLI and in tests: records are
// decoded documents where relation fields hold nested objects.
package memory

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/nanoquery/spec"
	"github.com/arthur-debert/nanoquery/types"
)

// ErrRawUnsupported is returned when a predicate carries a raw expression,
// which only a query language backend can interpret
var ErrRawUnsupported = errors.New("raw expressions cannot be evaluated in memory")

// Execute filters, sorts and paginates records. The input slice is not modified.
func Execute(records []types.Object, q query.Query) ([]types.Object, error) {
	result := make([]types.Object, 0, len(records))
	for _, rec := range records {
		ok, err := Matches(rec, q.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, rec)
		}
	}

	clauses, err := orderClauses(nil, q.Order)
	if err != nil {
		return nil, err
	}
	if len(clauses) > 0 {
		sortRecords(result, clauses)
	}

	if q.Skip > 0 {
		if q.Skip >= len(result) {
			result = []types.Object{}
		} else {
			result = result[q.Skip:]
		}
	}
	if q.Take != nil && *q.Take < len(result) {
		result = result[:*q.Take]
	}

	return result, nil
}

// Matches reports whether rec satisfies the predicate
func Matches(rec types.Object, p filter.Predicate) (bool, error) {
	switch v := p.(type) {
	case nil:
		return true, nil
	case filter.Conjunction:
		return matchConjunction(rec, v)
	case filter.Disjunction:
		if len(v) == 0 {
			return true, nil
		}
		for _, c := range v {
			ok, err := matchConjunction(rec, c)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unsupported predicate %T", p)
	}
}

func matchConjunction(rec types.Object, c filter.Conjunction) (bool, error) {
	// sorted so a raw expression is reported the same way every time
	fields := make([]string, 0, len(c))
	for field := range c {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		value, _ := rec.Get(field)
		ok, err := matchValue(value, c[field])
		if err != nil {
			return false, fmt.Errorf("field %s: %w", field, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchValue(actual, cond any) (bool, error) {
	switch c := cond.(type) {
	case filter.Conjunction:
		switch nested := actual.(type) {
		case types.Object:
			return matchConjunction(nested, c)
		case []any:
			// to-many relation: any related record may match
			for _, item := range nested {
				rec, ok := item.(types.Object)
				if !ok {
					continue
				}
				matched, err := matchConjunction(rec, c)
				if err != nil || matched {
					return matched, err
				}
			}
		}
		return false, nil
	case filter.Not:
		ok, err := matchValue(actual, c.Value)
		return !ok, err
	case filter.In:
		return contains(c.Values, actual), nil
	case filter.Range:
		if actual == nil {
			return false, nil
		}
		cmp := compareValues(actual, c.Value)
		switch c.Op {
		case filter.OpGt:
			return cmp > 0, nil
		case filter.OpGte:
			return cmp >= 0, nil
		case filter.OpLt:
			return cmp < 0, nil
		case filter.OpLte:
			return cmp <= 0, nil
		}
		return false, fmt.Errorf("unsupported range operator %s", c.Op)
	case filter.Between:
		if actual == nil {
			return false, nil
		}
		return compareValues(actual, c.Low) >= 0 && compareValues(actual, c.High) <= 0, nil
	case filter.Pattern:
		pattern, ok := c.Pattern.(string)
		if !ok {
			return false, fmt.Errorf("pattern must be a string, got %T", c.Pattern)
		}
		s, ok := actual.(string)
		if !ok {
			return false, nil
		}
		re, err := likeRegexp(pattern, c.CaseInsensitive)
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil
	case filter.IsNull:
		return actual == nil, nil
	case filter.Raw:
		return false, ErrRawUnsupported
	case []any:
		return contains(c, actual), nil
	case nil:
		return actual == nil, nil
	default:
		if actual == nil {
			return false, nil
		}
		return compareValues(actual, cond) == 0, nil
	}
}

func contains(list any, actual any) bool {
	values, ok := list.([]any)
	if !ok {
		return false
	}
	for _, v := range values {
		if actual != nil && v != nil && compareValues(actual, v) == 0 {
			return true
		}
		if actual == nil && v == nil {
			return true
		}
	}
	return false
}

// likeRegexp translates a LIKE pattern: % matches any run, _ a single character
func likeRegexp(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	var b strings.Builder
	if caseInsensitive {
		b.WriteString("(?is)")
	} else {
		b.WriteString("(?s)")
	}
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

type orderClause struct {
	path       []string
	descending bool
}

// orderClauses flattens a nested order object into paths, in input order
func orderClauses(prefix []string, order types.Object) ([]orderClause, error) {
	var clauses []orderClause
	for _, m := range order {
		path := append(append([]string(nil), prefix...), m.Key)
		switch v := m.Value.(type) {
		case nil:
		case string:
			if !spec.IsDirection(v) {
				return nil, fmt.Errorf("order %s: invalid direction %q", strings.Join(path, "."), v)
			}
			clauses = append(clauses, orderClause{path: path, descending: v == spec.DESC})
		case types.Object:
			nested, err := orderClauses(path, v)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, nested...)
		default:
			return nil, fmt.Errorf("order %s: unsupported value of type %T", strings.Join(path, "."), m.Value)
		}
	}
	return clauses, nil
}

func sortRecords(records []types.Object, clauses []orderClause) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, clause := range clauses {
			a := lookup(records[i], clause.path)
			b := lookup(records[j], clause.path)

			c := compareNullable(a, b)
			if c < 0 {
				return !clause.descending
			} else if c > 0 {
				return clause.descending
			}
		}
		return false
	})
}

// compareNullable orders missing values first
func compareNullable(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return compareValues(a, b)
}

func lookup(rec types.Object, path []string) any {
	var current any = rec
	for _, key := range path {
		obj, ok := current.(types.Object)
		if !ok {
			return nil
		}
		current, _ = obj.Get(key)
	}
	return current
}
