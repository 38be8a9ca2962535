// Package bsonwhere renders finalized queries as MongoDB filter, sort and find
// options. Relation conditions become dotted paths into embedded documents.
package bsonwhere

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/nanoquery/spec"
	"github.com/arthur-debert/nanoquery/types"
)

// Filter renders a predicate as a filter document. Empty predicates match everything.
func Filter(p filter.Predicate) (bson.D, error) {
	switch v := p.(type) {
	case nil:
		return bson.D{}, nil
	case filter.Conjunction:
		return conjunction("", v)
	case filter.Disjunction:
		if len(v) == 0 {
			return bson.D{}, nil
		}
		branches := make(bson.A, 0, len(v))
		for _, c := range v {
			doc, err := conjunction("", c)
			if err != nil {
				return nil, err
			}
			if len(doc) == 0 {
				return bson.D{}, nil
			}
			branches = append(branches, doc)
		}
		return bson.D{{Key: "$or", Value: branches}}, nil
	default:
		return nil, fmt.Errorf("unsupported predicate %T", p)
	}
}

func conjunction(prefix string, c filter.Conjunction) (bson.D, error) {
	fields := make([]string, 0, len(c))
	for field := range c {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	doc := bson.D{}
	for _, field := range fields {
		if field == "" || strings.HasPrefix(field, "$") || strings.Contains(field, ".") {
			return nil, fmt.Errorf("invalid field name %q", field)
		}
		path := prefix + field

		if nested, ok := c[field].(filter.Conjunction); ok {
			sub, err := conjunction(path+".", nested)
			if err != nil {
				return nil, err
			}
			doc = append(doc, sub...)
			continue
		}

		value, err := condition(c[field])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", path, err)
		}
		doc = append(doc, bson.E{Key: path, Value: value})
	}
	return doc, nil
}

func condition(value any) (any, error) {
	switch v := value.(type) {
	case filter.Not:
		return negate(v.Value)
	case filter.In:
		return bson.D{{Key: "$in", Value: toBSON(v.Values)}}, nil
	case filter.Range:
		return bson.D{{Key: "$" + v.Op.String(), Value: toBSON(v.Value)}}, nil
	case filter.Between:
		return bson.D{{Key: "$gte", Value: toBSON(v.Low)}, {Key: "$lte", Value: toBSON(v.High)}}, nil
	case filter.Pattern:
		re, err := likeRegex(v)
		if err != nil {
			return nil, err
		}
		doc := bson.D{{Key: "$regex", Value: re.Pattern}}
		if re.Options != "" {
			doc = append(doc, bson.E{Key: "$options", Value: re.Options})
		}
		return doc, nil
	case filter.IsNull:
		return nil, nil
	case filter.Raw:
		expr, ok := v.Expr.(types.Object)
		if !ok {
			return nil, fmt.Errorf("raw expression must be an operator document, got %T", v.Expr)
		}
		return toBSON(expr), nil
	case []any:
		return bson.D{{Key: "$in", Value: toBSON(v)}}, nil
	default:
		return toBSON(v), nil
	}
}

func negate(value any) (any, error) {
	switch v := value.(type) {
	case filter.In:
		return bson.D{{Key: "$nin", Value: toBSON(v.Values)}}, nil
	case filter.IsNull:
		return bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}, nil
	case filter.Pattern:
		re, err := likeRegex(v)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$not", Value: re}}, nil
	case filter.Not:
		return condition(v.Value)
	case filter.Comparator:
		inner, err := condition(v)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$not", Value: inner}}, nil
	default:
		return bson.D{{Key: "$ne", Value: toBSON(v)}}, nil
	}
}

// likeRegex translates a LIKE pattern into an anchored regular expression
func likeRegex(p filter.Pattern) (primitive.Regex, error) {
	pattern, ok := p.Pattern.(string)
	if !ok {
		return primitive.Regex{}, fmt.Errorf("pattern must be a string, got %T", p.Pattern)
	}
	var b strings.Builder
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

	re := primitive.Regex{Pattern: b.String(), Options: "s"}
	if p.CaseInsensitive {
		re.Options = "is"
	}
	return re, nil
}

// Sort renders an order expression, flattening relation sorts into dotted paths
func Sort(order types.Object) (bson.D, error) {
	return sortDoc("", order)
}

func sortDoc(prefix string, order types.Object) (bson.D, error) {
	doc := bson.D{}
	for _, m := range order {
		path := prefix + m.Key
		switch v := m.Value.(type) {
		case nil:
		case string:
			switch v {
			case spec.ASC:
				doc = append(doc, bson.E{Key: path, Value: 1})
			case spec.DESC:
				doc = append(doc, bson.E{Key: path, Value: -1})
			default:
				return nil, fmt.Errorf("order %s: invalid direction %q", path, v)
			}
		case types.Object:
			nested, err := sortDoc(path+".", v)
			if err != nil {
				return nil, err
			}
			doc = append(doc, nested...)
		default:
			return nil, fmt.Errorf("order %s: unsupported value of type %T", path, m.Value)
		}
	}
	return doc, nil
}

// Find renders a whole query as the arguments of Collection.Find
func Find(q query.Query) (bson.D, *options.FindOptions, error) {
	doc, err := Filter(q.Where)
	if err != nil {
		return nil, nil, err
	}
	sortSpec, err := Sort(q.Order)
	if err != nil {
		return nil, nil, err
	}

	opts := options.Find()
	if len(sortSpec) > 0 {
		opts.SetSort(sortSpec)
	}
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Take != nil {
		opts.SetLimit(int64(*q.Take))
	}
	return doc, opts, nil
}

// toBSON converts decoded values into driver types
func toBSON(v any) any {
	switch val := v.(type) {
	case types.Object:
		doc := make(bson.D, len(val))
		for i, m := range val {
			doc[i] = bson.E{Key: m.Key, Value: toBSON(m.Value)}
		}
		return doc
	case []any:
		arr := make(bson.A, len(val))
		for i, item := range val {
			arr[i] = toBSON(item)
		}
		return arr
	default:
		return v
	}
}
