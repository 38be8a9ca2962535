// Package query assembles client pagination, sort and filter arguments into the
// finalized request handed to the storage layer.
package query

import (
	"fmt"
	"math"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

// RawArgs are the query arguments as received from a client. Nil pointers and
// nil values mean the argument was not supplied.
type RawArgs struct {
	Skip   *int         `json:"skip,omitempty" yaml:"skip,omitempty"`
	Take   *int         `json:"take,omitempty" yaml:"take,omitempty"`
	Order  types.Object `json:"order,omitempty" yaml:"order,omitempty"`
	Filter any          `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// Query is the finalized request. Take is nil for an unbounded result set.
type Query struct {
	Skip      int              `json:"skip" yaml:"skip"`
	Take      *int             `json:"take,omitempty" yaml:"take,omitempty"`
	Where     filter.Predicate `json:"where" yaml:"where"`
	Order     types.Object     `json:"order,omitempty" yaml:"order,omitempty"`
	Relations []string         `json:"relations" yaml:"relations"`
}

// ParseRawArgs decodes a JSON or YAML document of the form
//
//	{ "skip": 0, "take": 20, "order": {...}, "filter": {...} }
//
// keeping the key order of order and filter.
func ParseRawArgs(data []byte) (RawArgs, error) {
	doc, err := types.DecodeObject(data)
	if err != nil {
		return RawArgs{}, err
	}
	return RawArgsFromObject(doc)
}

// RawArgsFromObject converts a decoded document into RawArgs
func RawArgsFromObject(doc types.Object) (RawArgs, error) {
	var raw RawArgs
	for _, m := range doc {
		switch m.Key {
		case "skip":
			n, err := intArg(m.Key, m.Value)
			if err != nil {
				return RawArgs{}, err
			}
			raw.Skip = n
		case "take":
			n, err := intArg(m.Key, m.Value)
			if err != nil {
				return RawArgs{}, err
			}
			raw.Take = n
		case "order":
			switch v := m.Value.(type) {
			case nil:
				raw.Order = nil
			case types.Object:
				raw.Order = v
			default:
				return RawArgs{}, fmt.Errorf("order must be an object, got %T", m.Value)
			}
		case "filter":
			raw.Filter = m.Value
		default:
			return RawArgs{}, fmt.Errorf("unknown query argument %q", m.Key)
		}
	}
	return raw, nil
}

func intArg(name string, v any) (*int, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case int:
		return &n, nil
	case int64:
		if n > math.MaxInt || n < math.MinInt {
			return nil, fmt.Errorf("%s must be an integer, got %v", name, n)
		}
		i := int(n)
		return &i, nil
	case uint64:
		if n > math.MaxInt {
			return nil, fmt.Errorf("%s must be an integer, got %v", name, n)
		}
		i := int(n)
		return &i, nil
	case float64:
		if n >= math.MaxInt || n < math.MinInt || n != float64(int(n)) {
			return nil, fmt.Errorf("%s must be an integer, got %v", name, n)
		}
		i := int(n)
		return &i, nil
	default:
		return nil, fmt.Errorf("%s must be an integer, got %T", name, v)
	}
}

// Int returns a pointer to n, for building RawArgs literals
func Int(n int) *int {
	return &n
}
