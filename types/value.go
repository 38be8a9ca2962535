package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Member is one key/value pair of an Object
type Member struct {
	Key   string
	Value any
}

// Object is an insertion-ordered JSON-like mapping.
//
// Client supplied filter and sort expressions are decoded into Objects rather than
// Go maps so that "the first operator of a field condition" is defined by the
// input document and not by map iteration order.
type Object []Member

// NewObject builds an Object from alternating key/value arguments.
// It panics if a key is not a string or a value is missing.
//
//	types.NewObject("status", types.NewObject("eq", "ACTIVE"))
func NewObject(pairs ...any) Object {
	if len(pairs)%2 != 0 {
		panic("types.NewObject: odd number of arguments")
	}
	obj := make(Object, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("types.NewObject: key %v is %T, not string", pairs[i], pairs[i]))
		}
		obj = append(obj, Member{Key: key, Value: pairs[i+1]})
	}
	return obj
}

// Get returns the value stored under key. When a key repeats, the last one wins,
// matching how JSON decoders treat duplicate keys.
func (o Object) Get(key string) (any, bool) {
	for i := len(o) - 1; i >= 0; i-- {
		if o[i].Key == key {
			return o[i].Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present
func (o Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the keys in input order
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

// Map converts the object into a plain Go map, dropping the ordering
func (o Object) Map() map[string]any {
	m := make(map[string]any, len(o))
	for _, member := range o {
		m[member.Key] = member.Value
	}
	return m
}

// MarshalJSON writes the members in order
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %q: %w", m.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML renders the object as an ordered YAML mapping
func (o Object) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, m := range o {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(m.Value); err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", m.Key, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// Normalize converts Go-native values into the decoded representation used by
// the compiler: map[string]any becomes an Object with keys sorted, slices of
// maps become []any. Objects and slices are copied, never modified in place.
func Normalize(v any) any {
	switch val := v.(type) {
	case Object:
		out := make(Object, len(val))
		for i, m := range val {
			out[i] = Member{Key: m.Key, Value: Normalize(m.Value)}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Object, len(keys))
		for i, k := range keys {
			out[i] = Member{Key: k, Value: Normalize(val[k])}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case []Object:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	default:
		return v
	}
}

// Truthy applies loose truthiness: nil, false, zero numbers and the empty
// string are false, everything else is true.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case int32:
		return val != 0
	case uint:
		return val != 0
	case uint64:
		return val != 0
	case float64:
		return val != 0
	case float32:
		return val != 0
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// IsEmpty reports whether v is nil, an empty Object or an empty slice
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case Object:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
