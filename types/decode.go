package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Decode parses a JSON or YAML document into the ordered value representation:
// mappings become Objects, sequences []any and scalars their natural Go type
// (string, int, float64, bool, nil). JSON is accepted because it is YAML flow syntax.
// An empty document decodes to nil. Anchors and aliases are rejected: they have
// no use in query documents and expanding them is unbounded.
func Decode(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	return decodeNode(doc.Content[0])
}

// DecodeObject decodes a document that must be a mapping (or empty)
func DecodeObject(data []byte) (Object, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case nil:
		return Object{}, nil
	case Object:
		return val, nil
	default:
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeNode(n.Content[0])
	case yaml.AliasNode:
		return nil, fmt.Errorf("line %d: aliases are not supported", n.Line)
	case yaml.MappingNode:
		obj := make(Object, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}
			val, err := decodeNode(valNode)
			if err != nil {
				return nil, err
			}
			obj = append(obj, Member{Key: keyNode.Value, Value: val})
		}
		return obj, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			val, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}
