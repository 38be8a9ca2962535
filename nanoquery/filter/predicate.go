package filter

import (
	"encoding/json"

	"github.com/arthur-debert/nanoquery/types"
)

// Predicate is a compiled filter expression: either a Conjunction or a
// Disjunction of conjunctions.
type Predicate interface {
	predicate()
}

// Conjunction maps field names to the condition each field must satisfy; all
// entries must hold. A value is a plain value (equality), a Comparator, an
// array (passed through) or a nested Conjunction for relation fields.
// An empty Conjunction matches everything.
type Conjunction map[string]any

// Disjunction is satisfied when any of its conjunctions holds
type Disjunction []Conjunction

func (Conjunction) predicate() {}
func (Disjunction) predicate() {}

// IsEmpty reports whether the predicate places no constraint
func IsEmpty(p Predicate) bool {
	switch v := p.(type) {
	case nil:
		return true
	case Conjunction:
		return len(v) == 0
	case Disjunction:
		return len(v) == 0
	}
	return false
}

// Comparator is an operator value inside a Conjunction that the storage layer
// translates into its native query language.
type Comparator interface {
	comparator()
}

// Not negates the wrapped value or comparator
type Not struct {
	Value any
}

// In is a membership test against a list of values
type In struct {
	Values any
}

// Range compares against a single bound; Op is one of OpGt, OpGte, OpLt, OpLte
type Range struct {
	Op    Operator
	Value any
}

// Between is an inclusive range
type Between struct {
	Low  any
	High any
}

// Pattern is a LIKE-style pattern match
type Pattern struct {
	Pattern         any
	CaseInsensitive bool
}

// IsNull matches a missing value
type IsNull struct{}

// Raw carries a caller-supplied expression to the storage layer unmodified and unsanitized
type Raw struct {
	Expr any
}

func (Not) comparator()     {}
func (In) comparator()      {}
func (Range) comparator()   {}
func (Between) comparator() {}
func (Pattern) comparator() {}
func (IsNull) comparator()  {}
func (Raw) comparator()     {}

// wire returns the single-key object each comparator serializes to
func wire(c Comparator) types.Object {
	switch v := c.(type) {
	case Not:
		return types.NewObject("$not", v.Value)
	case In:
		return types.NewObject("$in", v.Values)
	case Range:
		return types.NewObject("$"+v.Op.String(), v.Value)
	case Between:
		return types.NewObject("$between", []any{v.Low, v.High})
	case Pattern:
		if v.CaseInsensitive {
			return types.NewObject("$ilike", v.Pattern)
		}
		return types.NewObject("$like", v.Pattern)
	case IsNull:
		return types.NewObject("$isNull", true)
	case Raw:
		return types.NewObject("$raw", v.Expr)
	}
	return types.Object{}
}

func (c Not) MarshalJSON() ([]byte, error)     { return json.Marshal(wire(c)) }
func (c In) MarshalJSON() ([]byte, error)      { return json.Marshal(wire(c)) }
func (c Range) MarshalJSON() ([]byte, error)   { return json.Marshal(wire(c)) }
func (c Between) MarshalJSON() ([]byte, error) { return json.Marshal(wire(c)) }
func (c Pattern) MarshalJSON() ([]byte, error) { return json.Marshal(wire(c)) }
func (c IsNull) MarshalJSON() ([]byte, error)  { return json.Marshal(wire(c)) }
func (c Raw) MarshalJSON() ([]byte, error)     { return json.Marshal(wire(c)) }

func (c Not) MarshalYAML() (interface{}, error)     { return wire(c), nil }
func (c In) MarshalYAML() (interface{}, error)      { return wire(c), nil }
func (c Range) MarshalYAML() (interface{}, error)   { return wire(c), nil }
func (c Between) MarshalYAML() (interface{}, error) { return wire(c), nil }
func (c Pattern) MarshalYAML() (interface{}, error) { return wire(c), nil }
func (c IsNull) MarshalYAML() (interface{}, error)  { return wire(c), nil }
func (c Raw) MarshalYAML() (interface{}, error)     { return wire(c), nil }

func truthy(v any) bool {
	return types.Truthy(v)
}
