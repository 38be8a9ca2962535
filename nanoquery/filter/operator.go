package filter

// Operator is a named filter operator as it appears in a field condition,
// e.g. the "gt" in {"total": {"gt": 50}}.
//
// Keys that are not operators parse to OpUnknown. OpUnknown is a real member of
// the type rather than an error so that the permissive pass-through rule is
// explicit: Apply(OpUnknown, v) returns v unchanged.
type Operator int

const (
	OpUnknown Operator = iota
	OpEq
	OpNe
	OpIn
	OpNin
	OpGt
	OpGte
	OpLt
	OpLte
	OpLike
	OpILike
	OpBetween
	OpIsNull
	OpRaw
)

var operatorNames = map[Operator]string{
	OpEq:      "eq",
	OpNe:      "ne",
	OpIn:      "in",
	OpNin:     "nin",
	OpGt:      "gt",
	OpGte:     "gte",
	OpLt:      "lt",
	OpLte:     "lte",
	OpLike:    "like",
	OpILike:   "ilike",
	OpBetween: "between",
	OpIsNull:  "isNull",
	OpRaw:     "raw",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for op, name := range operatorNames {
		m[name] = op
	}
	return m
}()

// AllOperators lists every known operator in declaration order
func AllOperators() []Operator {
	return []Operator{OpEq, OpNe, OpIn, OpNin, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike, OpBetween, OpIsNull, OpRaw}
}

// ParseOperator maps an operator key to its Operator. Matching is case-sensitive.
func ParseOperator(key string) Operator {
	if op, ok := operatorsByName[key]; ok {
		return op
	}
	return OpUnknown
}

// String returns the operator key ("eq", "isNull", ...)
func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return "unknown"
}

// IsKnown reports whether op is one of the recognized operators
func (op Operator) IsKnown() bool {
	_, ok := operatorNames[op]
	return ok
}

// Apply maps an operator and its client value to the value handed to the
// storage layer.
func (op Operator) Apply(value any) any {
	switch op {
	case OpEq:
		return value
	case OpNe:
		return Not{Value: value}
	case OpIn:
		return In{Values: value}
	case OpNin:
		return Not{Value: In{Values: value}}
	case OpGt, OpGte, OpLt, OpLte:
		return Range{Op: op, Value: value}
	case OpLike:
		return Pattern{Pattern: value}
	case OpILike:
		return Pattern{Pattern: value, CaseInsensitive: true}
	case OpBetween:
		bounds, ok := value.([]any)
		if !ok || len(bounds) < 2 {
			return value
		}
		return Between{Low: bounds[0], High: bounds[1]}
	case OpIsNull:
		if truthy(value) {
			return IsNull{}
		}
		return Not{Value: IsNull{}}
	case OpRaw:
		// Forwarded verbatim. The storage layer must treat it as untrusted.
		return Raw{Expr: value}
	default:
		return value
	}
}
