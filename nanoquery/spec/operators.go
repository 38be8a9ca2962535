package spec

import (
	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

var (
	stringOperators = []filter.Operator{
		filter.OpEq, filter.OpNe, filter.OpIn, filter.OpNin,
		filter.OpLike, filter.OpILike, filter.OpIsNull, filter.OpRaw,
	}
	orderedOperators = []filter.Operator{
		filter.OpEq, filter.OpNe, filter.OpIn, filter.OpNin,
		filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte,
		filter.OpBetween, filter.OpIsNull, filter.OpRaw,
	}
	booleanOperators = []filter.Operator{
		filter.OpEq, filter.OpNe, filter.OpIsNull, filter.OpRaw,
	}
	idOperators = []filter.Operator{
		filter.OpEq, filter.OpNe, filter.OpIn, filter.OpNin, filter.OpIsNull, filter.OpRaw,
	}
)

// OperatorsFor returns the legal operators for a scalar kind.
// Kinds without a dedicated set (enum, or anything unrecognized) get the
// string set; this fallback is intentional.
func OperatorsFor(kind types.FieldKind) []filter.Operator {
	var ops []filter.Operator
	switch kind {
	case types.KindNumber, types.KindDate:
		ops = orderedOperators
	case types.KindBoolean:
		ops = booleanOperators
	case types.KindID:
		ops = idOperators
	default:
		ops = stringOperators
	}
	return append([]filter.Operator(nil), ops...)
}

// OperatorSchema enumerates the operators a scalar filter field accepts
type OperatorSchema struct {
	Kind      types.FieldKind
	Operators []filter.Operator
}

// NewOperatorSchema builds the schema for a kind
func NewOperatorSchema(kind types.FieldKind) OperatorSchema {
	return OperatorSchema{Kind: kind, Operators: OperatorsFor(kind)}
}

// Allows reports whether op is legal for the field
func (s OperatorSchema) Allows(op filter.Operator) bool {
	for _, allowed := range s.Operators {
		if allowed == op {
			return true
		}
	}
	return false
}

// Names returns the operator keys in order
func (s OperatorSchema) Names() []string {
	names := make([]string, len(s.Operators))
	for i, op := range s.Operators {
		names[i] = op.String()
	}
	return names
}
