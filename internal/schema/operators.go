package schema

import "github.com/sqlsmith/sqlsmith/internal/rng"

// OperatorsReturning returns every operator whose Result type is t — an
// equal-range lookup into the OperatorsByResult multimap (C6).
func (s *Schema) OperatorsReturning(t *Type) []*Operator {
	return s.OperatorsByResult[t]
}

// RandomPick chooses uniformly among ops using r. Panics if ops is empty;
// callers are expected to check for an empty equal-range first (an empty
// operator set for a given result type is a schema-shape problem the
// caller should surface, not silently paper over).
func RandomPick(r rng.RNG, ops []*Operator) *Operator {
	return ops[r.Intn(len(ops))]
}
