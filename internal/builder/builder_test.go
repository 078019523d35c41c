package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlsmith/sqlsmith/internal/impedance"
	"github.com/sqlsmith/sqlsmith/internal/production"
	"github.com/sqlsmith/sqlsmith/internal/rng"
	"github.com/sqlsmith/sqlsmith/internal/schema"
)

func testSchema() (*schema.Schema, *schema.Type, *schema.Type) {
	boolType := &schema.Type{Name: "bool", OID: 16, Typtype: 'b'}
	intType := &schema.Type{Name: "int4", OID: 23, Typtype: 'b'}

	sch := &schema.Schema{
		Types:    []*schema.Type{boolType, intType},
		BoolType: boolType,
	}
	sch.Operators = []schema.Operator{
		{Name: "=", Left: intType, Right: intType, Result: boolType},
	}
	sch.OperatorsByResult = map[*schema.Type][]*schema.Operator{
		boolType: {&sch.Operators[0]},
	}

	return sch, boolType, intType
}

func TestBuildComparisonReturnsOnMatchingTypes(t *testing.T) {
	sch, _, intType := testSchema()
	store := impedance.New()

	factory := func(level int, want *schema.Type) (Expr, error) {
		return Expr{Node: production.NewNode("literal", level, "1"), Type: want}, nil
	}

	lhs, rhs, err := BuildComparison(rng.New(1), sch, store, factory, 1)
	require.NoError(t, err)
	assert.Equal(t, intType, lhs.Type)
	assert.Equal(t, intType, rhs.Type)
}

// S6 — Typed builder retry: operators whose operands are always
// mutually inconsistent force exactly 20 attempts, 20 retry increments,
// and a surfaced construction failure.
func TestBuildComparisonExhaustsRetries(t *testing.T) {
	sch, _, intType := testSchema()
	otherType := &schema.Type{Name: "other", OID: 99, Typtype: 'b'}
	thirdType := &schema.Type{Name: "third", OID: 100, Typtype: 'b'}
	store := impedance.New()

	sequence := []*schema.Type{intType, otherType, thirdType}
	calls := 0

	factory := func(level int, _ *schema.Type) (Expr, error) {
		// Rotates through three mutually-inconsistent base types so that,
		// regardless of which operand BuildComparison regenerates on a
		// mismatch, the two operands never land on the same type:
		// lhs is always fixed at intType per attempt, and the regenerated
		// operand always lands on thirdType, never lhs's intType.
		want := sequence[calls%len(sequence)]
		calls++

		return Expr{Node: production.NewNode("literal", level, "1"), Type: want}, nil
	}

	_, _, err := BuildComparison(rng.New(1), sch, store, factory, 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstructionFailed))
	assert.Equal(t, int64(20), store.CountersFor(Tag).Retries)
	assert.Equal(t, int64(1), store.CountersFor(Tag).Failed)
}
