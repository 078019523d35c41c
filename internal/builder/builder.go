// Package builder implements the typed expression builder (C7): bounded
// construction of a binary comparison whose operands have mutually
// consistent types.
package builder

import (
	"errors"
	"fmt"

	"github.com/sqlsmith/sqlsmith/internal/impedance"
	"github.com/sqlsmith/sqlsmith/internal/production"
	"github.com/sqlsmith/sqlsmith/internal/rng"
	"github.com/sqlsmith/sqlsmith/internal/schema"
)

// maxAttempts bounds the retry loop described in spec §4.7.
const maxAttempts = 20

// ErrConstructionFailed is returned once the builder exhausts maxAttempts
// without finding an operator/operand combination with matching types.
var ErrConstructionFailed = errors.New("builder: exhausted retries constructing comparison")

// ExprFactory builds a random expression of the requested type at the
// given level. It stands in for the external grammar's value_expr
// factory (out of scope per spec §1); callers in this module's tests
// supply a fake.
type ExprFactory func(level int, t *schema.Type) (Expr, error)

// Expr is the minimal shape BuildComparison needs from a constructed
// operand: its production node and its resolved type.
type Expr struct {
	Node production.Production
	Type *schema.Type
}

// Tag is the variant tag BuildComparison reports retries/failures under.
const Tag production.Tag = "comparison_op"

// BuildComparison builds a comparison `lhs OP rhs` whose operands have
// mutually consistent types, per the bounded-retry algorithm in spec
// §4.7. Each failed attempt bumps Tag's Retries counter in store.
func BuildComparison(
	r rng.RNG,
	sch *schema.Schema,
	store *impedance.Store,
	factory ExprFactory,
	level int,
) (lhs, rhs Expr, err error) {
	ops := sch.OperatorsReturning(sch.BoolType)
	if len(ops) == 0 {
		return Expr{}, Expr{}, fmt.Errorf("%w: no operators return bool", ErrConstructionFailed)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		op := schema.RandomPick(r, ops)

		lhs, err = factory(level, op.Left)
		if err != nil {
			return Expr{}, Expr{}, fmt.Errorf("builder: constructing lhs: %w", err)
		}

		rhs, err = factory(level, op.Right)
		if err != nil {
			return Expr{}, Expr{}, fmt.Errorf("builder: constructing rhs: %w", err)
		}

		if op.Left != op.Right {
			// Polymorphic operator; an operand type mismatch is acceptable.
			return lhs, rhs, nil
		}

		if lhs.Type == rhs.Type {
			return lhs, rhs, nil
		}

		consistent, cerr := schema.Consistent(lhs.Type, rhs.Type)
		if cerr != nil {
			return Expr{}, Expr{}, fmt.Errorf("builder: checking consistency: %w", cerr)
		}

		if consistent {
			lhs, err = factory(level, rhs.Type)
		} else {
			rhs, err = factory(level, lhs.Type)
		}

		if err != nil {
			return Expr{}, Expr{}, fmt.Errorf("builder: regenerating operand: %w", err)
		}

		if lhs.Type == rhs.Type {
			return lhs, rhs, nil
		}

		store.Retry(Tag)
	}

	store.Fail(Tag)

	return Expr{}, Expr{}, ErrConstructionFailed
}
