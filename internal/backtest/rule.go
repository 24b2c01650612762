package backtest

import (
	"errors"
	"fmt"

	"github.com/moznion/go-optional"
)

var (
	ErrInvalidOperator  = errors.New("invalid operator")
	ErrInvalidCondition = errors.New("invalid condition")
)

type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpCrossUp      Operator = "cross_up"
	OpCrossDown    Operator = "cross_down"
)

func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpCrossUp, OpCrossDown:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOperator, s)
}

func (o Operator) IsCross() bool {
	return o == OpCrossUp || o == OpCrossDown
}

// Operand is the right-hand side of a condition: either a FixedValue or an
// IndicatorRef.
type Operand interface {
	valueAt(ind *Indicators, i int) optional.Option[float64]
}

// FixedValue compares against a constant.
type FixedValue float64

func (v FixedValue) valueAt(*Indicators, int) optional.Option[float64] {
	return optional.Some(float64(v))
}

// IndicatorRef compares against another indicator series.
type IndicatorRef struct {
	Spec IndicatorSpec
}

func (r IndicatorRef) valueAt(ind *Indicators, i int) optional.Option[float64] {
	return ind.Value(r.Spec, i)
}

// Condition compares the Left series at a bar against the Right operand.
type Condition struct {
	Left  IndicatorSpec
	Op    Operator
	Right Operand
}

// NewCondition builds a condition. Cross operators need an indicator on the
// right; threshold operators accept either operand kind.
func NewCondition(left IndicatorSpec, op Operator, right Operand) (Condition, error) {
	if left == nil {
		return Condition{}, fmt.Errorf("%w: missing left indicator", ErrInvalidCondition)
	}
	if _, err := ParseOperator(string(op)); err != nil {
		return Condition{}, err
	}
	if right == nil {
		return Condition{}, fmt.Errorf("%w: %s needs a value or an indicator to compare with", ErrInvalidCondition, op)
	}
	if op.IsCross() {
		ref, ok := right.(IndicatorRef)
		if !ok || ref.Spec == nil {
			return Condition{}, fmt.Errorf("%w: %s needs an indicator to compare with", ErrInvalidCondition, op)
		}
	}
	return Condition{Left: left, Op: op, Right: right}, nil
}

// Evaluate reports whether the condition holds at bar i. Any undefined
// operand makes it false.
func (c Condition) Evaluate(ind *Indicators, i int) bool {
	if c.Right == nil {
		return false
	}

	if c.Op.IsCross() {
		ref, ok := c.Right.(IndicatorRef)
		if !ok {
			return false
		}
		prevLeft, left := ind.Value(c.Left, i-1), ind.Value(c.Left, i)
		prevRight, right := ind.Value(ref.Spec, i-1), ind.Value(ref.Spec, i)
		if prevLeft.IsNone() || left.IsNone() || prevRight.IsNone() || right.IsNone() {
			return false
		}

		lp, l, rp, r := prevLeft.Unwrap(), left.Unwrap(), prevRight.Unwrap(), right.Unwrap()
		if c.Op == OpCrossUp {
			return lp <= rp && l > r
		}
		return lp >= rp && l < r
	}

	left := ind.Value(c.Left, i)
	right := c.Right.valueAt(ind, i)
	if left.IsNone() || right.IsNone() {
		return false
	}

	l, r := left.Unwrap(), right.Unwrap()
	switch c.Op {
	case OpGreater:
		return l > r
	case OpLess:
		return l < r
	case OpGreaterEqual:
		return l >= r
	case OpLessEqual:
		return l <= r
	}
	return false
}

// RuleSet combines conditions as (all of All) AND (any of Any).
//
// Both lists are vacuously true when empty. For Any this differs from the
// usual empty-OR-is-false convention and is kept on purpose: a rule set with
// only All conditions reduces to their conjunction, and an empty rule set
// always fires.
type RuleSet struct {
	All []Condition
	Any []Condition
}

func (rs RuleSet) Evaluate(ind *Indicators, i int) bool {
	for _, c := range rs.All {
		if !c.Evaluate(ind, i) {
			return false
		}
	}

	if len(rs.Any) == 0 {
		return true
	}
	for _, c := range rs.Any {
		if c.Evaluate(ind, i) {
			return true
		}
	}
	return false
}
