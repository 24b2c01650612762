package dto

import (
	"fmt"

	"golang-backtest/internal/backtest"
)

const defaultStrategyName = "Strategy"

// IndicatorRequest names an indicator and its parameters, e.g.
// {"type": "SMA", "params": {"period": 20, "source": "close"}}.
type IndicatorRequest struct {
	Type   string         `json:"type" validate:"required"`
	Params map[string]any `json:"params,omitempty"`
}

// ConditionRequest is one rule on the wire. The left indicator is inlined;
// the right side is compareWith when present, otherwise value.
type ConditionRequest struct {
	Type        string            `json:"type" validate:"required"`
	Params      map[string]any    `json:"params,omitempty"`
	Op          string            `json:"op" validate:"required"`
	Value       *float64          `json:"value,omitempty"`
	CompareWith *IndicatorRequest `json:"compareWith,omitempty"`
}

type RuleSetRequest struct {
	All []ConditionRequest `json:"all,omitempty" validate:"omitempty,dive"`
	Any []ConditionRequest `json:"any,omitempty" validate:"omitempty,dive"`
}

// RiskRequest holds percentages. trailingStop is accepted and ignored.
type RiskRequest struct {
	StopLoss     float64  `json:"stopLoss" validate:"gt=0"`
	TakeProfit   float64  `json:"takeProfit" validate:"gt=0"`
	TrailingStop *float64 `json:"trailingStop,omitempty"`
}

type StrategyRequest struct {
	Name      string          `json:"name"`
	Entry     *RuleSetRequest `json:"entry" validate:"required"`
	Exit      *RuleSetRequest `json:"exit" validate:"required"`
	Risk      RiskRequest     `json:"risk"`
	Direction string          `json:"direction,omitempty" validate:"omitempty,oneof=long"`
}

// ToStrategy resolves the wire format into typed indicator specs and
// conditions. Errors wrap the backtest sentinel errors and name the rule
// that failed, e.g. "exit.any[1]: unsupported indicator: VWAP".
func (r StrategyRequest) ToStrategy() (backtest.Strategy, error) {
	name := r.Name
	if name == "" {
		name = defaultStrategyName
	}

	entry, err := r.Entry.toRuleSet("entry")
	if err != nil {
		return backtest.Strategy{}, err
	}
	exit, err := r.Exit.toRuleSet("exit")
	if err != nil {
		return backtest.Strategy{}, err
	}

	return backtest.Strategy{
		Name:  name,
		Entry: entry,
		Exit:  exit,
		Risk: backtest.RiskPolicy{
			StopLossPct:   r.Risk.StopLoss,
			TakeProfitPct: r.Risk.TakeProfit,
		},
	}, nil
}

func (r *RuleSetRequest) toRuleSet(path string) (*backtest.RuleSet, error) {
	if r == nil {
		return nil, nil
	}

	all, err := toConditions(path+".all", r.All)
	if err != nil {
		return nil, err
	}
	anyOf, err := toConditions(path+".any", r.Any)
	if err != nil {
		return nil, err
	}
	return &backtest.RuleSet{All: all, Any: anyOf}, nil
}

func toConditions(path string, in []ConditionRequest) ([]backtest.Condition, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]backtest.Condition, 0, len(in))
	for i, c := range in {
		cond, err := c.toCondition()
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", path, i, err)
		}
		out = append(out, cond)
	}
	return out, nil
}

func (c ConditionRequest) toCondition() (backtest.Condition, error) {
	left, err := backtest.ParseIndicatorSpec(c.Type, c.Params)
	if err != nil {
		return backtest.Condition{}, err
	}
	op, err := backtest.ParseOperator(c.Op)
	if err != nil {
		return backtest.Condition{}, err
	}

	var right backtest.Operand
	switch {
	case c.CompareWith != nil:
		spec, err := backtest.ParseIndicatorSpec(c.CompareWith.Type, c.CompareWith.Params)
		if err != nil {
			return backtest.Condition{}, fmt.Errorf("compareWith: %w", err)
		}
		right = backtest.IndicatorRef{Spec: spec}
	case c.Value != nil:
		right = backtest.FixedValue(*c.Value)
	}

	return backtest.NewCondition(left, op, right)
}
