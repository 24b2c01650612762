package dto

import (
	"golang-backtest/pkg/common"
	"golang-backtest/pkg/utils"

	"github.com/go-playground/validator/v10"
)

const (
	defaultCompiledSymbol    = "BTCUSDT"
	defaultCompiledTimeframe = "1h"
	compiledStrategyName     = "LLM Strategy"
)

// LLM operator vocabulary.
const (
	OperatorGreater    = ">"
	OperatorLess       = "<"
	OperatorCrossAbove = "cross_above"
	OperatorCrossBelow = "cross_below"
)

type CompileStrategyRequest struct {
	Text string `json:"text"`
}

type CompileStrategyResponse struct {
	Strategy  StrategyRequest `json:"strategy"`
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
}

// StrategyJSON is the document the language model is asked to produce.
// Error is set instead of the rules when the description was too vague.
type StrategyJSON struct {
	Symbol    string            `json:"symbol"`
	Timeframe string            `json:"timeframe"`
	Entry     StrategyJSONRules `json:"entry"`
	Exit      StrategyJSONRules `json:"exit"`
	Risk      StrategyJSONRisk  `json:"risk"`
	Error     string            `json:"error,omitempty"`
}

type StrategyJSONRules struct {
	All []StrategyJSONCondition `json:"all,omitempty" validate:"omitempty,dive"`
	Any []StrategyJSONCondition `json:"any,omitempty" validate:"omitempty,dive"`
}

type StrategyJSONOperand struct {
	Indicator string `json:"indicator" validate:"required,oneof=SMA EMA RSI"`
	Period    int    `json:"period" validate:"gt=0,lte=500"`
}

type StrategyJSONCondition struct {
	Left     StrategyJSONOperand  `json:"left"`
	Operator string               `json:"operator" validate:"required,oneof=> < cross_above cross_below"`
	Right    *StrategyJSONOperand `json:"right,omitempty"`
	Value    *float64             `json:"value,omitempty"`
}

type StrategyJSONRisk struct {
	StopLossPct   float64 `json:"stopLossPct" validate:"gte=0,lte=100"`
	TakeProfitPct float64 `json:"takeProfitPct" validate:"gte=0,lte=100"`
}

// RegisterValidations adds the binance_interval tag and the struct level
// rules the tags cannot express.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("binance_interval", func(fl validator.FieldLevel) bool {
		return utils.ContainsString(common.GetIntervalList(), fl.Field().String())
	})
	v.RegisterStructValidation(validateStrategyJSONCondition, StrategyJSONCondition{})
}

// A cross needs a right indicator and no value; a comparison needs one of
// them.
func validateStrategyJSONCondition(sl validator.StructLevel) {
	c := sl.Current().Interface().(StrategyJSONCondition)
	switch c.Operator {
	case OperatorCrossAbove, OperatorCrossBelow:
		if c.Right == nil || c.Value != nil {
			sl.ReportError(c.Right, "Right", "right", "crossneedsright", "")
		}
	case OperatorGreater, OperatorLess:
		if c.Right == nil && c.Value == nil {
			sl.ReportError(c.Value, "Value", "value", "valueorright", "")
		}
	}
}

// ApplyDefaults fills the symbol and timeframe the model left out.
func (s *StrategyJSON) ApplyDefaults() {
	if s.Symbol == "" {
		s.Symbol = defaultCompiledSymbol
	}
	if s.Timeframe == "" {
		s.Timeframe = defaultCompiledTimeframe
	}
}

var compiledOperators = map[string]string{
	OperatorGreater:    ">",
	OperatorLess:       "<",
	OperatorCrossAbove: "cross_up",
	OperatorCrossBelow: "cross_down",
}

// ToStrategyRequest maps the model document onto the backtest wire format.
// Every indicator reads the close price.
func (s StrategyJSON) ToStrategyRequest() StrategyRequest {
	return StrategyRequest{
		Name:  compiledStrategyName,
		Entry: s.Entry.toRuleSetRequest(),
		Exit:  s.Exit.toRuleSetRequest(),
		Risk: RiskRequest{
			StopLoss:   s.Risk.StopLossPct,
			TakeProfit: s.Risk.TakeProfitPct,
		},
		Direction: "long",
	}
}

func (r StrategyJSONRules) toRuleSetRequest() *RuleSetRequest {
	return &RuleSetRequest{
		All: toConditionRequests(r.All),
		Any: toConditionRequests(r.Any),
	}
}

func toConditionRequests(in []StrategyJSONCondition) []ConditionRequest {
	if in == nil {
		return nil
	}
	out := make([]ConditionRequest, 0, len(in))
	for _, c := range in {
		cond := ConditionRequest{
			Type:   c.Left.Indicator,
			Params: c.Left.params(),
			Op:     compiledOperators[c.Operator],
		}
		if c.Right != nil {
			cond.CompareWith = &IndicatorRequest{Type: c.Right.Indicator, Params: c.Right.params()}
		}
		if c.Value != nil {
			v := *c.Value
			cond.Value = &v
		}
		out = append(out, cond)
	}
	return out
}

func (o StrategyJSONOperand) params() map[string]any {
	return map[string]any{"period": o.Period, "source": "close"}
}
