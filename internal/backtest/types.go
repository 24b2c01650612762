package backtest

import (
	"github.com/moznion/go-optional"
)

// Candle is one OHLCV bar identified by its close time in UTC milliseconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

type Direction string

const (
	DirectionLong Direction = "long"
)

type ExitReason string

const (
	ExitReasonStopLoss   ExitReason = "stop_loss"
	ExitReasonTakeProfit ExitReason = "take_profit"
	ExitReasonExitSignal ExitReason = "exit_signal"
)

// Trade is a single simulated long position. StopLoss and TakeProfit are
// absolute prices fixed at entry. The exit fields are set once, on close.
type Trade struct {
	ID         string                      `json:"id"`
	Direction  Direction                   `json:"direction"`
	EntryTime  int64                       `json:"entryTime"`
	EntryPrice float64                     `json:"entryPrice"`
	ExitTime   optional.Option[int64]      `json:"exitTime,omitempty"`
	ExitPrice  optional.Option[float64]    `json:"exitPrice,omitempty"`
	Size       float64                     `json:"size"`
	Status     TradeStatus                 `json:"status"`
	ExitReason optional.Option[ExitReason] `json:"exitReason,omitempty"`
	PnL        optional.Option[float64]    `json:"pnl,omitempty"`
	PnLPercent optional.Option[float64]    `json:"pnlPercent,omitempty"`
	StopLoss   float64                     `json:"stopLoss"`
	TakeProfit float64                     `json:"takeProfit"`
}

// IsClosed reports whether the trade has been exited.
func (t Trade) IsClosed() bool {
	return t.Status == TradeStatusClosed
}

// EquityPoint records capital at a bar. Drawdown is the absolute distance
// below the running peak and is never negative.
type EquityPoint struct {
	Time     int64   `json:"time"`
	Equity   float64 `json:"equity"`
	Drawdown float64 `json:"drawdown"`
}

// RiskPolicy holds stop-loss and take-profit distances as percentages of
// the entry price.
type RiskPolicy struct {
	StopLossPct   float64 `json:"stopLoss"`
	TakeProfitPct float64 `json:"takeProfit"`
}

// Strategy is a long-only rule based strategy. A nil Entry or Exit never
// fires, unlike an empty RuleSet which always does.
type Strategy struct {
	Name  string
	Entry *RuleSet
	Exit  *RuleSet
	Risk  RiskPolicy
}

// IndicatorSpecs returns every spec referenced by the entry and exit rules,
// left and right operands included, de-duplicated in first-seen order.
func (s Strategy) IndicatorSpecs() []IndicatorSpec {
	seen := make(map[IndicatorSpec]struct{})
	var specs []IndicatorSpec
	add := func(spec IndicatorSpec) {
		if spec == nil {
			return
		}
		if _, ok := seen[spec]; ok {
			return
		}
		seen[spec] = struct{}{}
		specs = append(specs, spec)
	}

	for _, rs := range []*RuleSet{s.Entry, s.Exit} {
		if rs == nil {
			continue
		}
		for _, cond := range append(append([]Condition(nil), rs.All...), rs.Any...) {
			add(cond.Left)
			if ref, ok := cond.Right.(IndicatorRef); ok {
				add(ref.Spec)
			}
		}
	}
	return specs
}

// Config configures a single run. Unset capital and commission fall back to
// DefaultInitialCapital and DefaultCommission.
type Config struct {
	Strategy       Strategy
	InitialCapital optional.Option[float64]
	Commission     optional.Option[float64]
}

// Metrics summarizes the closed trades and the equity curve of a run.
type Metrics struct {
	TotalTrades        int     `json:"totalTrades"`
	WinningTrades      int     `json:"winningTrades"`
	LosingTrades       int     `json:"losingTrades"`
	WinRate            float64 `json:"winRate"`
	TotalPnL           float64 `json:"totalPnL"`
	TotalPnLPercent    float64 `json:"totalPnLPercent"`
	MaxDrawdown        float64 `json:"maxDrawdown"`
	MaxDrawdownPercent float64 `json:"maxDrawdownPercent"`
	AverageWin         float64 `json:"averageWin"`
	AverageLoss        float64 `json:"averageLoss"`
	LargestWin         float64 `json:"largestWin"`
	LargestLoss        float64 `json:"largestLoss"`
	FinalCapital       float64 `json:"finalCapital"`
}

// Result is the full output of Run.
type Result struct {
	Metrics     Metrics           `json:"metrics"`
	Trades      []Trade           `json:"trades"`
	EquityCurve []EquityPoint     `json:"equityCurve"`
	Candles     []Candle          `json:"candles"`
	Indicators  []IndicatorResult `json:"indicators"`
}
