package backtest

import (
	"fmt"

	"github.com/moznion/go-optional"
)

const (
	DefaultInitialCapital = 10000.0
	// DefaultCommission is the fractional fee per side (5 basis points).
	DefaultCommission = 0.0005

	minWarmupBars = 20
)

// WarmupBars is the number of leading bars on which no signal is evaluated:
// max(20, longest period + 2).
func WarmupBars(specs []IndicatorSpec) int {
	longest := 0
	for _, spec := range specs {
		if p := lookbackPeriod(spec); p > longest {
			longest = p
		}
	}
	return max(minWarmupBars, longest+2)
}

// Run simulates the strategy bar by bar over candles, which must be sorted
// ascending by time with unique timestamps. The only error is a
// configuration error while building indicators; nothing partial is
// returned in that case.
func Run(candles []Candle, cfg Config) (*Result, error) {
	specs := cfg.Strategy.IndicatorSpecs()
	ind, err := BuildIndicators(candles, specs)
	if err != nil {
		return nil, fmt.Errorf("failed to build indicators for strategy %q: %w", cfg.Strategy.Name, err)
	}

	sim := &simulator{
		strategy:   cfg.Strategy,
		indicators: ind,
		warmup:     WarmupBars(specs),
		commission: cfg.Commission.TakeOr(DefaultCommission),
		capital:    cfg.InitialCapital.TakeOr(DefaultInitialCapital),
		trades:     []Trade{},
		equity:     make([]EquityPoint, 0, len(candles)+1),
		open:       -1,
	}
	sim.peak = sim.capital
	initialCapital := sim.capital

	for i, c := range candles {
		sim.step(i, c)
	}
	if len(candles) > 0 {
		sim.record(candles[len(candles)-1].Time)
	}

	return &Result{
		Metrics:     Summarize(sim.trades, sim.equity, initialCapital, sim.capital),
		Trades:      sim.trades,
		EquityCurve: sim.equity,
		Candles:     candles,
		Indicators:  indicatorResults(candles, ind),
	}, nil
}

// simulator owns the mutable state of one run. open indexes the open trade
// in trades, or is -1 while flat.
type simulator struct {
	strategy   Strategy
	indicators *Indicators
	warmup     int
	commission float64

	capital float64
	peak    float64
	trades  []Trade
	equity  []EquityPoint
	open    int
}

func (s *simulator) record(time int64) {
	s.equity = append(s.equity, EquityPoint{
		Time:     time,
		Equity:   s.capital,
		Drawdown: max(0, s.peak-s.capital),
	})
	if s.capital > s.peak {
		s.peak = s.capital
	}
}

func (s *simulator) step(i int, c Candle) {
	s.record(c.Time)

	if i < s.warmup {
		return
	}

	if s.open < 0 {
		if fires(s.strategy.Entry, s.indicators, i) {
			s.enter(c)
		}
		return
	}

	trade := &s.trades[s.open]
	switch {
	case c.Low <= trade.StopLoss:
		s.exit(c, trade.StopLoss, ExitReasonStopLoss)
	case c.High >= trade.TakeProfit:
		s.exit(c, trade.TakeProfit, ExitReasonTakeProfit)
	case fires(s.strategy.Exit, s.indicators, i):
		s.exit(c, c.Close, ExitReasonExitSignal)
	}
}

func fires(rs *RuleSet, ind *Indicators, i int) bool {
	return rs != nil && rs.Evaluate(ind, i)
}

func (s *simulator) enter(c Candle) {
	risk := s.strategy.Risk
	s.trades = append(s.trades, Trade{
		ID:         fmt.Sprintf("T%d", len(s.trades)+1),
		Direction:  DirectionLong,
		EntryTime:  c.Time,
		EntryPrice: c.Close,
		Size:       s.capital / c.Close,
		Status:     TradeStatusOpen,
		StopLoss:   c.Close * (1 - risk.StopLossPct/100),
		TakeProfit: c.Close * (1 + risk.TakeProfitPct/100),
	})
	s.open = len(s.trades) - 1
	s.capital -= s.capital * s.commission
}

func (s *simulator) exit(c Candle, price float64, reason ExitReason) {
	trade := &s.trades[s.open]
	pnl := (price - trade.EntryPrice) * trade.Size

	s.capital += pnl
	s.capital -= s.capital * s.commission

	trade.Status = TradeStatusClosed
	trade.ExitTime = optional.Some(c.Time)
	trade.ExitPrice = optional.Some(price)
	trade.ExitReason = optional.Some(reason)
	trade.PnL = optional.Some(pnl)
	trade.PnLPercent = optional.Some((price - trade.EntryPrice) / trade.EntryPrice * 100)

	s.open = -1
	if s.capital > s.peak {
		s.peak = s.capital
	}
}

// IndicatorValue is one point of an indicator series. Value is null while
// the indicator warms up.
type IndicatorValue struct {
	Time  int64                    `json:"time"`
	Value optional.Option[float64] `json:"value"`
}

// IndicatorResult exposes a computed series for display.
type IndicatorResult struct {
	Type   IndicatorKind    `json:"type"`
	Params map[string]any   `json:"params"`
	Key    string           `json:"key"`
	Values []IndicatorValue `json:"values"`
}

func indicatorResults(candles []Candle, ind *Indicators) []IndicatorResult {
	out := make([]IndicatorResult, 0, len(ind.order))
	for _, spec := range ind.order {
		series := ind.series[spec]
		values := make([]IndicatorValue, len(candles))
		for i, c := range candles {
			values[i] = IndicatorValue{Time: c.Time, Value: series[i]}
		}
		out = append(out, IndicatorResult{
			Type:   spec.Kind(),
			Params: spec.Params(),
			Key:    SpecKey(spec),
			Values: values,
		})
	}
	return out
}
