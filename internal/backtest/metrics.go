package backtest

import (
	"math"
)

// Summarize aggregates the closed trades and the equity curve. Open trades
// are ignored.
//
// MaxDrawdown is the global max(equity) - min(equity) over the whole curve,
// not a sequential peak-to-trough drawdown. Historical results depend on it,
// so it stays that way.
func Summarize(trades []Trade, equityCurve []EquityPoint, initialCapital, finalCapital float64) Metrics {
	m := Metrics{FinalCapital: finalCapital}

	var winSum, lossSum float64
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		pnl := t.PnL.TakeOr(0)
		m.TotalTrades++
		m.TotalPnL += pnl

		if pnl > 0 {
			if m.WinningTrades == 0 || pnl > m.LargestWin {
				m.LargestWin = pnl
			}
			m.WinningTrades++
			winSum += pnl
		} else {
			if m.LosingTrades == 0 || pnl < m.LargestLoss {
				m.LargestLoss = pnl
			}
			m.LosingTrades++
			lossSum += pnl
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if m.WinningTrades > 0 {
		m.AverageWin = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = lossSum / float64(m.LosingTrades)
	}

	m.TotalPnLPercent = finite((finalCapital - initialCapital) / initialCapital * 100)

	maxEquity, minEquity := initialCapital, initialCapital
	for _, p := range equityCurve {
		maxEquity = math.Max(maxEquity, p.Equity)
		minEquity = math.Min(minEquity, p.Equity)
	}
	m.MaxDrawdown = maxEquity - minEquity
	m.MaxDrawdownPercent = finite(m.MaxDrawdown / maxEquity * 100)

	return m
}

// finite clamps NaN and infinities to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
