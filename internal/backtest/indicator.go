package backtest

import (
	"fmt"
	"math"

	"github.com/moznion/go-optional"
)

// Series holds one value per candle. None marks a warming-up entry.
type Series []optional.Option[float64]

// At returns the value at index i, or None when i is out of range.
func (s Series) At(i int) optional.Option[float64] {
	if i < 0 || i >= len(s) {
		return optional.None[float64]()
	}
	return s[i]
}

// Indicators maps each distinct spec to its series. It is read-only once
// BuildIndicators returns and may be shared between goroutines.
type Indicators struct {
	series map[IndicatorSpec]Series
	order  []IndicatorSpec
}

// Series returns the series computed for spec.
func (ind *Indicators) Series(spec IndicatorSpec) (Series, bool) {
	if ind == nil || spec == nil {
		return nil, false
	}
	s, ok := ind.series[spec]
	return s, ok
}

// Value returns the value of spec at index i, or None when the spec was not
// computed, the index is out of range or the entry is still warming up.
func (ind *Indicators) Value(spec IndicatorSpec, i int) optional.Option[float64] {
	s, ok := ind.Series(spec)
	if !ok {
		return optional.None[float64]()
	}
	return s.At(i)
}

// Specs returns the computed specs in first-seen order.
func (ind *Indicators) Specs() []IndicatorSpec {
	return append([]IndicatorSpec(nil), ind.order...)
}

// BuildIndicators computes one series per distinct spec. Identical specs
// share a single series. Short history yields None entries, never an error.
func BuildIndicators(candles []Candle, specs []IndicatorSpec) (*Indicators, error) {
	ind := &Indicators{series: make(map[IndicatorSpec]Series, len(specs))}

	for _, spec := range specs {
		if spec == nil {
			return nil, fmt.Errorf("%w: nil spec", ErrUnsupportedIndicator)
		}
		if _, ok := ind.series[spec]; ok {
			continue
		}

		s, err := compute(candles, spec)
		if err != nil {
			return nil, err
		}
		ind.series[spec] = s
		ind.order = append(ind.order, spec)
	}

	return ind, nil
}

func compute(candles []Candle, spec IndicatorSpec) (Series, error) {
	switch s := spec.(type) {
	case SMA:
		values, err := sourceValues(candles, s.Source)
		if err != nil {
			return nil, err
		}
		if err := checkPeriods(spec, s.Period); err != nil {
			return nil, err
		}
		return sma(values, s.Period), nil

	case EMA:
		values, err := sourceValues(candles, s.Source)
		if err != nil {
			return nil, err
		}
		if err := checkPeriods(spec, s.Period); err != nil {
			return nil, err
		}
		return ema(values, s.Period), nil

	case RSI:
		if err := checkPeriods(spec, s.Period); err != nil {
			return nil, err
		}
		values, _ := sourceValues(candles, SourceClose)
		return rsi(values, s.Period), nil

	case MACD:
		if err := checkPeriods(spec, s.Fast, s.Slow, s.Signal); err != nil {
			return nil, err
		}
		values, _ := sourceValues(candles, SourceClose)
		line, signal, hist := macd(values, s.Fast, s.Slow, s.Signal)
		switch s.Component {
		case MACDLine:
			return line, nil
		case MACDSignal:
			return signal, nil
		case MACDHist:
			return hist, nil
		}
		return nil, fmt.Errorf("%w: %s component %q", ErrInvalidParameter, SpecKey(spec), s.Component)
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedIndicator, spec)
}

func checkPeriods(spec IndicatorSpec, periods ...int) error {
	for _, p := range periods {
		if p < 1 {
			return fmt.Errorf("%w: %s period must be positive", ErrInvalidParameter, SpecKey(spec))
		}
	}
	return nil
}

func sourceValues(candles []Candle, source PriceSource) ([]float64, error) {
	var pick func(Candle) float64
	switch source {
	case SourceOpen:
		pick = func(c Candle) float64 { return c.Open }
	case SourceHigh:
		pick = func(c Candle) float64 { return c.High }
	case SourceLow:
		pick = func(c Candle) float64 { return c.Low }
	case SourceClose:
		pick = func(c Candle) float64 { return c.Close }
	case SourceVolume:
		pick = func(c Candle) float64 { return c.Volume }
	default:
		return nil, fmt.Errorf("%w: source %q", ErrInvalidParameter, source)
	}

	values := make([]float64, len(candles))
	for i, c := range candles {
		values[i] = pick(c)
	}
	return values, nil
}

func sma(values []float64, period int) Series {
	out := make(Series, len(values))
	p := float64(period)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = optional.Some(sum / p)
		}
	}
	return out
}

// emaRecurrence runs the EMA from index 0 seeded with the first value and
// returns every step, exposed or not.
func emaRecurrence(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	k := 2 / (float64(period) + 1)
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = v*k + out[i-1]*(1-k)
	}
	return out
}

func ema(values []float64, period int) Series {
	out := make(Series, len(values))
	for i, v := range emaRecurrence(values, period) {
		if i >= period-1 {
			out[i] = optional.Some(v)
		}
	}
	return out
}

// rsi uses Wilder's smoothing. The first value sits at index period.
func rsi(values []float64, period int) Series {
	out := make(Series, len(values))
	p := float64(period)
	avgGain, avgLoss := 0.0, 0.0

	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)

		if i <= period {
			avgGain += gain
			avgLoss += loss
			if i == period {
				avgGain /= p
				avgLoss /= p
				out[i] = optional.Some(rsiValue(avgGain, avgLoss))
			}
			continue
		}

		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = optional.Some(rsiValue(avgGain, avgLoss))
	}
	return out
}

// rsiValue treats a zero average loss as an infinite RS, so a flat series
// reads 100 rather than NaN.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func macd(values []float64, fast, slow, signal int) (line, sig, hist Series) {
	n := len(values)
	line, sig, hist = make(Series, n), make(Series, n), make(Series, n)

	fastEMA := emaRecurrence(values, fast)
	slowEMA := emaRecurrence(values, slow)
	start := max(fast, slow) - 1
	k := 2 / (float64(signal) + 1)

	var signalEMA float64
	for i := start; i < n; i++ {
		m := fastEMA[i] - slowEMA[i]
		line[i] = optional.Some(m)

		if i == start {
			signalEMA = m
		} else {
			signalEMA = m*k + signalEMA*(1-k)
		}

		if i >= start+signal-1 {
			sig[i] = optional.Some(signalEMA)
			hist[i] = optional.Some(m - signalEMA)
		}
	}
	return line, sig, hist
}
