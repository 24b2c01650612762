package backtest

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesFromCloses(closes ...float64) []Candle {
	out := make([]Candle, len(closes))
	for i, c := range closes {
		out[i] = Candle{
			Time:   int64(i+1)*60_000 - 1,
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1,
		}
	}
	return out
}

func risingCloses(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

// unknownSpec is a spec type the engine does not know how to compute.
type unknownSpec struct{ Period int }

func (unknownSpec) Kind() IndicatorKind { return "BOLLINGER" }
func (unknownSpec) Params() map[string]any { return map[string]any{} }

func TestBuildIndicators_Alignment(t *testing.T) {
	candles := candlesFromCloses(risingCloses(40, 100)...)
	specs := []IndicatorSpec{
		SMA{Period: 5, Source: SourceClose},
		EMA{Period: 9, Source: SourceHigh},
		RSI{Period: 14},
		MACD{Fast: 12, Slow: 26, Signal: 9, Component: MACDLine},
		MACD{Fast: 12, Slow: 26, Signal: 9, Component: MACDSignal},
		MACD{Fast: 12, Slow: 26, Signal: 9, Component: MACDHist},
	}

	ind, err := BuildIndicators(candles, specs)
	require.NoError(t, err)

	for _, spec := range specs {
		s, ok := ind.Series(spec)
		require.True(t, ok, SpecKey(spec))
		assert.Len(t, s, len(candles), SpecKey(spec))
	}
}

func TestBuildIndicators_WarmupEntries(t *testing.T) {
	candles := candlesFromCloses(risingCloses(30, 10)...)

	tests := []struct {
		name       string
		spec       IndicatorSpec
		firstValid int
	}{
		{name: "SMA period 1", spec: SMA{Period: 1, Source: SourceClose}, firstValid: 0},
		{name: "SMA period 5", spec: SMA{Period: 5, Source: SourceClose}, firstValid: 4},
		{name: "EMA period 10", spec: EMA{Period: 10, Source: SourceClose}, firstValid: 9},
		{name: "RSI period 14", spec: RSI{Period: 14}, firstValid: 14},
		{name: "MACD line", spec: MACD{Fast: 3, Slow: 6, Signal: 4, Component: MACDLine}, firstValid: 5},
		{name: "MACD signal", spec: MACD{Fast: 3, Slow: 6, Signal: 4, Component: MACDSignal}, firstValid: 8},
		{name: "MACD hist", spec: MACD{Fast: 6, Slow: 3, Signal: 4, Component: MACDHist}, firstValid: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind, err := BuildIndicators(candles, []IndicatorSpec{tt.spec})
			require.NoError(t, err)

			s, _ := ind.Series(tt.spec)
			for i, v := range s {
				if i < tt.firstValid {
					assert.True(t, v.IsNone(), "index %d should be warming up", i)
				} else {
					assert.True(t, v.IsSome(), "index %d should be defined", i)
				}
			}
		})
	}
}

func TestBuildIndicators_Values(t *testing.T) {
	t.Run("SMA is the windowed mean", func(t *testing.T) {
		ind, err := BuildIndicators(candlesFromCloses(1, 2, 3, 4, 5, 6), []IndicatorSpec{SMA{Period: 3, Source: SourceClose}})
		require.NoError(t, err)

		s, _ := ind.Series(SMA{Period: 3, Source: SourceClose})
		assert.InDelta(t, 2.0, s[2].Unwrap(), 1e-12)
		assert.InDelta(t, 3.0, s[3].Unwrap(), 1e-12)
		assert.InDelta(t, 5.0, s[5].Unwrap(), 1e-12)
	})

	t.Run("SMA reads the configured source", func(t *testing.T) {
		candles := []Candle{
			{Time: 1, Open: 1, High: 10, Low: 1, Close: 5, Volume: 100},
			{Time: 2, Open: 1, High: 20, Low: 1, Close: 5, Volume: 300},
		}
		spec := SMA{Period: 2, Source: SourceVolume}
		ind, err := BuildIndicators(candles, []IndicatorSpec{spec})
		require.NoError(t, err)

		assert.InDelta(t, 200.0, ind.Value(spec, 1).Unwrap(), 1e-12)
	})

	t.Run("EMA is seeded on the first value", func(t *testing.T) {
		spec := EMA{Period: 2, Source: SourceClose}
		ind, err := BuildIndicators(candlesFromCloses(1, 2, 3), []IndicatorSpec{spec})
		require.NoError(t, err)

		s, _ := ind.Series(spec)
		assert.True(t, s[0].IsNone())
		assert.InDelta(t, 5.0/3.0, s[1].Unwrap(), 1e-12)
		assert.InDelta(t, 23.0/9.0, s[2].Unwrap(), 1e-12)
	})

	t.Run("RSI uses Wilder smoothing", func(t *testing.T) {
		spec := RSI{Period: 2}
		ind, err := BuildIndicators(candlesFromCloses(1, 2, 1, 2), []IndicatorSpec{spec})
		require.NoError(t, err)

		s, _ := ind.Series(spec)
		assert.True(t, s[0].IsNone())
		assert.True(t, s[1].IsNone())
		assert.InDelta(t, 50.0, s[2].Unwrap(), 1e-12)
		assert.InDelta(t, 75.0, s[3].Unwrap(), 1e-12)
	})

	t.Run("RSI of a constant series is 100", func(t *testing.T) {
		spec := RSI{Period: 14}
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 42
		}
		ind, err := BuildIndicators(candlesFromCloses(closes...), []IndicatorSpec{spec})
		require.NoError(t, err)

		s, _ := ind.Series(spec)
		for i := 14; i < len(s); i++ {
			assert.Equal(t, 100.0, s[i].Unwrap(), "index %d", i)
		}
	})

	t.Run("RSI of a rising series is 100", func(t *testing.T) {
		spec := RSI{Period: 5}
		ind, err := BuildIndicators(candlesFromCloses(risingCloses(10, 1)...), []IndicatorSpec{spec})
		require.NoError(t, err)

		assert.Equal(t, 100.0, ind.Value(spec, 9).Unwrap())
	})

	t.Run("MACD histogram is line minus signal", func(t *testing.T) {
		candles := candlesFromCloses(3, 5, 4, 8, 7, 9, 12, 10, 11, 15, 14, 13)
		line := MACD{Fast: 2, Slow: 4, Signal: 3, Component: MACDLine}
		signal := MACD{Fast: 2, Slow: 4, Signal: 3, Component: MACDSignal}
		hist := MACD{Fast: 2, Slow: 4, Signal: 3, Component: MACDHist}

		ind, err := BuildIndicators(candles, []IndicatorSpec{line, signal, hist})
		require.NoError(t, err)

		for i := 5; i < len(candles); i++ {
			l, s, h := ind.Value(line, i).Unwrap(), ind.Value(signal, i).Unwrap(), ind.Value(hist, i).Unwrap()
			assert.InDelta(t, l-s, h, 1e-12, "index %d", i)
		}
	})

	t.Run("MACD line uses the unexposed EMA recurrence", func(t *testing.T) {
		closes := []float64{3, 5, 4, 8, 7, 9}
		spec := MACD{Fast: 2, Slow: 4, Signal: 3, Component: MACDLine}
		ind, err := BuildIndicators(candlesFromCloses(closes...), []IndicatorSpec{spec})
		require.NoError(t, err)

		fast := emaRecurrence(closes, 2)
		slow := emaRecurrence(closes, 4)
		assert.True(t, ind.Value(spec, 2).IsNone())
		assert.InDelta(t, fast[3]-slow[3], ind.Value(spec, 3).Unwrap(), 1e-12)
	})

	t.Run("signal is seeded on the first MACD value", func(t *testing.T) {
		closes := []float64{3, 5, 4, 8, 7, 9}
		line := MACD{Fast: 2, Slow: 3, Signal: 1, Component: MACDLine}
		signal := MACD{Fast: 2, Slow: 3, Signal: 1, Component: MACDSignal}
		ind, err := BuildIndicators(candlesFromCloses(closes...), []IndicatorSpec{line, signal})
		require.NoError(t, err)

		// signal period 1 has k = 1, so the signal equals the line
		for i := 2; i < len(closes); i++ {
			assert.InDelta(t, ind.Value(line, i).Unwrap(), ind.Value(signal, i).Unwrap(), 1e-12)
		}
	})
}

func TestBuildIndicators_Dedup(t *testing.T) {
	spec := SMA{Period: 3, Source: SourceClose}
	ind, err := BuildIndicators(candlesFromCloses(1, 2, 3, 4), []IndicatorSpec{spec, SMA{Period: 3, Source: SourceClose}, RSI{Period: 2}, spec})
	require.NoError(t, err)

	assert.Equal(t, []IndicatorSpec{spec, RSI{Period: 2}}, ind.Specs())
}

func TestBuildIndicators_Errors(t *testing.T) {
	candles := candlesFromCloses(1, 2, 3)

	_, err := BuildIndicators(candles, []IndicatorSpec{unknownSpec{Period: 3}})
	assert.ErrorIs(t, err, ErrUnsupportedIndicator)

	_, err = BuildIndicators(candles, []IndicatorSpec{SMA{Period: 0, Source: SourceClose}})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildIndicators(candles, []IndicatorSpec{EMA{Period: 3, Source: "vwap"}})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildIndicators(candles, []IndicatorSpec{EMA{Period: 1}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBuildIndicators_ShortHistory(t *testing.T) {
	spec := SMA{Period: 50, Source: SourceClose}
	ind, err := BuildIndicators(candlesFromCloses(1, 2, 3), []IndicatorSpec{spec, RSI{Period: 50}})
	require.NoError(t, err)

	s, _ := ind.Series(spec)
	assert.Equal(t, Series{nil, nil, nil}, s)
	assert.True(t, ind.Value(spec, 10).IsNone())
	assert.True(t, ind.Value(RSI{Period: 3}, 1).IsNone())
}

func TestSeries_At(t *testing.T) {
	s := Series{optional.None[float64](), optional.Some(2.0)}
	assert.True(t, s.At(-1).IsNone())
	assert.True(t, s.At(0).IsNone())
	assert.Equal(t, 2.0, s.At(1).Unwrap())
	assert.True(t, s.At(2).IsNone())
}

func TestParseIndicatorSpec(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		params  map[string]any
		want    IndicatorSpec
		wantErr error
	}{
		{name: "SMA defaults", kind: "SMA", params: nil, want: SMA{Period: 14, Source: SourceClose}},
		{name: "EMA from JSON numbers", kind: "EMA", params: map[string]any{"period": float64(20), "source": "high"}, want: EMA{Period: 20, Source: SourceHigh}},
		{name: "RSI string period", kind: "RSI", params: map[string]any{"period": "7"}, want: RSI{Period: 7}},
		{name: "MACD defaults", kind: "MACD", params: map[string]any{}, want: MACD{Fast: 12, Slow: 26, Signal: 9, Component: MACDLine}},
		{name: "MACD hist", kind: "MACD", params: map[string]any{"fast": 5, "slow": 10, "signal": 3, "component": "hist"}, want: MACD{Fast: 5, Slow: 10, Signal: 3, Component: MACDHist}},
		{name: "unknown kind", kind: "BB", wantErr: ErrUnsupportedIndicator},
		{name: "lower case kind", kind: "sma", wantErr: ErrUnsupportedIndicator},
		{name: "fractional period", kind: "SMA", params: map[string]any{"period": 2.5}, wantErr: ErrInvalidParameter},
		{name: "negative period", kind: "EMA", params: map[string]any{"period": -3}, wantErr: ErrInvalidParameter},
		{name: "garbage period", kind: "RSI", params: map[string]any{"period": "abc"}, wantErr: ErrInvalidParameter},
		{name: "bad source", kind: "SMA", params: map[string]any{"source": "typical"}, wantErr: ErrInvalidParameter},
		{name: "bad component", kind: "MACD", params: map[string]any{"component": "histogram"}, wantErr: ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIndicatorSpec(tt.kind, tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpecKey(t *testing.T) {
	assert.Equal(t, "SMA_period:20_source:close", SpecKey(SMA{Period: 20, Source: SourceClose}))
	assert.Equal(t, "RSI_period:14", SpecKey(RSI{Period: 14}))
	assert.Equal(t, "MACD_component:signal_fast:12_signal:9_slow:26", SpecKey(MACD{Fast: 12, Slow: 26, Signal: 9, Component: MACDSignal}))
}

func TestSpecEquality(t *testing.T) {
	m := map[IndicatorSpec]int{}
	m[SMA{Period: 5, Source: SourceClose}] = 1
	m[EMA{Period: 5, Source: SourceClose}] = 2

	assert.Equal(t, 1, m[SMA{Period: 5, Source: SourceClose}])
	assert.Equal(t, 2, m[EMA{Period: 5, Source: SourceClose}])
	assert.NotContains(t, m, SMA{Period: 5, Source: SourceOpen})
}
