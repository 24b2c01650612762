package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedIndicator = errors.New("unsupported indicator")
	ErrInvalidParameter     = errors.New("invalid indicator parameter")
)

type IndicatorKind string

const (
	KindSMA  IndicatorKind = "SMA"
	KindEMA  IndicatorKind = "EMA"
	KindRSI  IndicatorKind = "RSI"
	KindMACD IndicatorKind = "MACD"
)

// PriceSource selects the candle field an indicator reads.
type PriceSource string

const (
	SourceOpen   PriceSource = "open"
	SourceHigh   PriceSource = "high"
	SourceLow    PriceSource = "low"
	SourceClose  PriceSource = "close"
	SourceVolume PriceSource = "volume"
)

func (s PriceSource) valid() bool {
	switch s {
	case SourceOpen, SourceHigh, SourceLow, SourceClose, SourceVolume:
		return true
	}
	return false
}

// MACDComponent selects one of the three MACD output series.
type MACDComponent string

const (
	MACDLine   MACDComponent = "line"
	MACDSignal MACDComponent = "signal"
	MACDHist   MACDComponent = "hist"
)

const (
	defaultPeriod     = 14
	defaultMACDFast   = 12
	defaultMACDSlow   = 26
	defaultMACDSignal = 9
)

// IndicatorSpec identifies one indicator series. Every implementation is a
// comparable value type, so two specs are equal exactly when their kind and
// parameters match and a spec can key a map directly.
type IndicatorSpec interface {
	Kind() IndicatorKind
	Params() map[string]any
}

type SMA struct {
	Period int
	Source PriceSource
}

func (SMA) Kind() IndicatorKind { return KindSMA }

func (s SMA) Params() map[string]any {
	return map[string]any{"period": s.Period, "source": string(s.Source)}
}

type EMA struct {
	Period int
	Source PriceSource
}

func (EMA) Kind() IndicatorKind { return KindEMA }

func (e EMA) Params() map[string]any {
	return map[string]any{"period": e.Period, "source": string(e.Source)}
}

// RSI always reads close prices.
type RSI struct {
	Period int
}

func (RSI) Kind() IndicatorKind { return KindRSI }

func (r RSI) Params() map[string]any {
	return map[string]any{"period": r.Period}
}

type MACD struct {
	Fast      int
	Slow      int
	Signal    int
	Component MACDComponent
}

func (MACD) Kind() IndicatorKind { return KindMACD }

func (m MACD) Params() map[string]any {
	return map[string]any{
		"fast":      m.Fast,
		"slow":      m.Slow,
		"signal":    m.Signal,
		"component": string(m.Component),
	}
}

// SpecKey renders the canonical display key of a spec: the kind followed by
// its parameters sorted by name, e.g. "SMA_period:20_source:close".
func SpecKey(spec IndicatorSpec) string {
	params := spec.Params()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%v", name, params[name]))
	}
	return string(spec.Kind()) + "_" + strings.Join(parts, "_")
}

// ParseIndicatorSpec converts a loosely typed {type, params} pair into a
// typed spec, applying the defaults for missing parameters.
func ParseIndicatorSpec(kind string, params map[string]any) (IndicatorSpec, error) {
	switch IndicatorKind(kind) {
	case KindSMA, KindEMA:
		period, err := intParam(params, "period", defaultPeriod)
		if err != nil {
			return nil, err
		}
		source := PriceSource(stringParam(params, "source", string(SourceClose)))
		if !source.valid() {
			return nil, fmt.Errorf("%w: source %q", ErrInvalidParameter, source)
		}
		if IndicatorKind(kind) == KindSMA {
			return SMA{Period: period, Source: source}, nil
		}
		return EMA{Period: period, Source: source}, nil

	case KindRSI:
		period, err := intParam(params, "period", defaultPeriod)
		if err != nil {
			return nil, err
		}
		return RSI{Period: period}, nil

	case KindMACD:
		fast, err := intParam(params, "fast", defaultMACDFast)
		if err != nil {
			return nil, err
		}
		slow, err := intParam(params, "slow", defaultMACDSlow)
		if err != nil {
			return nil, err
		}
		signal, err := intParam(params, "signal", defaultMACDSignal)
		if err != nil {
			return nil, err
		}
		component := MACDComponent(stringParam(params, "component", string(MACDLine)))
		switch component {
		case MACDLine, MACDSignal, MACDHist:
		default:
			return nil, fmt.Errorf("%w: component %q", ErrInvalidParameter, component)
		}
		return MACD{Fast: fast, Slow: slow, Signal: signal, Component: component}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedIndicator, kind)
}

func intParam(params map[string]any, name string, fallback int) (int, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return fallback, nil
	}

	var f float64
	switch v := raw.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%v", ErrInvalidParameter, name, raw)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, name, v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidParameter, name, raw)
	}

	if f != math.Trunc(f) || f < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %v", ErrInvalidParameter, name, raw)
	}
	return int(f), nil
}

func stringParam(params map[string]any, name, fallback string) string {
	raw, ok := params[name]
	if !ok || raw == nil {
		return fallback
	}
	if s, ok := raw.(string); ok && s != "" {
		return s
	}
	return fmt.Sprintf("%v", raw)
}

// lookbackPeriod is the period a spec contributes to the warm-up window.
// MACD has no single period and counts as the default period.
func lookbackPeriod(spec IndicatorSpec) int {
	switch s := spec.(type) {
	case SMA:
		return s.Period
	case EMA:
		return s.Period
	case RSI:
		return s.Period
	}
	return defaultPeriod
}
