package repository

import "errors"

var (
	// ErrUpstream marks a failed call to an external API.
	ErrUpstream = errors.New("upstream request failed")
	// ErrTooManyCandles is returned when a range exceeds the configured
	// candle budget.
	ErrTooManyCandles = errors.New("too many candles in range")
	// ErrCompilerUnavailable is returned when no Gemini API key is set.
	ErrCompilerUnavailable = errors.New("strategy compiler is not configured")
	// ErrInvalidModelOutput is returned when the model reply is not a
	// strategy document.
	ErrInvalidModelOutput = errors.New("invalid JSON from LLM")
)
