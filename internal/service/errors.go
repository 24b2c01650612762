package service

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidStrategy = errors.New("invalid strategy")
	ErrNoCandles       = errors.New("no candles found for the given range")
	ErrNotFound        = errors.New("backtest not found")
	// ErrCompileRejected is returned when the model refused the description
	// or produced a document that fails validation.
	ErrCompileRejected = errors.New("strategy could not be compiled")
)
