package dto

import (
	"time"

	"golang-backtest/internal/backtest"
)

// BacktestRequest runs one strategy over a Binance candle range. Times are
// epoch milliseconds.
type BacktestRequest struct {
	Symbol         string          `json:"symbol" validate:"required"`
	Interval       string          `json:"interval" validate:"required,binance_interval"`
	StartTime      int64           `json:"startTime" validate:"gte=0"`
	EndTime        int64           `json:"endTime" validate:"gte=0"`
	Strategy       StrategyRequest `json:"strategy"`
	InitialCapital *float64        `json:"initialCapital,omitempty" validate:"omitempty,gt=0"`
	Commission     *float64        `json:"commission,omitempty" validate:"omitempty,gte=0"`
}

// StrategyFileOptionalFields are the BacktestRequest fields a strategy file
// for the backtest command may leave out. A missing exit never fires, so
// positions only close on stop loss or take profit.
var StrategyFileOptionalFields = []string{"Strategy.Exit"}

type BatchBacktestRequest struct {
	Requests []BacktestRequest `json:"requests" validate:"required,min=1,dive"`
}

// BacktestResponse is a run result together with the request that produced
// it. ID is empty when the run was not stored.
type BacktestResponse struct {
	ID        string `json:"id,omitempty"`
	Symbol    string `json:"symbol"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Strategy  string `json:"strategyName"`
	backtest.Result
}

type BatchBacktestItem struct {
	Index   int               `json:"index"`
	Success bool              `json:"success"`
	Data    *BacktestResponse `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type BatchBacktestResponse struct {
	Results []BatchBacktestItem `json:"results"`
}

type ListBacktestParam struct {
	Symbol string `query:"symbol"`
	Limit  int    `query:"limit" validate:"omitempty,gt=0,lte=100"`
}

// BacktestSummary is a stored run without its series.
type BacktestSummary struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Interval  string           `json:"interval"`
	StartTime int64            `json:"startTime"`
	EndTime   int64            `json:"endTime"`
	Strategy  string           `json:"strategyName"`
	Metrics   backtest.Metrics `json:"metrics"`
	CreatedAt time.Time        `json:"createdAt"`
}
