package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"golang-backtest/internal/dto"
	"golang-backtest/internal/repository"
	"golang-backtest/internal/service"
	"golang-backtest/pkg/utils"

	"github.com/spf13/cobra"
)

var backtestFlags struct {
	strategyFile string
	symbol       string
	interval     string
	start        string
	end          string
	capital      float64
	commission   float64
	full         bool
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one backtest from a strategy file and print the result as JSON",
	Example: `  golang-backtest backtest --strategy ema_cross.json --symbol ETHUSDT --interval 4h \
    --start 2024-01-01 --end 2024-06-01`,
	RunE: runBacktestCommand,
}

func init() {
	flags := backtestCmd.Flags()
	flags.StringVarP(&backtestFlags.strategyFile, "strategy", "f", "", "path to a strategy JSON file")
	flags.StringVar(&backtestFlags.symbol, "symbol", "BTCUSDT", "Binance symbol")
	flags.StringVar(&backtestFlags.interval, "interval", "1h", "kline interval")
	flags.StringVar(&backtestFlags.start, "start", "", "range start, epoch ms or date")
	flags.StringVar(&backtestFlags.end, "end", "", "range end, epoch ms or date")
	flags.Float64Var(&backtestFlags.capital, "capital", 0, "initial capital, configured default when 0")
	flags.Float64Var(&backtestFlags.commission, "commission", -1, "commission rate, configured default when negative")
	flags.BoolVar(&backtestFlags.full, "full", false, "print trades, equity curve and indicator series too")
	_ = backtestCmd.MarkFlagRequired("strategy")
	_ = backtestCmd.MarkFlagRequired("start")
	_ = backtestCmd.MarkFlagRequired("end")
}

func runBacktestCommand(cmd *cobra.Command, args []string) error {
	req, err := backtestRequestFromFlags()
	if err != nil {
		return err
	}

	appDep, err := newBaseDependency()
	if err != nil {
		return err
	}
	defer appDep.Close()

	if err := appDep.validator.StructExcept(req, dto.StrategyFileOptionalFields...); err != nil {
		return fmt.Errorf("invalid backtest request: %w", err)
	}

	binanceRepo := repository.NewBinanceRepository(appDep.cfg, appDep.log)
	candleRepo := repository.NewCandleRepository(binanceRepo, appDep.cache, appDep.cfg.Cache.CandleExpiration, appDep.log)
	backtestService := service.NewBacktestService(appDep.cfg, appDep.log, candleRepo, nil, nil)

	resp, err := backtestService.Simulate(cmd.Context(), req)
	if err != nil {
		return err
	}

	var out interface{} = struct {
		Symbol   string      `json:"symbol"`
		Interval string      `json:"interval"`
		Start    string      `json:"start"`
		End      string      `json:"end"`
		Strategy string      `json:"strategyName"`
		Candles  int         `json:"candles"`
		Metrics  interface{} `json:"metrics"`
	}{
		Symbol:   resp.Symbol,
		Interval: resp.Interval,
		Start:    utils.FormatUnixMilli(resp.StartTime),
		End:      utils.FormatUnixMilli(resp.EndTime),
		Strategy: resp.Strategy,
		Candles:  len(resp.Candles),
		Metrics:  resp.Metrics,
	}
	if backtestFlags.full {
		out = resp
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func backtestRequestFromFlags() (dto.BacktestRequest, error) {
	raw, err := os.ReadFile(backtestFlags.strategyFile)
	if err != nil {
		return dto.BacktestRequest{}, fmt.Errorf("failed to read strategy file: %w", err)
	}

	var strategy dto.StrategyRequest
	if err := json.Unmarshal(raw, &strategy); err != nil {
		return dto.BacktestRequest{}, fmt.Errorf("failed to parse strategy file: %w", err)
	}

	start, err := utils.ParseUnixMilli(backtestFlags.start)
	if err != nil {
		return dto.BacktestRequest{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := utils.ParseUnixMilli(backtestFlags.end)
	if err != nil {
		return dto.BacktestRequest{}, fmt.Errorf("invalid --end: %w", err)
	}

	req := dto.BacktestRequest{
		Symbol:    backtestFlags.symbol,
		Interval:  backtestFlags.interval,
		StartTime: start,
		EndTime:   end,
		Strategy:  strategy,
	}
	if backtestFlags.capital > 0 {
		req.InitialCapital = utils.ToPointer(backtestFlags.capital)
	}
	if backtestFlags.commission >= 0 {
		req.Commission = utils.ToPointer(backtestFlags.commission)
	}
	return req, nil
}
