package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang-backtest/config"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/dto"
	"golang-backtest/pkg/httpclient"
	"golang-backtest/pkg/logger"
	"golang-backtest/pkg/utils"

	"golang.org/x/time/rate"
)

const (
	binanceKlinesEndpoint = "/api/v3/klines"
	binanceMaxKlinesLimit = 1000
	binanceAPIKeyHeader   = "X-MBX-APIKEY"
)

type BinanceRepository interface {
	GetKlines(ctx context.Context, symbol string, interval string, limit int, startTime, endTime int64) ([]dto.BinanceKlines, error)
	GetCandles(ctx context.Context, param dto.GetCandlesParam) ([]backtest.Candle, error)
}

type binanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewBinanceRepository(cfg *config.Config, log *logger.Logger) BinanceRepository {
	client := httpclient.New(log, cfg.Binance.BaseURL, cfg.Binance.Timeout,
		httpclient.WithRetry(cfg.Binance.RetryCount, 500*time.Millisecond, 5*time.Second),
		httpclient.WithHeader(binanceAPIKeyHeader, cfg.Binance.APIKey),
	)
	return newBinanceRepository(cfg, log, client)
}

func newBinanceRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *binanceRepository {
	limit := rate.Inf
	if cfg.Binance.MaxRequestPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.Binance.MaxRequestPerMinute))
	}

	return &binanceRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(limit, 1),
	}
}

func (r *binanceRepository) GetKlines(ctx context.Context, symbol string, interval string, limit int, startTime, endTime int64) ([]dto.BinanceKlines, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{
		"symbol":    symbol,
		"interval":  interval,
		"limit":     strconv.Itoa(limit),
		"startTime": strconv.FormatInt(startTime, 10),
		"endTime":   strconv.FormatInt(endTime, 10),
	}

	var klines [][]interface{}
	resp, err := r.httpClient.Get(ctx, binanceKlinesEndpoint, queryParams, nil, &klines)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch klines from binance: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Binance API returned Non-OK status for klines",
			logger.StringField("symbol", symbol),
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("%w: binance api returned status: %d", ErrUpstream, resp.StatusCode)
	}

	result := make([]dto.BinanceKlines, 0, len(klines))
	for i, k := range klines {
		kline, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("%w: kline %d: %v", ErrUpstream, i, err)
		}
		result = append(result, kline)
	}

	return result, nil
}

// GetCandles pages through klines from StartTime until EndTime. Candles are
// stamped with their close time and anything closing after EndTime is
// dropped.
func (r *binanceRepository) GetCandles(ctx context.Context, param dto.GetCandlesParam) ([]backtest.Candle, error) {
	limit := r.cfg.Binance.KlinesLimit
	if limit <= 0 || limit > binanceMaxKlinesLimit {
		limit = binanceMaxKlinesLimit
	}
	maxCandles := r.cfg.Backtest.MaxCandles

	var candles []backtest.Candle
	cursor := param.StartTime
	for page := 1; cursor <= param.EndTime; page++ {
		if !utils.ShouldContinue(ctx, r.logger) {
			return nil, ctx.Err()
		}

		klines, err := r.GetKlines(ctx, param.Symbol, param.Interval, limit, cursor, param.EndTime)
		if err != nil {
			return nil, err
		}

		r.logger.DebugContext(ctx, "Fetched klines page",
			logger.StringField("symbol", param.Symbol),
			logger.StringField("interval", param.Interval),
			logger.IntField("page", page),
			logger.IntField("count", len(klines)))

		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			if k.CloseTime > param.EndTime {
				continue
			}
			candles = append(candles, backtest.Candle{
				Time:   k.CloseTime,
				Open:   k.Open,
				High:   k.High,
				Low:    k.Low,
				Close:  k.Close,
				Volume: k.Volume,
			})
		}

		if maxCandles > 0 && len(candles) > maxCandles {
			return nil, fmt.Errorf("%w: more than %d candles", ErrTooManyCandles, maxCandles)
		}

		lastClose := klines[len(klines)-1].CloseTime
		if len(klines) < limit || lastClose >= param.EndTime {
			break
		}
		cursor = lastClose + 1
	}

	return normalizeCandles(candles), nil
}

// normalizeCandles sorts by time and keeps the first candle of each time.
func normalizeCandles(candles []backtest.Candle) []backtest.Candle {
	if len(candles) == 0 {
		return candles
	}
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Time < candles[j].Time
	})

	out := candles[:1]
	for _, c := range candles[1:] {
		if c.Time == out[len(out)-1].Time {
			continue
		}
		out = append(out, c)
	}
	return out
}

func parseKline(k []interface{}) (dto.BinanceKlines, error) {
	if len(k) < 11 {
		return dto.BinanceKlines{}, fmt.Errorf("expected 11 fields, got %d", len(k))
	}

	var (
		kline dto.BinanceKlines
		err   error
	)
	if kline.OpenTime, err = klineInt(k[0]); err != nil {
		return kline, fmt.Errorf("open time: %w", err)
	}
	if kline.Open, err = klineFloat(k[1]); err != nil {
		return kline, fmt.Errorf("open: %w", err)
	}
	if kline.High, err = klineFloat(k[2]); err != nil {
		return kline, fmt.Errorf("high: %w", err)
	}
	if kline.Low, err = klineFloat(k[3]); err != nil {
		return kline, fmt.Errorf("low: %w", err)
	}
	if kline.Close, err = klineFloat(k[4]); err != nil {
		return kline, fmt.Errorf("close: %w", err)
	}
	if kline.Volume, err = klineFloat(k[5]); err != nil {
		return kline, fmt.Errorf("volume: %w", err)
	}
	if kline.CloseTime, err = klineInt(k[6]); err != nil {
		return kline, fmt.Errorf("close time: %w", err)
	}
	if kline.QuoteAssetVolume, err = klineFloat(k[7]); err != nil {
		return kline, fmt.Errorf("quote asset volume: %w", err)
	}
	if kline.NumberOfTrades, err = klineInt(k[8]); err != nil {
		return kline, fmt.Errorf("number of trades: %w", err)
	}
	if kline.TakerBuyBaseAssetVolume, err = klineFloat(k[9]); err != nil {
		return kline, fmt.Errorf("taker buy base volume: %w", err)
	}
	if kline.TakerBuyQuoteAssetVolume, err = klineFloat(k[10]); err != nil {
		return kline, fmt.Errorf("taker buy quote volume: %w", err)
	}
	return kline, nil
}

// Binance sends prices as strings and times as numbers.
func klineFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(t, 64)
	case float64:
		return t, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func klineInt(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
