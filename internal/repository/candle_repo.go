package repository

import (
	"context"
	"fmt"
	"time"

	"golang-backtest/internal/backtest"
	"golang-backtest/internal/dto"
	"golang-backtest/pkg/cache"
	"golang-backtest/pkg/common"
	"golang-backtest/pkg/logger"
)

// CandleRepository serves candle ranges, keeping recent ranges in memory.
type CandleRepository interface {
	GetCandles(ctx context.Context, param dto.GetCandlesParam) ([]backtest.Candle, error)
}

type candleRepository struct {
	binanceRepo BinanceRepository
	cache       cache.Cache
	expiration  time.Duration
	logger      *logger.Logger
}

func NewCandleRepository(binanceRepo BinanceRepository, c cache.Cache, expiration time.Duration, log *logger.Logger) CandleRepository {
	return &candleRepository{
		binanceRepo: binanceRepo,
		cache:       c,
		expiration:  expiration,
		logger:      log,
	}
}

func (r *candleRepository) GetCandles(ctx context.Context, param dto.GetCandlesParam) ([]backtest.Candle, error) {
	key := fmt.Sprintf(common.KEY_CANDLES, param.Symbol, param.Interval, param.StartTime, param.EndTime)
	if candles, ok := cache.GetFromCache[[]backtest.Candle](r.cache, key); ok {
		r.logger.DebugContext(ctx, "Candle cache hit", logger.StringField("key", key))
		return candles, nil
	}

	candles, err := r.binanceRepo.GetCandles(ctx, param)
	if err != nil {
		return nil, err
	}

	// empty ranges are not cached, the exchange may still be filling them
	if len(candles) > 0 && r.cache != nil {
		r.cache.Set(key, candles, r.expiration)
	}
	return candles, nil
}
