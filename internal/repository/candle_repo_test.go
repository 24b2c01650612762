package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-backtest/internal/backtest"
	"golang-backtest/internal/dto"
	"golang-backtest/pkg/cache"
	"golang-backtest/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBinanceRepository struct {
	mock.Mock
}

func (m *mockBinanceRepository) GetKlines(ctx context.Context, symbol string, interval string, limit int, startTime, endTime int64) ([]dto.BinanceKlines, error) {
	args := m.Called(ctx, symbol, interval, limit, startTime, endTime)
	return args.Get(0).([]dto.BinanceKlines), args.Error(1)
}

func (m *mockBinanceRepository) GetCandles(ctx context.Context, param dto.GetCandlesParam) ([]backtest.Candle, error) {
	args := m.Called(ctx, param)
	candles, _ := args.Get(0).([]backtest.Candle)
	return candles, args.Error(1)
}

func TestCandleRepository_CachesNonEmptyRanges(t *testing.T) {
	param := dto.GetCandlesParam{Symbol: "BTCUSDT", Interval: "1h", StartTime: 1, EndTime: 2}
	candles := []backtest.Candle{{Time: 1, Close: 10}}

	binance := new(mockBinanceRepository)
	binance.On("GetCandles", mock.Anything, param).Return(candles, nil).Once()

	c := cache.New(time.Minute, time.Minute)
	repo := NewCandleRepository(binance, c, time.Minute, logger.NewNop())

	first, err := repo.GetCandles(context.Background(), param)
	require.NoError(t, err)
	second, err := repo.GetCandles(context.Background(), param)
	require.NoError(t, err)

	assert.Equal(t, candles, first)
	assert.Equal(t, candles, second)
	assert.Equal(t, 1, c.ItemCount())
	_, found := c.Get("candles:BTCUSDT:1h:1:2")
	assert.True(t, found)
	binance.AssertExpectations(t)
}

func TestCandleRepository_DoesNotCacheEmptyOrFailedRanges(t *testing.T) {
	empty := dto.GetCandlesParam{Symbol: "BTCUSDT", Interval: "1h", StartTime: 1, EndTime: 2}
	failing := dto.GetCandlesParam{Symbol: "ETHUSDT", Interval: "1h", StartTime: 1, EndTime: 2}

	binance := new(mockBinanceRepository)
	binance.On("GetCandles", mock.Anything, empty).Return([]backtest.Candle{}, nil).Twice()
	binance.On("GetCandles", mock.Anything, failing).Return(nil, errors.New("boom")).Once()

	c := cache.New(time.Minute, time.Minute)
	repo := NewCandleRepository(binance, c, time.Minute, logger.NewNop())

	for i := 0; i < 2; i++ {
		candles, err := repo.GetCandles(context.Background(), empty)
		require.NoError(t, err)
		assert.Empty(t, candles)
	}
	_, err := repo.GetCandles(context.Background(), failing)
	assert.EqualError(t, err, "boom")

	assert.Zero(t, c.ItemCount())
	binance.AssertExpectations(t)
}
