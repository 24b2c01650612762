package repository

import (
	"context"

	"golang-backtest/config"
	"golang-backtest/pkg/cache"
	"golang-backtest/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	BinanceRepo          BinanceRepository
	CandleRepo           CandleRepository
	BacktestRunRepo      BacktestRunRepository
	StrategyCompilerRepo StrategyCompilerRepository
	UnitOfWork           UnitOfWork
}

func NewRepository(ctx context.Context, cfg *config.Config, db *gorm.DB, inmemoryCache cache.Cache, log *logger.Logger) (*Repository, error) {
	binanceRepo := NewBinanceRepository(cfg, log)
	strategyCompilerRepo, err := NewGeminiStrategyRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &Repository{
		BinanceRepo:          binanceRepo,
		CandleRepo:           NewCandleRepository(binanceRepo, inmemoryCache, cfg.Cache.CandleExpiration, log),
		BacktestRunRepo:      NewBacktestRunRepository(db),
		StrategyCompilerRepo: strategyCompilerRepo,
		UnitOfWork:           NewUnitOfWork(db),
	}, nil
}
