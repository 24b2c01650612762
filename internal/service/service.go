package service

import (
	"golang-backtest/config"
	"golang-backtest/internal/repository"
	"golang-backtest/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type Service struct {
	BacktestService BacktestService
	StrategyService StrategyService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	validate *validator.Validate,
) *Service {
	return &Service{
		BacktestService: NewBacktestService(cfg, log, repo.CandleRepo, repo.BacktestRunRepo, repo.UnitOfWork),
		StrategyService: NewStrategyService(log, validate, repo.StrategyCompilerRepo),
	}
}
