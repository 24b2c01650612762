package service

import (
	"context"

	"golang-backtest/internal/backtest"
	"golang-backtest/internal/dto"
	"golang-backtest/internal/model"
	"golang-backtest/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockCandleRepository struct {
	mock.Mock
}

func (m *mockCandleRepository) GetCandles(ctx context.Context, param dto.GetCandlesParam) ([]backtest.Candle, error) {
	args := m.Called(ctx, param)
	candles, _ := args.Get(0).([]backtest.Candle)
	return candles, args.Error(1)
}

type mockBacktestRunRepository struct {
	mock.Mock
}

func (m *mockBacktestRunRepository) Create(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockBacktestRunRepository) CreateBulk(ctx context.Context, runs []*model.BacktestRun, opts ...utils.DBOption) error {
	args := m.Called(ctx, runs)
	return args.Error(0)
}

func (m *mockBacktestRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.BacktestRun, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*model.BacktestRun)
	return run, args.Error(1)
}

func (m *mockBacktestRunRepository) List(ctx context.Context, param model.ListBacktestRunParam) ([]model.BacktestRun, error) {
	args := m.Called(ctx, param)
	runs, _ := args.Get(0).([]model.BacktestRun)
	return runs, args.Error(1)
}

// mockUnitOfWork runs fn directly unless an error is configured.
type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Run(ctx context.Context, fn func(opts ...utils.DBOption) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn()
}

type mockStrategyCompilerRepository struct {
	mock.Mock
}

func (m *mockStrategyCompilerRepository) CompileStrategy(ctx context.Context, text string) (*dto.StrategyJSON, error) {
	args := m.Called(ctx, text)
	doc, _ := args.Get(0).(*dto.StrategyJSON)
	return doc, args.Error(1)
}
