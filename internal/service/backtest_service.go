package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang-backtest/config"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/dto"
	"golang-backtest/internal/model"
	"golang-backtest/internal/repository"
	"golang-backtest/pkg/logger"
	"golang-backtest/pkg/utils"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type BacktestService interface {
	// Simulate runs a backtest without storing it.
	Simulate(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResponse, error)
	RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResponse, error)
	RunBatch(ctx context.Context, req dto.BatchBacktestRequest) (*dto.BatchBacktestResponse, error)
	GetBacktest(ctx context.Context, id string) (*dto.BacktestResponse, error)
	ListBacktests(ctx context.Context, param dto.ListBacktestParam) ([]dto.BacktestSummary, error)
}

type backtestService struct {
	cfg             *config.Config
	log             *logger.Logger
	candleRepo      repository.CandleRepository
	backtestRunRepo repository.BacktestRunRepository
	uow             repository.UnitOfWork
}

func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	candleRepo repository.CandleRepository,
	backtestRunRepo repository.BacktestRunRepository,
	uow repository.UnitOfWork,
) BacktestService {
	return &backtestService{
		cfg:             cfg,
		log:             log,
		candleRepo:      candleRepo,
		backtestRunRepo: backtestRunRepo,
		uow:             uow,
	}
}

func (s *backtestService) Simulate(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResponse, error) {
	if req.StartTime >= req.EndTime {
		return nil, fmt.Errorf("%w: startTime must be before endTime", ErrInvalidRequest)
	}

	// resolve the strategy first so a bad rule never costs a fetch
	strategy, err := req.Strategy.ToStrategy()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStrategy, err)
	}

	candles, err := s.candleRepo.GetCandles(ctx, dto.GetCandlesParam{
		Symbol:    req.Symbol,
		Interval:  req.Interval,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get candles for backtest",
			logger.StringField("symbol", req.Symbol),
			logger.StringField("interval", req.Interval),
			logger.ErrorField(err))
		return nil, err
	}
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}

	result, err := backtest.Run(candles, backtest.Config{
		Strategy:       strategy,
		InitialCapital: s.initialCapital(req.InitialCapital),
		Commission:     s.commission(req.Commission),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStrategy, err)
	}

	s.log.InfoContext(ctx, "Backtest completed",
		logger.StringField("symbol", req.Symbol),
		logger.StringField("interval", req.Interval),
		logger.StringField("strategy", strategy.Name),
		logger.IntField("candles", len(candles)),
		logger.IntField("trades", result.Metrics.TotalTrades),
		logger.Float64Field("pnl_percent", result.Metrics.TotalPnLPercent))

	return &dto.BacktestResponse{
		Symbol:    req.Symbol,
		Interval:  req.Interval,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Strategy:  strategy.Name,
		Result:    *result,
	}, nil
}

// RunBacktest simulates and stores the run. A storage failure is alerted
// and the result is still returned, without an ID.
func (s *backtestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResponse, error) {
	resp, err := s.Simulate(ctx, req)
	if err != nil {
		return nil, err
	}

	run, err := toBacktestRun(req, resp)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to encode backtest run", logger.ErrorField(err))
		return resp, nil
	}

	if err := s.backtestRunRepo.Create(ctx, run); err != nil {
		s.log.ErrorContextWithAlert(ctx, "Failed to store backtest run",
			logger.StringField("symbol", req.Symbol),
			logger.ErrorField(err))
		return resp, nil
	}

	resp.ID = run.ID.String()
	return resp, nil
}

// RunBatch runs every request with bounded concurrency. Item failures are
// reported per item; the successful runs are stored in one transaction.
func (s *backtestService) RunBatch(ctx context.Context, req dto.BatchBacktestRequest) (*dto.BatchBacktestResponse, error) {
	if maxSize := s.cfg.Backtest.MaxBatchSize; maxSize > 0 && len(req.Requests) > maxSize {
		return nil, fmt.Errorf("%w: batch has %d requests, the limit is %d", ErrInvalidRequest, len(req.Requests), maxSize)
	}

	items := make([]dto.BatchBacktestItem, len(req.Requests))

	var g errgroup.Group
	g.SetLimit(max(s.cfg.Backtest.BatchConcurrency, 1))
	for i, r := range req.Requests {
		g.Go(func() error {
			items[i] = dto.BatchBacktestItem{Index: i}
			if !utils.ShouldContinue(ctx, s.log) {
				items[i].Error = ctx.Err().Error()
				return nil
			}

			resp, err := s.Simulate(ctx, r)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Success = true
			items[i].Data = resp
			return nil
		})
	}
	_ = g.Wait()

	var runs []*model.BacktestRun
	var stored []int
	for i, item := range items {
		if !item.Success {
			continue
		}
		run, err := toBacktestRun(req.Requests[i], item.Data)
		if err != nil {
			s.log.ErrorContext(ctx, "Failed to encode backtest run", logger.IntField("index", i), logger.ErrorField(err))
			continue
		}
		runs = append(runs, run)
		stored = append(stored, i)
	}

	if len(runs) > 0 {
		err := s.uow.Run(ctx, func(opts ...utils.DBOption) error {
			return s.backtestRunRepo.CreateBulk(ctx, runs, opts...)
		})
		if err != nil {
			s.log.ErrorContextWithAlert(ctx, "Failed to store batch backtest runs",
				logger.IntField("runs", len(runs)),
				logger.ErrorField(err))
		} else {
			for n, i := range stored {
				items[i].Data.ID = runs[n].ID.String()
			}
		}
	}

	return &dto.BatchBacktestResponse{Results: items}, nil
}

func (s *backtestService) GetBacktest(ctx context.Context, id string) (*dto.BacktestResponse, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid backtest id %q", ErrInvalidRequest, id)
	}

	run, err := s.backtestRunRepo.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.log.ErrorContext(ctx, "Failed to get backtest run", logger.StringField("id", id), logger.ErrorField(err))
		return nil, err
	}

	var result backtest.Result
	if err := json.Unmarshal(run.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored backtest %s: %w", id, err)
	}

	return &dto.BacktestResponse{
		ID:        run.ID.String(),
		Symbol:    run.Symbol,
		Interval:  run.Interval,
		StartTime: run.StartTime,
		EndTime:   run.EndTime,
		Strategy:  run.StrategyName,
		Result:    result,
	}, nil
}

func (s *backtestService) ListBacktests(ctx context.Context, param dto.ListBacktestParam) ([]dto.BacktestSummary, error) {
	runs, err := s.backtestRunRepo.List(ctx, model.ListBacktestRunParam{
		Symbol: param.Symbol,
		Limit:  param.Limit,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list backtest runs", logger.ErrorField(err))
		return nil, err
	}

	summaries := make([]dto.BacktestSummary, 0, len(runs))
	for _, run := range runs {
		var metrics backtest.Metrics
		if err := json.Unmarshal(run.Metrics, &metrics); err != nil {
			s.log.WarnContext(ctx, "Skipping backtest run with unreadable metrics",
				logger.StringField("id", run.ID.String()),
				logger.ErrorField(err))
			continue
		}
		summaries = append(summaries, dto.BacktestSummary{
			ID:        run.ID.String(),
			Symbol:    run.Symbol,
			Interval:  run.Interval,
			StartTime: run.StartTime,
			EndTime:   run.EndTime,
			Strategy:  run.StrategyName,
			Metrics:   metrics,
			CreatedAt: run.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *backtestService) initialCapital(v *float64) optional.Option[float64] {
	if v != nil {
		return optional.Some(*v)
	}
	if s.cfg.Backtest.InitialCapital > 0 {
		return optional.Some(s.cfg.Backtest.InitialCapital)
	}
	return optional.None[float64]()
}

func (s *backtestService) commission(v *float64) optional.Option[float64] {
	if v != nil {
		return optional.Some(*v)
	}
	if s.cfg.Backtest.Commission > 0 {
		return optional.Some(s.cfg.Backtest.Commission)
	}
	return optional.None[float64]()
}

func toBacktestRun(req dto.BacktestRequest, resp *dto.BacktestResponse) (*model.BacktestRun, error) {
	request, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	metrics, err := json.Marshal(resp.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}
	result, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &model.BacktestRun{
		ID:              uuid.New(),
		Symbol:          resp.Symbol,
		Interval:        resp.Interval,
		StartTime:       resp.StartTime,
		EndTime:         resp.EndTime,
		StrategyName:    resp.Strategy,
		Request:         request,
		Metrics:         metrics,
		Result:          result,
		TotalTrades:     resp.Metrics.TotalTrades,
		TotalPnLPercent: resp.Metrics.TotalPnLPercent,
		FinalCapital:    resp.Metrics.FinalCapital,
	}, nil
}
