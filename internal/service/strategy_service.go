package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang-backtest/internal/dto"
	"golang-backtest/internal/repository"
	"golang-backtest/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type StrategyService interface {
	CompileStrategy(ctx context.Context, req dto.CompileStrategyRequest) (*dto.CompileStrategyResponse, error)
}

type strategyService struct {
	log          *logger.Logger
	validate     *validator.Validate
	compilerRepo repository.StrategyCompilerRepository
}

func NewStrategyService(log *logger.Logger, validate *validator.Validate, compilerRepo repository.StrategyCompilerRepository) StrategyService {
	return &strategyService{
		log:          log,
		validate:     validate,
		compilerRepo: compilerRepo,
	}
}

func (s *strategyService) CompileStrategy(ctx context.Context, req dto.CompileStrategyRequest) (*dto.CompileStrategyResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: missing strategy text", ErrInvalidRequest)
	}

	doc, err := s.compilerRepo.CompileStrategy(ctx, text)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidModelOutput) {
			return nil, fmt.Errorf("%w: %w", ErrCompileRejected, err)
		}
		return nil, err
	}

	if doc.Error != "" {
		s.log.WarnContext(ctx, "Model rejected strategy description", logger.StringField("reason", doc.Error))
		return nil, fmt.Errorf("%w: %s", ErrCompileRejected, doc.Error)
	}

	doc.ApplyDefaults()
	if err := s.validate.Struct(doc); err != nil {
		s.log.WarnContext(ctx, "Compiled strategy failed validation", logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %v", ErrCompileRejected, err)
	}

	strategy := doc.ToStrategyRequest()
	if _, err := strategy.ToStrategy(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileRejected, err)
	}

	return &dto.CompileStrategyResponse{
		Strategy:  strategy,
		Symbol:    doc.Symbol,
		Timeframe: doc.Timeframe,
	}, nil
}
