package service

import (
	"context"
	"fmt"
	"testing"

	"golang-backtest/internal/dto"
	"golang-backtest/internal/repository"
	"golang-backtest/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStrategyService(repo repository.StrategyCompilerRepository) StrategyService {
	v := validator.New()
	dto.RegisterValidations(v)
	return NewStrategyService(logger.NewNop(), v, repo)
}

func rsiDocument(period int) *dto.StrategyJSON {
	value := 30.0
	return &dto.StrategyJSON{
		Entry: dto.StrategyJSONRules{All: []dto.StrategyJSONCondition{{
			Left:     dto.StrategyJSONOperand{Indicator: "RSI", Period: period},
			Operator: dto.OperatorLess,
			Value:    &value,
		}}},
		Risk: dto.StrategyJSONRisk{StopLossPct: 2, TakeProfitPct: 4},
	}
}

func TestStrategyService_CompileStrategy(t *testing.T) {
	repo := new(mockStrategyCompilerRepository)
	repo.On("CompileStrategy", mock.Anything, "buy oversold rsi").Return(rsiDocument(14), nil)

	resp, err := newStrategyService(repo).CompileStrategy(context.Background(), dto.CompileStrategyRequest{Text: "  buy oversold rsi\n"})
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", resp.Symbol)
	assert.Equal(t, "1h", resp.Timeframe)
	assert.Equal(t, "LLM Strategy", resp.Strategy.Name)
	require.Len(t, resp.Strategy.Entry.All, 1)
	assert.Equal(t, "RSI", resp.Strategy.Entry.All[0].Type)
	assert.Equal(t, 2.0, resp.Strategy.Risk.StopLoss)
	repo.AssertExpectations(t)
}

func TestStrategyService_CompileStrategyErrors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		doc     *dto.StrategyJSON
		repoErr error
		wantErr error
		wantMsg string
	}{
		{name: "blank text", text: "   ", wantErr: ErrInvalidRequest},
		{
			name:    "model refused",
			text:    "make money",
			doc:     &dto.StrategyJSON{Error: "Strategy description is too vague to convert into rules"},
			wantErr: ErrCompileRejected,
			wantMsg: "too vague",
		},
		{
			name:    "unreadable reply",
			text:    "ema cross",
			repoErr: fmt.Errorf("%w: unexpected end of JSON input", repository.ErrInvalidModelOutput),
			wantErr: ErrCompileRejected,
		},
		{name: "invalid document", text: "rsi", doc: rsiDocument(0), wantErr: ErrCompileRejected},
		{name: "upstream failure", text: "rsi", repoErr: repository.ErrUpstream, wantErr: repository.ErrUpstream},
		{name: "compiler disabled", text: "rsi", repoErr: repository.ErrCompilerUnavailable, wantErr: repository.ErrCompilerUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockStrategyCompilerRepository)
			repo.On("CompileStrategy", mock.Anything, tt.text).Return(tt.doc, tt.repoErr)

			_, err := newStrategyService(repo).CompileStrategy(context.Background(), dto.CompileStrategyRequest{Text: tt.text})
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			if tt.name == "blank text" {
				repo.AssertNotCalled(t, "CompileStrategy", mock.Anything, mock.Anything)
			}
		})
	}
}
