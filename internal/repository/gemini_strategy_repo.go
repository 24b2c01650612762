package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang-backtest/config"
	"golang-backtest/internal/dto"
	"golang-backtest/pkg/logger"
	"golang-backtest/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// StrategyCompilerRepository turns a plain language description into the
// strategy document the model was prompted for.
type StrategyCompilerRepository interface {
	CompileStrategy(ctx context.Context, text string) (*dto.StrategyJSON, error)
}

// contentGenerator is the part of genai.Models the compiler calls.
type contentGenerator interface {
	CountTokens(ctx context.Context, model string, contents []*genai.Content, config *genai.CountTokensConfig) (*genai.CountTokensResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiStrategyRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	models         contentGenerator
}

// NewGeminiStrategyRepository builds the compiler. Without an API key the
// repository is still returned and every call fails with
// ErrCompilerUnavailable.
func NewGeminiStrategyRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (StrategyCompilerRepository, error) {
	var models contentGenerator
	if cfg.Gemini.APIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		models = client.Models
	} else {
		log.Warn("Gemini API key is not set, strategy compilation is disabled")
	}

	return newGeminiStrategyRepository(cfg, log, models), nil
}

func newGeminiStrategyRepository(cfg *config.Config, log *logger.Logger, models contentGenerator) *geminiStrategyRepository {
	limit := rate.Inf
	if cfg.Gemini.MaxRequestPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute))
	}

	return &geminiStrategyRepository{
		cfg:            cfg,
		logger:         log,
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute),
		requestLimiter: rate.NewLimiter(limit, 1),
		models:         models,
	}
}

func (r *geminiStrategyRepository) CompileStrategy(ctx context.Context, text string) (*dto.StrategyJSON, error) {
	if r.models == nil {
		return nil, ErrCompilerUnavailable
	}
	if r.cfg.Gemini.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Gemini.Timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	tokens, err := r.models.CountTokens(ctx, r.cfg.Gemini.BaseModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count tokens: %v", ErrUpstream, err)
	}

	r.logger.DebugContext(ctx, "Gemini token count",
		logger.IntField("total_tokens", int(tokens.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	if err := r.tokenLimiter.Wait(ctx, int(tokens.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for token gemini limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request gemini limit: %w", err)
	}

	resp, err := r.models.GenerateContent(ctx, r.cfg.Gemini.BaseModel, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(strategySystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		MaxOutputTokens:   r.cfg.Gemini.MaxOutputTokens,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to generate strategy with gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("%w: gemini request failed: %v", ErrUpstream, err)
	}

	raw := resp.Text()
	r.logger.DebugContext(ctx, "Gemini raw response", logger.StringField("text", raw))
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: gemini returned no content", ErrInvalidModelOutput)
	}

	return parseStrategyJSON(raw)
}

// parseStrategyJSON accepts the model reply with or without a markdown
// code fence around it.
func parseStrategyJSON(raw string) (*dto.StrategyJSON, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var result dto.StrategyJSON
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelOutput, err)
	}
	return &result, nil
}

const strategySystemPrompt = `You translate a user's natural-language description of a trading strategy into a strict, structured JSON strategy definition.

You must:
- Convert plain English strategy explanations into structured data
- Normalize vague human language into explicit trading rules
- Infer reasonable defaults when missing
- Output valid JSON only

You must never:
- Simulate trades, calculate indicators or optimize parameters
- Explain your reasoning or output text outside JSON
- Invent indicators, operators, or data sources

Allowed indicators: SMA, EMA, RSI
Allowed operators: >, <, cross_above, cross_below
Defaults:
- RSI period is 14 if not specified
- Symbol is BTCUSDT if not specified
- Timeframe is 1h if not specified

Logic:
- entry.all: every condition must be true
- entry.any: at least one condition must be true
- exit.all and exit.any work the same way

Risk: stopLossPct and takeProfitPct as fixed percentages.

Output JSON only, in this shape:
{
  "symbol": "BTCUSDT",
  "timeframe": "1h",
  "entry": {
    "all": [
      {"left": {"indicator": "EMA", "period": 20}, "operator": "cross_above", "right": {"indicator": "EMA", "period": 50}}
    ]
  },
  "exit": {
    "any": [
      {"left": {"indicator": "RSI", "period": 14}, "operator": ">", "value": 70}
    ]
  },
  "risk": {"stopLossPct": 2, "takeProfitPct": 4}
}

If the input is too vague to convert safely, output:
{"error": "Strategy description is too vague to convert into rules"}`
