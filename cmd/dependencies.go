package cmd

import (
	"context"

	"golang-backtest/config"
	"golang-backtest/internal/dto"
	"golang-backtest/pkg/cache"
	"golang-backtest/pkg/logger"
	"golang-backtest/pkg/middleware"
	"golang-backtest/pkg/postgres"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type AppDependency struct {
	db        *postgres.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
}

// NewAppDependency wires everything the API server needs, database included.
func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	dep, err := newBaseDependency()
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(dep.cfg.DB, dep.log)
	if err != nil {
		dep.log.ErrorContext(ctx, "Failed to connect to database", zap.Error(err))
		return nil, err
	}
	dep.db = db

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.NewRequestLoggerMiddleware(dep.log))
	e.Use(middleware.NewRateLimiterMiddleware(dep.cfg.API))
	dep.echo = e

	return dep, nil
}

// newBaseDependency loads config, logger, validator and cache. The one shot
// CLI commands need nothing more.
func newBaseDependency() (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding, logger.WithAlertWebhook(cfg.Log.AlertWebhookURL))
	if err != nil {
		return nil, err
	}

	validator := goValidator.New()
	dto.RegisterValidations(validator)

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: validator,
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	_ = d.log.Sync()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
