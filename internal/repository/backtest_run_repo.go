package repository

import (
	"context"

	"golang-backtest/internal/model"
	"golang-backtest/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultListLimit = 20

type BacktestRunRepository interface {
	Create(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error
	CreateBulk(ctx context.Context, runs []*model.BacktestRun, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.BacktestRun, error)
	List(ctx context.Context, param model.ListBacktestRunParam) ([]model.BacktestRun, error)
}

type backtestRunRepository struct {
	db *gorm.DB
}

func NewBacktestRunRepository(db *gorm.DB) BacktestRunRepository {
	return &backtestRunRepository{db: db}
}

func (r *backtestRunRepository) Create(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(run).Error
}

func (r *backtestRunRepository) CreateBulk(ctx context.Context, runs []*model.BacktestRun, opts ...utils.DBOption) error {
	if len(runs) == 0 {
		return nil
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).CreateInBatches(runs, 50).Error
}

func (r *backtestRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.BacktestRun, error) {
	var run model.BacktestRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the newest runs first without their stored result.
func (r *backtestRunRepository) List(ctx context.Context, param model.ListBacktestRunParam) ([]model.BacktestRun, error) {
	limit := param.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	opts := []utils.DBOption{
		utils.WithOmit("result", "request"),
		utils.WithOrder("created_at DESC"),
		utils.WithLimit(limit),
	}
	if param.Symbol != "" {
		opts = append(opts, utils.WithWhere("symbol = ?", param.Symbol))
	}

	var runs []model.BacktestRun
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
