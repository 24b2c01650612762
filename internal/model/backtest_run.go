package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BacktestRun is one stored simulation. Request and Result hold the wire
// JSON; the summary columns are copied out of Result for listing.
type BacktestRun struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Symbol          string         `gorm:"not null;index"`
	Interval        string         `gorm:"not null"`
	StartTime       int64          `gorm:"not null"`
	EndTime         int64          `gorm:"not null"`
	StrategyName    string         `gorm:"not null"`
	Request         datatypes.JSON `gorm:"type:jsonb;not null"`
	Metrics         datatypes.JSON `gorm:"type:jsonb;not null"`
	Result          datatypes.JSON `gorm:"type:jsonb"`
	TotalTrades     int            `gorm:"not null;default:0"`
	TotalPnLPercent float64        `gorm:"column:total_pnl_percent;not null;default:0"`
	FinalCapital    float64        `gorm:"not null;default:0"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

func (BacktestRun) TableName() string {
	return "backtest_runs"
}

func (r *BacktestRun) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type ListBacktestRunParam struct {
	Symbol string
	Limit  int
}
