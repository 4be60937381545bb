package model

import (
	"time"

	"gorm.io/datatypes"
)

// Run sources.
const (
	RunSourceAPI      = "api"
	RunSourceBatch    = "batch"
	RunSourceCLI      = "cli"
	RunSourceTelegram = "telegram"
	RunSourceSchedule = "schedule"
)

// BacktestRun is a saved backtest. The headline metrics are copied out of
// Stats so runs can be listed and filtered without decoding JSON.
type BacktestRun struct {
	ID             uint           `gorm:"primaryKey"`
	Symbol         string         `gorm:"type:varchar(32);not null;index"`
	Exchange       string         `gorm:"type:varchar(20);not null"`
	Timeframe      string         `gorm:"type:varchar(10);not null"`
	StartDate      string         `gorm:"type:varchar(10);not null"`
	EndDate        string         `gorm:"type:varchar(10);not null"`
	Strategy       string         `gorm:"type:varchar(50);not null"`
	Params         datatypes.JSON `gorm:"type:jsonb;not null"`
	Cash           float64        `gorm:"not null"`
	Commission     float64        `gorm:"not null"`
	ReturnPct      float64        `gorm:"not null"`
	MaxDrawdownPct float64        `gorm:"not null"`
	SharpeRatio    *float64
	TradeCount     int            `gorm:"not null"`
	Stats          datatypes.JSON `gorm:"type:jsonb;not null"`
	Trades         datatypes.JSON `gorm:"type:jsonb"`
	Equity         datatypes.JSON `gorm:"type:jsonb"`
	Source         string         `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
}

func (BacktestRun) TableName() string {
	return "backtest_runs"
}

type GetBacktestRunParam struct {
	Symbol string
	Limit  int
	Offset int
}
