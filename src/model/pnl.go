package model

import "time"

const (
	PnlEntityBot      = "bot"
	PnlEntityExchange = "exchange"
	PnlEntityTotal    = "total"

	PnlPeriodHour = "1h"
	PnlPeriodDay  = "1d"
	PnlPeriodWeek = "1w"
)

// PnlSnapshot is a period-scoped aggregate of trading results for one entity.
// Rows are uniquely identified by (entityType, entityId, exchange, period,
// timestamp, isPaper); the aggregation engine overwrites them idempotently.
type PnlSnapshot struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	EntityType     string    `gorm:"size:20;not null;uniqueIndex:idx_pnl_key" json:"entity_type"`
	EntityID       string    `gorm:"size:64;not null;uniqueIndex:idx_pnl_key" json:"entity_id"`
	Exchange       string    `gorm:"size:40;not null;uniqueIndex:idx_pnl_key" json:"exchange"`
	Period         string    `gorm:"size:10;not null;uniqueIndex:idx_pnl_key" json:"period"`
	Timestamp      time.Time `gorm:"not null;uniqueIndex:idx_pnl_key" json:"timestamp"`
	IsPaper        bool      `gorm:"not null;uniqueIndex:idx_pnl_key" json:"is_paper"`
	Currency       string    `gorm:"size:10;not null;default:USDC" json:"currency"`
	RealizedPnl    float64   `json:"realized_pnl"`
	RealizedPnlUsd float64   `json:"realized_pnl_usd"`
	UnrealizedPnl  float64   `json:"unrealized_pnl"`
	UnrealizedUsd  float64   `gorm:"column:unrealized_pnl_usd" json:"unrealized_pnl_usd"`
	TotalPnl       float64   `json:"total_pnl"`
	TotalPnlUsd    float64   `json:"total_pnl_usd"`
	TotalVolume    float64   `json:"total_volume"`
	TotalVolumeUsd float64   `json:"total_volume_usd"`
	TradeCount     int       `json:"trade_count"`
	WinCount       int       `json:"win_count"`
	LossCount      int       `json:"loss_count"`
	WinRate        float64   `json:"win_rate"`
	AvgWin         float64   `json:"avg_win"`
	AvgLoss        float64   `json:"avg_loss"`
	Fees           float64   `json:"fees"`
	FeesUsd        float64   `json:"fees_usd"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PnlSnapshot) TableName() string {
	return "pnl_snapshots"
}
