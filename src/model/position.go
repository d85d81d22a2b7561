package model

import "time"

// Position is a pure last-write-wins projection of engine position updates,
// keyed by PositionID. It bypasses the job queues entirely.
type Position struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PositionID    string    `gorm:"size:64;uniqueIndex;not null" json:"position_id"`
	BotID         string    `gorm:"size:64;index" json:"bot_id"`
	Exchange      string    `gorm:"size:40;index" json:"exchange"`
	InstID        string    `gorm:"size:80" json:"inst_id"`
	Side          string    `gorm:"size:10" json:"side"`
	Size          float64   `json:"size"`
	AvgEntryPrice float64   `json:"avg_entry_price"`
	MarkPrice     float64   `json:"mark_price"`
	UnrealizedPnl float64   `json:"unrealized_pnl"`
	Currency      string    `gorm:"size:10" json:"currency"`
	IsPaper       bool      `json:"is_paper"`
	UpdatedAtSrc  time.Time `json:"updated_at_src"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}
