package model

import "time"

// Trade is a completed fill reported by an engine, keyed by TradeID.
type Trade struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TradeID     string    `gorm:"size:64;uniqueIndex;not null" json:"trade_id"`
	OrderID     string    `gorm:"size:64;index" json:"order_id"`
	BotID       string    `gorm:"size:64;index" json:"bot_id"`
	Exchange    string    `gorm:"size:40;index" json:"exchange"`
	InstID      string    `gorm:"size:80" json:"inst_id"`
	Side        string    `gorm:"size:10" json:"side"`
	Price       float64   `json:"price"`
	Size        float64   `json:"size"`
	Fee         float64   `json:"fee"`
	RealizedPnl float64   `json:"realized_pnl"`
	Currency    string    `gorm:"size:10" json:"currency"`
	IsPaper     bool      `json:"is_paper"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Trade) TableName() string {
	return "trades"
}
