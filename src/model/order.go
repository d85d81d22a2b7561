package model

import "time"

// Order mirrors the order state published by the trading engines.
// It is a last-write-wins projection keyed by OrderID; the relay never
// creates orders on its own, it only persists what the engines report.
type Order struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OrderID         string     `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	ExchangeOrderID string     `gorm:"size:64;index" json:"exchange_order_id,omitempty"`
	Exchange        string     `gorm:"size:40;index" json:"exchange"`
	BotID           string     `gorm:"size:64;index" json:"bot_id"`
	InstID          string     `gorm:"size:80" json:"inst_id"`
	Side            string     `gorm:"size:10" json:"side"`
	OrderType       string     `gorm:"size:20" json:"order_type"`
	Price           float64    `json:"price"`
	Size            float64    `json:"size"`
	FilledSize      float64    `json:"filled_size"`
	FilledAvgPrice  float64    `json:"filled_avg_price"`
	RemainingSize   float64    `json:"remaining_size"`
	Status          string     `gorm:"size:30;not null;default:PENDING;index" json:"status"`
	Source          string     `gorm:"size:20" json:"source"`
	IsPaper         bool       `gorm:"index" json:"is_paper"`
	StrategyName    string     `gorm:"size:80" json:"strategy_name,omitempty"`
	Currency        string     `gorm:"size:10" json:"currency"`
	Fees            float64    `json:"fees"`
	Error           string     `json:"error,omitempty"`
	ExecutedAt      *time.Time `json:"executed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// One-to-many relation: one order accumulates many timeline entries.
	Timeline []OrderTimelineEntry `gorm:"foreignKey:OrderID;references:OrderID" json:"timeline,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderTimelineEntry is a single status transition reported for an order.
// Entries are append-only; redelivered status updates append again (the
// relay does not deduplicate timeline entries by content).
type OrderTimelineEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   string    `gorm:"size:64;index;not null" json:"order_id"`
	Status    string    `gorm:"size:30;not null" json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderTimelineEntry) TableName() string {
	return "order_timeline_entries"
}
