package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradingrelay/src/database"
	"tradingrelay/src/model"
)

// TradeRepository handles persistence of completed trades.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance using the main database.
func NewTradeRepository() *TradeRepository {
	return &TradeRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// UpsertByTradeID inserts the trade or overwrites the existing row with the
// same trade_id.
func (r *TradeRepository) UpsertByTradeID(ctx context.Context, trade *model.Trade) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "UpsertByTradeID",
		"trade_id": trade.TradeID,
	}).Debug("Upserting trade")

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trade_id"}},
			UpdateAll: true,
		}).
		Create(trade).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "UpsertByTradeID",
			"trade_id": trade.TradeID,
		}).WithError(err).Error("Failed to upsert trade")
	}

	return err
}

// FindInWindow returns all trades with timestamps in [start, end).
func (r *TradeRepository) FindInWindow(ctx context.Context, start, end time.Time) ([]model.Trade, error) {

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Find(&trades).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "TradeRepository",
			"op":    "FindInWindow",
			"start": start,
			"end":   end,
		}).WithError(err).Error("Failed to fetch trades in window")
		return nil, err
	}

	return trades, nil
}
