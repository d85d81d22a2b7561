package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradingrelay/src/database"
	"tradingrelay/src/model"
)

// OrderRepository handles persistence of engine-reported orders and their
// status timelines.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main database.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// UpsertByOrderID inserts the order or overwrites the existing row with the
// same order_id. Re-applying the same update yields the same final state.
func (r *OrderRepository) UpsertByOrderID(ctx context.Context, order *model.Order) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "UpsertByOrderID",
		"order_id": order.OrderID,
		"status":   order.Status,
	}).Debug("Upserting order")

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			UpdateAll: true,
		}).
		Omit("Timeline").
		Create(order).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "UpsertByOrderID",
			"order_id": order.OrderID,
		}).WithError(err).Error("Failed to upsert order")
	}

	return err
}

// AppendTimeline inserts one timeline entry for the order. Entries are
// append-only and are not deduplicated by content.
func (r *OrderRepository) AppendTimeline(ctx context.Context, entry *model.OrderTimelineEntry) error {

	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "AppendTimeline",
			"order_id": entry.OrderID,
			"status":   entry.Status,
		}).WithError(err).Error("Failed to append timeline entry")
	}

	return err
}

// FindByOrderID fetches a single order with its timeline.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {

	var order model.Order

	err := r.db.WithContext(ctx).
		Preload("Timeline").
		Where("order_id = ?", orderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "FindByOrderID",
			"order_id": orderID,
		}).WithError(err).Error("Failed to fetch order")
		return nil, err
	}

	return &order, nil
}
