package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradingrelay/src/database"
	"tradingrelay/src/model"
)

// NotificationRepository handles persistence of operator notifications.
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new repository instance using the main database.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *NotificationRepository) WithDB(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// UpsertByNotificationID inserts the notification or overwrites the existing
// row with the same notification_id.
func (r *NotificationRepository) UpsertByNotificationID(ctx context.Context, n *model.Notification) error {

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "notification_id"}},
			UpdateAll: true,
		}).
		Create(n).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":            "NotificationRepository",
			"op":              "UpsertByNotificationID",
			"notification_id": n.NotificationID,
		}).WithError(err).Error("Failed to upsert notification")
	}

	return err
}

// MarkTelegramSent flags a notification as delivered via Telegram.
func (r *NotificationRepository) MarkTelegramSent(ctx context.Context, notificationID string) error {

	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ?", notificationID).
		Update("sent_via_telegram", true).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":            "NotificationRepository",
			"op":              "MarkTelegramSent",
			"notification_id": notificationID,
		}).WithError(err).Error("Failed to mark notification as sent")
	}

	return err
}
