package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradingrelay/src/database"
	"tradingrelay/src/model"
)

// AuditRepository handles persistence of audit log records.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new repository instance using the main database.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *AuditRepository) WithDB(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// UpsertByAuditID inserts the audit record, keyed by audit_id so that a
// redelivered job does not produce a duplicate row.
func (r *AuditRepository) UpsertByAuditID(ctx context.Context, entry *model.AuditLog) error {

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "audit_id"}},
			UpdateAll: true,
		}).
		Create(entry).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "AuditRepository",
			"op":       "UpsertByAuditID",
			"audit_id": entry.AuditID,
			"action":   entry.Action,
		}).WithError(err).Error("Failed to upsert audit log")
	}

	return err
}
