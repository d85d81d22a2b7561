package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradingrelay/src/database"
	"tradingrelay/src/model"
)

// PositionRepository handles the last-write-wins position projection.
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new repository instance using the main database.
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// UpsertByPositionID inserts the position or overwrites the existing row with
// the same position_id.
func (r *PositionRepository) UpsertByPositionID(ctx context.Context, position *model.Position) error {

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "position_id"}},
			UpdateAll: true,
		}).
		Create(position).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "UpsertByPositionID",
			"position_id": position.PositionID,
		}).WithError(err).Error("Failed to upsert position")
	}

	return err
}
