package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradingrelay/src/database"
	"tradingrelay/src/model"
)

// EngineRepository handles persistence of trading-engine instance records.
type EngineRepository struct {
	db *gorm.DB
}

// NewEngineRepository creates a new repository instance using the main database.
func NewEngineRepository() *EngineRepository {
	return &EngineRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *EngineRepository) WithDB(db *gorm.DB) *EngineRepository {
	return &EngineRepository{db: db}
}

// FindByEngineID fetches a single engine record.
// Returns (nil, nil) if the engine is not found.
func (r *EngineRepository) FindByEngineID(ctx context.Context, engineID string) (*model.Engine, error) {

	var engine model.Engine

	err := r.db.WithContext(ctx).
		Where("engine_id = ?", engineID).
		First(&engine).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":      "EngineRepository",
			"op":        "FindByEngineID",
			"engine_id": engineID,
		}).WithError(err).Error("Failed to fetch engine")
		return nil, err
	}

	return &engine, nil
}

// UpsertByEngineID inserts the engine record or overwrites the existing row
// with the same engine_id.
func (r *EngineRepository) UpsertByEngineID(ctx context.Context, engine *model.Engine) error {

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "engine_id"}},
			UpdateAll: true,
		}).
		Create(engine).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "EngineRepository",
			"op":        "UpsertByEngineID",
			"engine_id": engine.EngineID,
		}).WithError(err).Error("Failed to upsert engine")
	}

	return err
}

// Save persists the full current state of an already-loaded engine record.
func (r *EngineRepository) Save(ctx context.Context, engine *model.Engine) error {

	err := r.db.WithContext(ctx).Save(engine).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "EngineRepository",
			"op":        "Save",
			"engine_id": engine.EngineID,
		}).WithError(err).Error("Failed to save engine")
	}

	return err
}

// MarkStaleOffline forces offline every engine whose status is online or
// draining and whose last heartbeat is older than cutoff. Bot counts are
// zeroed. Returns the number of rows transitioned.
func (r *EngineRepository) MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error) {

	res := r.db.WithContext(ctx).
		Model(&model.Engine{}).
		Where("status IN ? AND last_heartbeat < ?",
			[]string{model.EngineStatusOnline, model.EngineStatusDraining}, cutoff).
		Updates(map[string]interface{}{
			"status":           model.EngineStatusOffline,
			"active_bot_count": 0,
			"active_bot_ids":   "[]",
		})

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "EngineRepository",
			"op":     "MarkStaleOffline",
			"cutoff": cutoff,
		}).WithError(res.Error).Error("Failed to mark stale engines offline")
		return 0, res.Error
	}

	return res.RowsAffected, nil
}
