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

// pnlKeyColumns is the composite natural key for snapshots. It has to match
// the unique index on the pnl_snapshots table.
var pnlKeyColumns = []clause.Column{
	{Name: "entity_type"},
	{Name: "entity_id"},
	{Name: "exchange"},
	{Name: "period"},
	{Name: "timestamp"},
	{Name: "is_paper"},
}

// PnlEntityKey identifies one aggregation target observed in hourly snapshots.
type PnlEntityKey struct {
	EntityType string
	EntityID   string
	Exchange   string
	IsPaper    bool
}

// PnlRepository handles persistence of PnL snapshots.
type PnlRepository struct {
	db *gorm.DB
}

// NewPnlRepository creates a new repository instance using the main database.
func NewPnlRepository() *PnlRepository {
	return &PnlRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PnlRepository) WithDB(db *gorm.DB) *PnlRepository {
	return &PnlRepository{db: db}
}

// Upsert inserts the snapshot or overwrites the row with the same composite
// key. Re-running an aggregation for the same window is therefore idempotent.
func (r *PnlRepository) Upsert(ctx context.Context, snapshot *model.PnlSnapshot) error {

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   pnlKeyColumns,
			UpdateAll: true,
		}).
		Create(snapshot).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PnlRepository",
			"op":          "Upsert",
			"entity_type": snapshot.EntityType,
			"entity_id":   snapshot.EntityID,
			"period":      snapshot.Period,
		}).WithError(err).Error("Failed to upsert PnL snapshot")
	}

	return err
}

// FindHourly returns the 1h snapshots for one entity in [start, end).
func (r *PnlRepository) FindHourly(
	ctx context.Context,
	entityType, entityID, exchange string,
	isPaper bool,
	start, end time.Time,
) ([]model.PnlSnapshot, error) {

	var snapshots []model.PnlSnapshot

	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND exchange = ? AND period = ? AND is_paper = ?",
			entityType, entityID, exchange, model.PnlPeriodHour, isPaper).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Find(&snapshots).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PnlRepository",
			"op":          "FindHourly",
			"entity_type": entityType,
			"entity_id":   entityID,
		}).WithError(err).Error("Failed to fetch hourly snapshots")
		return nil, err
	}

	return snapshots, nil
}

// FindHourlyEntityKeys returns the distinct (entityType, entityId, exchange,
// isPaper) combinations present in hourly snapshots within [start, end).
func (r *PnlRepository) FindHourlyEntityKeys(ctx context.Context, start, end time.Time) ([]PnlEntityKey, error) {

	var keys []PnlEntityKey

	err := r.db.WithContext(ctx).
		Model(&model.PnlSnapshot{}).
		Select("DISTINCT entity_type, entity_id, exchange, is_paper").
		Where("period = ? AND timestamp >= ? AND timestamp < ?", model.PnlPeriodHour, start, end).
		Scan(&keys).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "PnlRepository",
			"op":    "FindHourlyEntityKeys",
			"start": start,
			"end":   end,
		}).WithError(err).Error("Failed to fetch hourly entity keys")
		return nil, err
	}

	return keys, nil
}
