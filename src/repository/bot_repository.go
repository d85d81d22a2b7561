package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingrelay/src/database"
	"tradingrelay/src/model"
)

// BotRepository exposes the read-side bot lookups the aggregation engine needs.
type BotRepository struct {
	db *gorm.DB
}

// NewBotRepository creates a new repository instance using the main database.
func NewBotRepository() *BotRepository {
	return &BotRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *BotRepository) WithDB(db *gorm.DB) *BotRepository {
	return &BotRepository{db: db}
}

// FindByBotIDs returns all bots matching the given bot_ids in one query.
func (r *BotRepository) FindByBotIDs(ctx context.Context, botIDs []string) ([]model.Bot, error) {

	if len(botIDs) == 0 {
		return nil, nil
	}

	var bots []model.Bot

	err := r.db.WithContext(ctx).
		Where("bot_id IN ?", botIDs).
		Find(&bots).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "BotRepository",
			"op":    "FindByBotIDs",
			"count": len(botIDs),
		}).WithError(err).Error("Failed to fetch bots")
		return nil, err
	}

	return bots, nil
}
