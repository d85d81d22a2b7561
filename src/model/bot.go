package model

import "time"

const (
	BotModeLive  = "live"
	BotModePaper = "paper"
)

// Bot is the minimal projection of a trading bot the relay needs: the
// aggregation engine resolves a bot's exchange and paper mode from it when
// building per-bot snapshots. Full bot management lives in the CMS layer.
type Bot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BotID     string    `gorm:"size:64;uniqueIndex;not null" json:"bot_id"`
	Name      string    `gorm:"size:120" json:"name"`
	Exchange  string    `gorm:"size:40;index" json:"exchange"`
	Mode      string    `gorm:"size:10;not null;default:live" json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Bot) TableName() string {
	return "bots"
}
