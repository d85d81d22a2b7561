package model

import "time"

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Notification is an operator-facing alert raised by the engines.
type Notification struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	NotificationID  string    `gorm:"size:64;uniqueIndex;not null" json:"notification_id"`
	Type            string    `gorm:"size:40;not null" json:"type"`
	Severity        string    `gorm:"size:20;not null" json:"severity"`
	Exchange        string    `gorm:"size:40;index" json:"exchange,omitempty"`
	BotID           string    `gorm:"size:64;index" json:"bot_id,omitempty"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Message         string    `gorm:"not null" json:"message"`
	IsRead          bool      `gorm:"not null;default:false;index" json:"is_read"`
	SentViaTelegram bool      `gorm:"default:false" json:"sent_via_telegram"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
