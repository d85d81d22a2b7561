package model

import "time"

// AuditLog records system and operator actions for later inspection.
// Engine lifecycle events (register/shutdown) land here via the
// engine-lifecycle queue.
type AuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	AuditID    string         `gorm:"size:64;uniqueIndex;not null" json:"audit_id"`
	Action     string         `gorm:"size:80;not null;index" json:"action"`
	EntityType string         `gorm:"size:40" json:"entity_type"`
	EntityID   string         `gorm:"size:64;index" json:"entity_id"`
	Exchange   string         `gorm:"size:40" json:"exchange,omitempty"`
	Details    map[string]any `gorm:"serializer:json" json:"details,omitempty"`
	Timestamp  time.Time      `gorm:"index" json:"timestamp"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
