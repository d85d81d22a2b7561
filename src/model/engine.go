package model

import "time"

const (
	EngineStatusOnline   = "online"
	EngineStatusDraining = "draining"
	EngineStatusOffline  = "offline"
)

// EngineMetrics is the optional health block an engine reports on heartbeat.
type EngineMetrics struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryMb      float64 `json:"memoryMb"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Engine represents a registered trading-engine instance and its liveness state.
type Engine struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	EngineID           string         `gorm:"size:64;uniqueIndex;not null" json:"engine_id"`
	SupportedExchanges []string       `gorm:"serializer:json" json:"supported_exchanges"`
	Status             string         `gorm:"size:20;not null;default:offline;index" json:"status"`
	Version            string         `gorm:"size:40" json:"version"`
	Host               string         `gorm:"size:255" json:"host,omitempty"`
	Port               int            `json:"port,omitempty"`
	ActiveBotCount     int            `json:"active_bot_count"`
	ActiveBotIds       []string       `gorm:"serializer:json" json:"active_bot_ids"`
	StartedAt          time.Time      `json:"started_at"`
	LastHeartbeat      *time.Time     `json:"last_heartbeat,omitempty"`
	Metrics            *EngineMetrics `gorm:"serializer:json" json:"metrics,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (Engine) TableName() string {
	return "engines"
}
