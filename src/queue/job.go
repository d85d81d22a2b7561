package queue

import "time"

// Queue names, one durable queue per event category.
const (
	QueueOrderPersistence = "order-persistence"
	QueueTradePersistence = "trade-persistence"
	QueueNotification     = "notification"
	QueueAuditLog         = "audit-log"
	QueueEngineLifecycle  = "engine-lifecycle"
)

// Job types carried on the queues.
const (
	JobOrderUpdate     = "order-update"
	JobTradeNew        = "trade-new"
	JobRiskAlert       = "risk-alert"
	JobAudit           = "audit"
	JobEngineLifecycle = "engine-lifecycle"
)

// Job is the envelope stored on a queue. It is owned by the queue until a
// worker claims it; workers mutate only the attempt counter.
type Job struct {
	JobID       string                 `json:"jobId"`
	Queue       string                 `json:"queue"`
	Type        string                 `json:"type"`
	Payload     map[string]interface{} `json:"payload"`
	Attempts    int                    `json:"attempts"`
	MaxAttempts int                    `json:"maxAttempts"`
	EnqueuedAt  time.Time              `json:"enqueuedAt"`
}

// DlqEntry is the terminal record of a job that exhausted its retries.
// Entries are written once and never mutated; they exist for manual
// operator inspection.
type DlqEntry struct {
	DlqID         string                 `json:"dlqId"`
	OriginalQueue string                 `json:"originalQueue"`
	JobID         string                 `json:"jobId"`
	JobType       string                 `json:"jobType"`
	Payload       map[string]interface{} `json:"payload"`
	ErrorMessage  string                 `json:"errorMessage"`
	FailedAt      time.Time              `json:"failedAt"`
	Attempts      int                    `json:"attempts"`
}
