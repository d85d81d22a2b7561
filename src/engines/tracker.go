package engines

import (
	"context"
	"encoding/json"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingrelay/src/model"
	"tradingrelay/src/repository"
)

// Tracker maintains the liveness state machine for trading-engine instances:
// register / heartbeat / shutdown events plus a periodic stale sweep. All
// handlers treat a missing required field as a logged no-op; nothing here
// ever propagates an error to the router.
type Tracker struct {
	repo          *repository.EngineRepository
	staleTimeout  time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

func NewTracker(repo *repository.EngineRepository, cfg Config) *Tracker {
	return &Tracker{
		repo:          repo,
		staleTimeout:  cfg.StaleTimeout,
		sweepInterval: cfg.SweepInterval,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type registerPayload struct {
	EngineID           string   `json:"engineId"`
	SupportedExchanges []string `json:"supportedExchanges"`
	Version            string   `json:"version"`
	Host               string   `json:"host"`
	Port               int      `json:"port"`
}

type heartbeatPayload struct {
	EngineID       string               `json:"engineId"`
	ActiveBotCount *int                 `json:"activeBotCount"`
	ActiveBotIds   *[]string            `json:"activeBotIds"`
	Metrics        *model.EngineMetrics `json:"metrics"`
}

type shutdownPayload struct {
	EngineID string `json:"engineId"`
}

func decode(payload map[string]interface{}, v interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Register upserts the engine record as online with a fresh session.
func (t *Tracker) Register(ctx context.Context, payload map[string]interface{}) {
	var data registerPayload
	if err := decode(payload, &data); err != nil {
		logger.WithError(err).Warn("[engines] Dropping undecodable register payload")
		return
	}
	if data.EngineID == "" || len(data.SupportedExchanges) == 0 || data.Version == "" {
		logger.WithField("engine_id", data.EngineID).Warn("[engines] Dropping register with missing required fields")
		return
	}

	now := t.now()
	engine := &model.Engine{
		EngineID:           data.EngineID,
		SupportedExchanges: data.SupportedExchanges,
		Status:             model.EngineStatusOnline,
		Version:            data.Version,
		Host:               data.Host,
		Port:               data.Port,
		ActiveBotCount:     0,
		ActiveBotIds:       []string{},
		StartedAt:          now,
		LastHeartbeat:      &now,
	}

	if err := t.repo.UpsertByEngineID(ctx, engine); err != nil {
		logger.WithError(err).WithField("engine_id", data.EngineID).Error("[engines] Failed to register engine")
		return
	}

	logger.WithFields(map[string]interface{}{
		"engine_id": data.EngineID,
		"version":   data.Version,
		"exchanges": data.SupportedExchanges,
	}).Info("[engines] Engine registered")
}

// Heartbeat refreshes liveness and optionally merges bot counts and metrics.
// A draining engine keeps draining; any other status snaps back to online.
// This is the only path that brings an engine back from a stale timeout
// without a fresh register.
func (t *Tracker) Heartbeat(ctx context.Context, payload map[string]interface{}) {
	var data heartbeatPayload
	if err := decode(payload, &data); err != nil {
		logger.WithError(err).Warn("[engines] Dropping undecodable heartbeat payload")
		return
	}
	if data.EngineID == "" {
		logger.Warn("[engines] Dropping heartbeat without engineId")
		return
	}

	engine, err := t.repo.FindByEngineID(ctx, data.EngineID)
	if err != nil {
		return
	}
	if engine == nil {
		logger.WithField("engine_id", data.EngineID).Warn("[engines] Heartbeat for unregistered engine, ignoring")
		return
	}

	now := t.now()
	engine.LastHeartbeat = &now

	if data.ActiveBotCount != nil {
		engine.ActiveBotCount = *data.ActiveBotCount
	}
	if data.ActiveBotIds != nil {
		engine.ActiveBotIds = *data.ActiveBotIds
	}
	if data.Metrics != nil {
		engine.Metrics = data.Metrics
	}

	// Draining is sticky: a heartbeat must never flip a draining engine
	// back to online. Only shutdown or the stale sweep exit that state.
	if engine.Status != model.EngineStatusDraining {
		engine.Status = model.EngineStatusOnline
	}

	if err := t.repo.Save(ctx, engine); err != nil {
		logger.WithError(err).WithField("engine_id", data.EngineID).Error("[engines] Failed to apply heartbeat")
	}
}

// Shutdown marks the engine offline and zeroes its bot assignment.
func (t *Tracker) Shutdown(ctx context.Context, payload map[string]interface{}) {
	var data shutdownPayload
	if err := decode(payload, &data); err != nil {
		logger.WithError(err).Warn("[engines] Dropping undecodable shutdown payload")
		return
	}
	if data.EngineID == "" {
		logger.Warn("[engines] Dropping shutdown without engineId")
		return
	}

	engine, err := t.repo.FindByEngineID(ctx, data.EngineID)
	if err != nil {
		return
	}
	if engine == nil {
		logger.WithField("engine_id", data.EngineID).Warn("[engines] Shutdown for unregistered engine, ignoring")
		return
	}

	now := t.now()
	engine.Status = model.EngineStatusOffline
	engine.ActiveBotCount = 0
	engine.ActiveBotIds = []string{}
	engine.LastHeartbeat = &now

	if err := t.repo.Save(ctx, engine); err != nil {
		logger.WithError(err).WithField("engine_id", data.EngineID).Error("[engines] Failed to apply shutdown")
		return
	}

	logger.WithField("engine_id", data.EngineID).Info("[engines] Engine shut down")
}

// CheckStale forces offline every online/draining engine whose last heartbeat
// is older than the stale timeout. Returns the number of engines transitioned.
func (t *Tracker) CheckStale(ctx context.Context) (int64, error) {
	cutoff := t.now().Add(-t.staleTimeout)

	count, err := t.repo.MarkStaleOffline(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		logger.WithField("count", count).Warn("[engines] Marked stale engines offline")
	}

	return count, nil
}

// StartSweep runs the periodic stale sweep until ctx is cancelled.
func (t *Tracker) StartSweep(ctx context.Context) {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.CheckStale(ctx); err != nil {
				logger.WithError(err).Warn("[engines] Stale sweep failed")
			}
		}
	}
}
