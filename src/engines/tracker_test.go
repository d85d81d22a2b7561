package engines

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradingrelay/src/model"
	"tradingrelay/src/repository"
)

// helper to create a new in memory gorm DB and migrate schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in memory db: %v", err)
	}

	if err := db.AutoMigrate(&model.Engine{}); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}

	return db
}

func newTestTracker(t *testing.T, at time.Time) (*Tracker, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	tracker := NewTracker((&repository.EngineRepository{}).WithDB(db), Config{
		StaleTimeout:  30 * time.Second,
		SweepInterval: 10 * time.Second,
	})
	tracker.now = func() time.Time { return at }

	return tracker, db
}

func registerPayloadFor(engineID string) map[string]interface{} {
	return map[string]interface{}{
		"engineId":           engineID,
		"supportedExchanges": []string{"okx", "bybit"},
		"version":            "1.4.0",
		"host":               "engine-host",
		"port":               7001,
	}
}

func mustFind(t *testing.T, db *gorm.DB, engineID string) *model.Engine {
	t.Helper()

	var engine model.Engine
	require.NoError(t, db.Where("engine_id = ?", engineID).First(&engine).Error)
	return &engine
}

func TestRegisterCreatesOnlineEngine(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tracker, db := newTestTracker(t, now)
	ctx := context.Background()

	tracker.Register(ctx, registerPayloadFor("eng-1"))

	engine := mustFind(t, db, "eng-1")
	assert.Equal(t, model.EngineStatusOnline, engine.Status)
	assert.Equal(t, []string{"okx", "bybit"}, engine.SupportedExchanges)
	assert.Equal(t, "1.4.0", engine.Version)
	assert.Equal(t, 0, engine.ActiveBotCount)
	require.NotNil(t, engine.LastHeartbeat)
	assert.True(t, engine.LastHeartbeat.Equal(now))
}

func TestRegisterMissingFieldsIgnored(t *testing.T) {
	tracker, db := newTestTracker(t, time.Now().UTC())
	ctx := context.Background()

	tracker.Register(ctx, map[string]interface{}{"engineId": "eng-1"})

	var count int64
	require.NoError(t, db.Model(&model.Engine{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestHeartbeatRefreshesAndMerges(t *testing.T) {
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tracker, db := newTestTracker(t, t0)
	ctx := context.Background()

	tracker.Register(ctx, registerPayloadFor("eng-1"))

	t1 := t0.Add(10 * time.Second)
	tracker.now = func() time.Time { return t1 }

	tracker.Heartbeat(ctx, map[string]interface{}{
		"engineId":       "eng-1",
		"activeBotCount": 3,
		"activeBotIds":   []string{"bot-1", "bot-2", "bot-3"},
		"metrics": map[string]interface{}{
			"cpuPercent":    12.5,
			"memoryMb":      512.0,
			"uptimeSeconds": 10.0,
		},
	})

	engine := mustFind(t, db, "eng-1")
	assert.Equal(t, model.EngineStatusOnline, engine.Status)
	assert.Equal(t, 3, engine.ActiveBotCount)
	assert.Equal(t, []string{"bot-1", "bot-2", "bot-3"}, engine.ActiveBotIds)
	require.NotNil(t, engine.Metrics)
	assert.Equal(t, 12.5, engine.Metrics.CPUPercent)
	require.NotNil(t, engine.LastHeartbeat)
	assert.True(t, engine.LastHeartbeat.Equal(t1))
}

func TestHeartbeatWithoutOptionalsKeepsState(t *testing.T) {
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tracker, db := newTestTracker(t, t0)
	ctx := context.Background()

	tracker.Register(ctx, registerPayloadFor("eng-1"))
	tracker.Heartbeat(ctx, map[string]interface{}{
		"engineId":       "eng-1",
		"activeBotCount": 2,
		"activeBotIds":   []string{"bot-1", "bot-2"},
	})

	tracker.Heartbeat(ctx, map[string]interface{}{"engineId": "eng-1"})

	engine := mustFind(t, db, "eng-1")
	assert.Equal(t, 2, engine.ActiveBotCount)
	assert.Equal(t, []string{"bot-1", "bot-2"}, engine.ActiveBotIds)
}

func TestHeartbeatDrainingIsSticky(t *testing.T) {
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tracker, db := newTestTracker(t, t0)
	ctx := context.Background()

	tracker.Register(ctx, registerPayloadFor("eng-1"))

	engine := mustFind(t, db, "eng-1")
	engine.Status = model.EngineStatusDraining
	require.NoError(t, db.Save(engine).Error)

	t1 := t0.Add(10 * time.Second)
	tracker.now = func() time.Time { return t1 }
	tracker.Heartbeat(ctx, map[string]interface{}{"engineId": "eng-1"})

	engine = mustFind(t, db, "eng-1")
	assert.Equal(t, model.EngineStatusDraining, engine.Status)
	require.NotNil(t, engine.LastHeartbeat)
	assert.True(t, engine.LastHeartbeat.Equal(t1))
}

func TestHeartbeatBringsOfflineEngineBack(t *testing.T) {
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tracker, db := newTestTracker(t, t0)
	ctx := context.Background()

	tracker.Register(ctx, registerPayloadFor("eng-1"))

	engine := mustFind(t, db, "eng-1")
	engine.Status = model.EngineStatusOffline
	require.NoError(t, db.Save(engine).Error)

	tracker.Heartbeat(ctx, map[string]interface{}{"engineId": "eng-1"})

	engine = mustFind(t, db, "eng-1")
	assert.Equal(t, model.EngineStatusOnline, engine.Status)
}

func TestHeartbeatUnregisteredEngineIgnored(t *testing.T) {
	tracker, db := newTestTracker(t, time.Now().UTC())
	ctx := context.Background()

	tracker.Heartbeat(ctx, map[string]interface{}{"engineId": "ghost"})

	var count int64
	require.NoError(t, db.Model(&model.Engine{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestShutdownMarksOfflineAndZeroesBots(t *testing.T) {
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tracker, db := newTestTracker(t, t0)
	ctx := context.Background()

	tracker.Register(ctx, registerPayloadFor("eng-1"))
	tracker.Heartbeat(ctx, map[string]interface{}{
		"engineId":       "eng-1",
		"activeBotCount": 2,
		"activeBotIds":   []string{"bot-1", "bot-2"},
	})

	tracker.Shutdown(ctx, map[string]interface{}{"engineId": "eng-1"})

	engine := mustFind(t, db, "eng-1")
	assert.Equal(t, model.EngineStatusOffline, engine.Status)
	assert.Equal(t, 0, engine.ActiveBotCount)
	assert.Empty(t, engine.ActiveBotIds)
}

func TestCheckStaleMarksOnlyStaleEngines(t *testing.T) {
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tracker, db := newTestTracker(t, t0)
	ctx := context.Background()

	tracker.Register(ctx, registerPayloadFor("eng-stale"))
	tracker.Register(ctx, registerPayloadFor("eng-draining"))

	engine := mustFind(t, db, "eng-draining")
	engine.Status = model.EngineStatusDraining
	require.NoError(t, db.Save(engine).Error)

	// Fresh engine registers one minute later; the first two are now stale.
	t1 := t0.Add(time.Minute)
	tracker.now = func() time.Time { return t1 }
	tracker.Register(ctx, registerPayloadFor("eng-fresh"))

	count, err := tracker.CheckStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.Equal(t, model.EngineStatusOffline, mustFind(t, db, "eng-stale").Status)
	assert.Equal(t, model.EngineStatusOffline, mustFind(t, db, "eng-draining").Status)
	assert.Equal(t, model.EngineStatusOnline, mustFind(t, db, "eng-fresh").Status)

	// A second sweep finds nothing left to transition.
	count, err = tracker.CheckStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
