package pnl

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

	if err := db.AutoMigrate(&model.Trade{}, &model.Bot{}, &model.PnlSnapshot{}); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}

	return db
}

func newTestService(t *testing.T, at time.Time) (*Service, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	service := NewService(
		(&repository.TradeRepository{}).WithDB(db),
		(&repository.BotRepository{}).WithDB(db),
		(&repository.PnlRepository{}).WithDB(db),
	)
	service.now = func() time.Time { return at }

	return service, db
}

func TestCalculateTradeMetrics(t *testing.T) {
	trades := []model.Trade{
		{TradeID: "t1", RealizedPnl: 10, Currency: "USDC", Size: 1, Price: 100, Fee: 0.1},
		{TradeID: "t2", RealizedPnl: -4, Currency: "USDC", Size: 2, Price: 50, Fee: 0.2},
	}

	m := calculateTradeMetrics(trades)

	assert.Equal(t, 2, m.TradeCount)
	assert.Equal(t, 1, m.WinCount)
	assert.Equal(t, 1, m.LossCount)
	assert.Equal(t, 0.5, m.WinRate)
	assert.Equal(t, 6.0, m.RealizedPnl)
	assert.Equal(t, 6.0, m.RealizedPnlUsd)
	assert.Equal(t, 10.0, m.AvgWin)
	assert.Equal(t, 4.0, m.AvgLoss)
	assert.Equal(t, 200.0, m.TotalVolume)
	assert.InDelta(t, 0.3, m.Fees, 1e-9)
}

func TestCalculateTradeMetricsEmpty(t *testing.T) {
	m := calculateTradeMetrics(nil)

	assert.Equal(t, 0, m.TradeCount)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.RealizedPnl)
}

func TestCalculateTradeMetricsBreakevenNotCounted(t *testing.T) {
	m := calculateTradeMetrics([]model.Trade{
		{TradeID: "t1", RealizedPnl: 0, Currency: "USDC"},
		{TradeID: "t2", RealizedPnl: 5, Currency: "USDC"},
	})

	assert.Equal(t, 2, m.TradeCount)
	assert.Equal(t, 1, m.WinCount)
	assert.Equal(t, 0, m.LossCount)
	assert.Equal(t, 0.5, m.WinRate)
}

func TestCreateHourlySnapshots(t *testing.T) {
	now := time.Date(2026, 8, 31, 14, 55, 0, 0, time.UTC)
	hourStart := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	service, db := newTestService(t, now)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.Bot{BotID: "bot-1", Exchange: "okx", Mode: model.BotModeLive}).Error)

	trades := []model.Trade{
		{TradeID: "t1", BotID: "bot-1", Exchange: "okx", RealizedPnl: 10, Currency: "USDC", Size: 1, Price: 100, Timestamp: hourStart.Add(5 * time.Minute)},
		{TradeID: "t2", BotID: "bot-1", Exchange: "okx", RealizedPnl: -4, Currency: "USDC", Size: 2, Price: 50, Timestamp: hourStart.Add(20 * time.Minute)},
		// Outside the hour window, must be ignored.
		{TradeID: "t3", BotID: "bot-1", Exchange: "okx", RealizedPnl: 100, Currency: "USDC", Timestamp: hourStart.Add(-time.Minute)},
	}
	for i := range trades {
		require.NoError(t, db.Create(&trades[i]).Error)
	}

	count, err := service.CreateHourlySnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var botSnap model.PnlSnapshot
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", model.PnlEntityBot, "bot-1").First(&botSnap).Error)
	assert.Equal(t, model.PnlPeriodHour, botSnap.Period)
	assert.Equal(t, "okx", botSnap.Exchange)
	assert.Equal(t, 6.0, botSnap.RealizedPnl)
	assert.Equal(t, 6.0, botSnap.TotalPnl)
	assert.Equal(t, 0.0, botSnap.UnrealizedPnl)
	assert.Equal(t, 2, botSnap.TradeCount)
	assert.Equal(t, 0.5, botSnap.WinRate)
	assert.False(t, botSnap.IsPaper)
	assert.True(t, botSnap.Timestamp.Equal(hourStart))

	var globalSnap model.PnlSnapshot
	require.NoError(t, db.Where("entity_type = ?", model.PnlEntityTotal).First(&globalSnap).Error)
	assert.Equal(t, "global", globalSnap.EntityID)
	assert.Equal(t, "all", globalSnap.Exchange)
	assert.Equal(t, 2, globalSnap.TradeCount)
}

func TestCreateHourlySnapshotsSkipsUnknownBots(t *testing.T) {
	now := time.Date(2026, 8, 31, 14, 55, 0, 0, time.UTC)
	service, db := newTestService(t, now)
	ctx := context.Background()

	trade := model.Trade{
		TradeID: "t1", BotID: "ghost-bot", Exchange: "okx",
		RealizedPnl: 10, Currency: "USDC",
		Timestamp: now.Truncate(time.Hour).Add(time.Minute),
	}
	require.NoError(t, db.Create(&trade).Error)

	count, err := service.CreateHourlySnapshots(ctx)
	require.NoError(t, err)

	// Exchange and global snapshots only.
	assert.Equal(t, 2, count)

	var botSnapCount int64
	require.NoError(t, db.Model(&model.PnlSnapshot{}).
		Where("entity_type = ?", model.PnlEntityBot).
		Count(&botSnapCount).Error)
	assert.Equal(t, int64(0), botSnapCount)
}

func TestCreateHourlySnapshotsRerunIsIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 31, 14, 55, 0, 0, time.UTC)
	service, db := newTestService(t, now)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.Bot{BotID: "bot-1", Exchange: "okx", Mode: model.BotModeLive}).Error)
	trade := model.Trade{
		TradeID: "t1", BotID: "bot-1", Exchange: "okx",
		RealizedPnl: 10, Currency: "USDC",
		Timestamp: now.Truncate(time.Hour).Add(time.Minute),
	}
	require.NoError(t, db.Create(&trade).Error)

	_, err := service.CreateHourlySnapshots(ctx)
	require.NoError(t, err)
	_, err = service.CreateHourlySnapshots(ctx)
	require.NoError(t, err)

	var total int64
	require.NoError(t, db.Model(&model.PnlSnapshot{}).Count(&total).Error)
	assert.Equal(t, int64(3), total)
}

func seedHourly(t *testing.T, db *gorm.DB, ts time.Time, pnl float64, tradeCount, winCount, lossCount int) {
	t.Helper()

	require.NoError(t, db.Create(&model.PnlSnapshot{
		EntityType:     model.PnlEntityBot,
		EntityID:       "bot-1",
		Exchange:       "okx",
		Period:         model.PnlPeriodHour,
		Timestamp:      ts,
		Currency:       "USDC",
		RealizedPnl:    pnl,
		RealizedPnlUsd: pnl,
		TotalPnl:       pnl,
		TotalPnlUsd:    pnl,
		TradeCount:     tradeCount,
		WinCount:       winCount,
		LossCount:      lossCount,
	}).Error)
}

func TestAggregateSnapshotsSumsAndRecomputesWinRate(t *testing.T) {
	dayStart := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	service, db := newTestService(t, dayEnd)
	ctx := context.Background()

	seedHourly(t, db, dayStart.Add(1*time.Hour), 12, 3, 2, 1)
	seedHourly(t, db, dayStart.Add(7*time.Hour), -2, 5, 3, 2)

	err := service.AggregateSnapshots(ctx,
		model.PnlEntityBot, "bot-1", "okx", model.PnlPeriodDay,
		dayStart, dayEnd, false,
	)
	require.NoError(t, err)

	var daily model.PnlSnapshot
	require.NoError(t, db.Where("period = ?", model.PnlPeriodDay).First(&daily).Error)

	assert.Equal(t, 10.0, daily.RealizedPnl)
	assert.Equal(t, 10.0, daily.TotalPnl)
	assert.Equal(t, 8, daily.TradeCount)
	assert.Equal(t, 5, daily.WinCount)
	assert.Equal(t, 3, daily.LossCount)
	assert.Equal(t, 0.625, daily.WinRate)
	assert.True(t, daily.Timestamp.Equal(dayStart))

	// Re-running overwrites the same row instead of duplicating it.
	require.NoError(t, service.AggregateSnapshots(ctx,
		model.PnlEntityBot, "bot-1", "okx", model.PnlPeriodDay,
		dayStart, dayEnd, false,
	))

	var dailyCount int64
	require.NoError(t, db.Model(&model.PnlSnapshot{}).
		Where("period = ?", model.PnlPeriodDay).
		Count(&dailyCount).Error)
	assert.Equal(t, int64(1), dailyCount)
}

func TestAggregateSnapshotsEmptyWindowWritesNothing(t *testing.T) {
	dayStart := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	service, db := newTestService(t, dayStart)
	ctx := context.Background()

	require.NoError(t, service.AggregateSnapshots(ctx,
		model.PnlEntityBot, "bot-1", "okx", model.PnlPeriodDay,
		dayStart, dayStart.Add(24*time.Hour), false,
	))

	var count int64
	require.NoError(t, db.Model(&model.PnlSnapshot{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRunDailyAggregation(t *testing.T) {
	// 2026-08-31 is a Monday, so the weekly rollup fires too.
	now := time.Date(2026, 8, 31, 0, 5, 0, 0, time.UTC)
	prevDayStart := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	weekStart := prevDayStart.Add(-6 * 24 * time.Hour)
	service, db := newTestService(t, now)
	ctx := context.Background()

	seedHourly(t, db, prevDayStart.Add(2*time.Hour), 5, 2, 1, 1)
	seedHourly(t, db, weekStart.Add(3*time.Hour), 7, 1, 1, 0)

	require.NoError(t, service.RunDailyAggregation(ctx))

	var daily model.PnlSnapshot
	require.NoError(t, db.Where("period = ?", model.PnlPeriodDay).First(&daily).Error)
	assert.Equal(t, 5.0, daily.RealizedPnl)
	assert.Equal(t, 2, daily.TradeCount)
	assert.True(t, daily.Timestamp.Equal(prevDayStart))

	var weekly model.PnlSnapshot
	require.NoError(t, db.Where("period = ?", model.PnlPeriodWeek).First(&weekly).Error)
	assert.Equal(t, 12.0, weekly.RealizedPnl)
	assert.Equal(t, 3, weekly.TradeCount)
	assert.True(t, weekly.Timestamp.Equal(weekStart))
}

func TestNextRun(t *testing.T) {
	base := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)

	// Offset still ahead within the current period.
	next := nextRun(base, time.Hour, 55*time.Minute)
	assert.Equal(t, time.Date(2026, 8, 31, 14, 55, 0, 0, time.UTC), next)

	// Offset already passed, rolls to the next period.
	next = nextRun(base, time.Hour, 5*time.Minute)
	assert.Equal(t, time.Date(2026, 8, 31, 15, 5, 0, 0, time.UTC), next)

	// Exactly at the boundary still moves strictly forward.
	at := time.Date(2026, 8, 31, 14, 55, 0, 0, time.UTC)
	next = nextRun(at, time.Hour, 55*time.Minute)
	assert.Equal(t, time.Date(2026, 8, 31, 15, 55, 0, 0, time.UTC), next)
}
