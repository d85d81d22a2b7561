package pnl

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
)

// Scheduler drives the periodic aggregation jobs: hourly snapshots late in
// each hour and the daily rollup shortly after midnight UTC.
type Scheduler struct {
	service      *Service
	hourlyOffset time.Duration
	dailyOffset  time.Duration
}

func NewScheduler(service *Service, cfg Config) *Scheduler {
	return &Scheduler{
		service:      service,
		hourlyOffset: cfg.HourlyOffset,
		dailyOffset:  cfg.DailyOffset,
	}
}

// Start launches the hourly and daily loops. They run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.runEvery(ctx, time.Hour, s.hourlyOffset, "hourly snapshots", func(ctx context.Context) error {
		_, err := s.service.CreateHourlySnapshots(ctx)
		return err
	})
	go s.runEvery(ctx, 24*time.Hour, s.dailyOffset, "daily aggregation", func(ctx context.Context) error {
		return s.service.RunDailyAggregation(ctx)
	})

	logger.Info("[pnl] Aggregation schedulers started")
}

// runEvery fires the job once per period, at the given offset into the
// period (UTC-aligned). Job failures are logged and the loop keeps going.
func (s *Scheduler) runEvery(ctx context.Context, period, offset time.Duration, name string, job func(ctx context.Context) error) {
	for {
		next := nextRun(time.Now().UTC(), period, offset)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := job(ctx); err != nil {
				logger.WithError(err).WithField("job", name).Error("[pnl] Scheduled job failed")
			}
		}
	}
}

// nextRun returns the earliest period boundary + offset strictly after now.
func nextRun(now time.Time, period, offset time.Duration) time.Time {
	next := now.Truncate(period).Add(offset)
	if !next.After(now) {
		next = next.Add(period)
	}
	return next
}
