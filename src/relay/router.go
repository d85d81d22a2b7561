package relay

import (
	"context"
	"encoding/json"
	"strings"

	logger "github.com/sirupsen/logrus"

	"tradingrelay/src/model"
	"tradingrelay/src/queue"
)

// Enqueuer is the durable queue surface the router needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName, jobType string, payload map[string]interface{}) (string, error)
}

// LifecycleHandler receives engine register/heartbeat/shutdown events
// directly, bypassing the queues: these need read-then-conditional-write
// logic, not a fire-and-forget persist.
type LifecycleHandler interface {
	Register(ctx context.Context, payload map[string]interface{})
	Heartbeat(ctx context.Context, payload map[string]interface{})
	Shutdown(ctx context.Context, payload map[string]interface{})
}

// PositionUpserter is the direct persistence path for position updates.
type PositionUpserter interface {
	UpsertByPositionID(ctx context.Context, position *model.Position) error
}

// Router classifies inbound pub/sub messages by channel and dispatches them:
// always to the live fan-out, and in parallel to either a durable queue, the
// lifecycle tracker, or the direct position upsert. Dispatch is fire-and-forget
// with bounded concurrency; a failing backend never breaks routing of
// subsequent events.
type Router struct {
	queues      Enqueuer
	tracker     LifecycleHandler
	positions   PositionUpserter
	broadcaster Broadcaster
	sem         chan struct{}
}

func NewRouter(queues Enqueuer, tracker LifecycleHandler, positions PositionUpserter, broadcaster Broadcaster, maxInFlight int) *Router {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	return &Router{
		queues:      queues,
		tracker:     tracker,
		positions:   positions,
		broadcaster: broadcaster,
		sem:         make(chan struct{}, maxInFlight),
	}
}

// Route parses one raw message and dispatches it. Malformed payloads are
// logged and dropped with no side effect; unknown channels are a no-op.
func (r *Router) Route(ctx context.Context, channel string, raw []byte) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		logger.WithError(err).WithField("channel", channel).Error("[relay] Failed to parse message")
		return
	}

	r.broadcaster.Broadcast(channel, ScopesFor(data), data)

	switch {
	case strings.HasPrefix(channel, PrefixOrderUpdate):
		r.submit(ctx, "enqueue order job", func(ctx context.Context) error {
			_, err := r.queues.Enqueue(ctx, queue.QueueOrderPersistence, queue.JobOrderUpdate, data)
			return err
		})

	case strings.HasPrefix(channel, PrefixTradeNew):
		r.submit(ctx, "enqueue trade job", func(ctx context.Context) error {
			_, err := r.queues.Enqueue(ctx, queue.QueueTradePersistence, queue.JobTradeNew, data)
			return err
		})

	case strings.HasPrefix(channel, PrefixPositionUpdate):
		// Positions are persisted directly: a pure last-write-wins
		// projection with no status bookkeeping.
		r.submit(ctx, "persist position update", func(ctx context.Context) error {
			return r.upsertPosition(ctx, data)
		})

	case strings.HasPrefix(channel, PrefixRiskAlert):
		r.submit(ctx, "enqueue notification job", func(ctx context.Context) error {
			_, err := r.queues.Enqueue(ctx, queue.QueueNotification, queue.JobRiskAlert, data)
			return err
		})

	case channel == ChannelEngineRegister:
		r.submit(ctx, "handle engine register", func(ctx context.Context) error {
			r.tracker.Register(ctx, data)
			return nil
		})
		r.enqueueLifecycle(ctx, "register", data)

	case channel == ChannelEngineHeartbeat:
		r.submit(ctx, "handle engine heartbeat", func(ctx context.Context) error {
			r.tracker.Heartbeat(ctx, data)
			return nil
		})

	case channel == ChannelEngineShutdown:
		r.submit(ctx, "handle engine shutdown", func(ctx context.Context) error {
			r.tracker.Shutdown(ctx, data)
			return nil
		})
		r.enqueueLifecycle(ctx, "shutdown", data)
	}
}

// enqueueLifecycle records register/shutdown events on the engine-lifecycle
// queue for the audit trail.
func (r *Router) enqueueLifecycle(ctx context.Context, event string, data map[string]interface{}) {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["event"] = event

	r.submit(ctx, "enqueue lifecycle job", func(ctx context.Context) error {
		_, err := r.queues.Enqueue(ctx, queue.QueueEngineLifecycle, queue.JobEngineLifecycle, payload)
		return err
	})
}

// submit runs a dispatch task in the background under the bounded in-flight
// budget. When the budget is exhausted the task is dropped with a log entry
// rather than blocking routing.
func (r *Router) submit(ctx context.Context, name string, fn func(ctx context.Context) error) {
	select {
	case r.sem <- struct{}{}:
		go func() {
			defer func() { <-r.sem }()
			if err := fn(ctx); err != nil {
				logger.WithError(err).WithField("task", name).Error("[relay] Dispatch failed")
			}
		}()
	default:
		logger.WithField("task", name).Error("[relay] Dispatch budget exhausted, dropping task")
	}
}

type positionUpdatePayload struct {
	PositionID    string          `json:"positionId"`
	BotID         string          `json:"botId"`
	Exchange      string          `json:"exchange"`
	InstID        string          `json:"instId"`
	Side          string          `json:"side"`
	Size          float64         `json:"size"`
	AvgEntryPrice float64         `json:"avgEntryPrice"`
	MarkPrice     float64         `json:"markPrice"`
	UnrealizedPnl float64         `json:"unrealizedPnl"`
	Currency      string          `json:"currency"`
	IsPaper       bool            `json:"isPaper"`
	Timestamp     model.EventTime `json:"timestamp"`
}

func (r *Router) upsertPosition(ctx context.Context, data map[string]interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var p positionUpdatePayload
	if err := json.Unmarshal(b, &p); err != nil {
		logger.WithError(err).Warn("[relay] Dropping undecodable position update")
		return nil
	}
	if p.PositionID == "" {
		logger.Warn("[relay] Dropping position update without positionId")
		return nil
	}

	return r.positions.UpsertByPositionID(ctx, &model.Position{
		PositionID:    p.PositionID,
		BotID:         p.BotID,
		Exchange:      p.Exchange,
		InstID:        p.InstID,
		Side:          p.Side,
		Size:          p.Size,
		AvgEntryPrice: p.AvgEntryPrice,
		MarkPrice:     p.MarkPrice,
		UnrealizedPnl: p.UnrealizedPnl,
		Currency:      p.Currency,
		IsPaper:       p.IsPaper,
		UpdatedAtSrc:  p.Timestamp.Time,
	})
}
