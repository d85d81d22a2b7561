package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"tradingrelay/src/model"
	"tradingrelay/src/queue"
	"tradingrelay/src/repository"
)

// Notifier is the best-effort external delivery side channel for critical
// notifications. A disabled notifier is a valid state, not an error.
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, title, message string) error
}

// Processors bundles the per-category persistence functions that the worker
// pools execute. Every processor is idempotent: re-processing the same job
// yields the same final state (with the documented exception of the order
// timeline append).
type Processors struct {
	orders        *repository.OrderRepository
	trades        *repository.TradeRepository
	notifications *repository.NotificationRepository
	audits        *repository.AuditRepository
	notifier      Notifier
}

func NewProcessors(
	orders *repository.OrderRepository,
	trades *repository.TradeRepository,
	notifications *repository.NotificationRepository,
	audits *repository.AuditRepository,
	notifier Notifier,
) *Processors {
	return &Processors{
		orders:        orders,
		trades:        trades,
		notifications: notifications,
		audits:        audits,
		notifier:      notifier,
	}
}

// ProcessOrderUpdate upserts the order fields by orderId and appends one
// timeline entry for the reported status.
func (p *Processors) ProcessOrderUpdate(ctx context.Context, job *queue.Job) error {
	var data orderUpdatePayload
	if err := decodePayload(job.Payload, &data); err != nil {
		logger.WithError(err).WithField("job_id", job.JobID).Warn("[worker:orders] Dropping undecodable payload")
		return nil
	}
	if data.OrderID == "" {
		logger.WithField("job_id", job.JobID).Warn("[worker:orders] Dropping payload without orderId")
		return nil
	}

	order := &model.Order{
		OrderID:         data.OrderID,
		ExchangeOrderID: data.ExchangeOrderID,
		Exchange:        data.Exchange,
		BotID:           data.BotID,
		InstID:          data.InstID,
		Side:            data.Side,
		OrderType:       data.Type,
		Price:           data.Price,
		Size:            data.Size,
		FilledSize:      data.FilledSize,
		FilledAvgPrice:  data.FilledAvgPrice,
		RemainingSize:   data.RemainingSize,
		Status:          data.Status,
		Source:          data.Source,
		IsPaper:         data.IsPaper,
		StrategyName:    data.StrategyName,
		Currency:        data.Currency,
		Fees:            data.Fees,
		Error:           data.Error,
	}

	if err := p.orders.UpsertByOrderID(ctx, order); err != nil {
		return err
	}

	ts := data.Timestamp.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return p.orders.AppendTimeline(ctx, &model.OrderTimelineEntry{
		OrderID:   data.OrderID,
		Status:    data.Status,
		Timestamp: ts,
		Details:   data.Details,
	})
}

// ProcessTradeNew upserts the trade by tradeId.
func (p *Processors) ProcessTradeNew(ctx context.Context, job *queue.Job) error {
	var data tradeNewPayload
	if err := decodePayload(job.Payload, &data); err != nil {
		logger.WithError(err).WithField("job_id", job.JobID).Warn("[worker:trades] Dropping undecodable payload")
		return nil
	}
	if data.TradeID == "" {
		logger.WithField("job_id", job.JobID).Warn("[worker:trades] Dropping payload without tradeId")
		return nil
	}

	return p.trades.UpsertByTradeID(ctx, &model.Trade{
		TradeID:     data.TradeID,
		OrderID:     data.OrderID,
		BotID:       data.BotID,
		Exchange:    data.Exchange,
		InstID:      data.InstID,
		Side:        data.Side,
		Price:       data.Price,
		Size:        data.Size,
		Fee:         data.Fee,
		RealizedPnl: data.RealizedPnl,
		Currency:    data.Currency,
		IsPaper:     data.IsPaper,
		Timestamp:   data.Timestamp.Time,
	})
}

// ProcessRiskAlert persists the notification and, for critical severity,
// attempts external delivery. Delivery failure never fails the job; the
// notification is already durable at that point.
func (p *Processors) ProcessRiskAlert(ctx context.Context, job *queue.Job) error {
	var data riskAlertPayload
	if err := decodePayload(job.Payload, &data); err != nil {
		logger.WithError(err).WithField("job_id", job.JobID).Warn("[worker:notifications] Dropping undecodable payload")
		return nil
	}
	if data.NotificationID == "" {
		logger.WithField("job_id", job.JobID).Warn("[worker:notifications] Dropping payload without notificationId")
		return nil
	}

	n := &model.Notification{
		NotificationID: data.NotificationID,
		Type:           data.Type,
		Severity:       data.Severity,
		Exchange:       data.Exchange,
		BotID:          data.BotID,
		Title:          data.Title,
		Message:        data.Message,
		CreatedAt:      time.Now().UTC(),
	}

	if err := p.notifications.UpsertByNotificationID(ctx, n); err != nil {
		return err
	}

	if data.Severity == model.SeverityCritical && p.notifier != nil && p.notifier.Enabled() {
		if err := p.notifier.Send(ctx, data.Title, data.Message); err != nil {
			logger.WithError(err).WithField("notification_id", data.NotificationID).
				Warn("[worker:notifications] External delivery failed")
		} else if err := p.notifications.MarkTelegramSent(ctx, data.NotificationID); err != nil {
			logger.WithError(err).WithField("notification_id", data.NotificationID).
				Warn("[worker:notifications] Failed to flag delivery")
		}
	}

	return nil
}

// ProcessAudit persists one audit log record.
func (p *Processors) ProcessAudit(ctx context.Context, job *queue.Job) error {
	var data auditPayload
	if err := decodePayload(job.Payload, &data); err != nil {
		logger.WithError(err).WithField("job_id", job.JobID).Warn("[worker:audit] Dropping undecodable payload")
		return nil
	}

	auditID := data.AuditID
	if auditID == "" {
		auditID = uuid.NewString()
	}

	ts := data.Timestamp.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return p.audits.UpsertByAuditID(ctx, &model.AuditLog{
		AuditID:    auditID,
		Action:     data.Action,
		EntityType: data.EntityType,
		EntityID:   data.EntityID,
		Exchange:   data.Exchange,
		Details:    job.Payload,
		Timestamp:  ts,
	})
}

// ProcessEngineLifecycle records register/shutdown events in the audit trail.
func (p *Processors) ProcessEngineLifecycle(ctx context.Context, job *queue.Job) error {
	var data engineLifecyclePayload
	if err := decodePayload(job.Payload, &data); err != nil {
		logger.WithError(err).WithField("job_id", job.JobID).Warn("[worker:engine-lifecycle] Dropping undecodable payload")
		return nil
	}
	if data.EngineID == "" || data.Event == "" {
		logger.WithField("job_id", job.JobID).Warn("[worker:engine-lifecycle] Dropping payload without engineId/event")
		return nil
	}

	ts := data.Timestamp.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return p.audits.UpsertByAuditID(ctx, &model.AuditLog{
		AuditID:    job.JobID,
		Action:     "engine." + data.Event,
		EntityType: "engine",
		EntityID:   data.EngineID,
		Details:    job.Payload,
		Timestamp:  ts,
	})
}
