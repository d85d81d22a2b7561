package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"tradingrelay/src/queue"
)

// Backend is the queue surface a pool needs. Satisfied by *queue.RedisQ;
// tests substitute an in-memory fake.
type Backend interface {
	Dequeue(ctx context.Context, queueName string, block time.Duration) (*queue.Job, error)
	RetryLater(ctx context.Context, job *queue.Job, delay time.Duration) error
	PushDLQ(ctx context.Context, entry *queue.DlqEntry) error
}

// Processor executes the category-specific persistence for one claimed job.
type Processor func(ctx context.Context, job *queue.Job) error

// Pool drains one named queue with a fixed number of concurrent workers.
type Pool struct {
	backend     Backend
	queueName   string
	proc        Processor
	concurrency int
	backoffBase time.Duration
	block       time.Duration

	wg sync.WaitGroup
}

func NewPool(backend Backend, queueName string, proc Processor, cfg Config) *Pool {
	return &Pool{
		backend:     backend,
		queueName:   queueName,
		proc:        proc,
		concurrency: cfg.Concurrency,
		backoffBase: cfg.BackoffBase,
		block:       cfg.DequeueBlock,
	}
}

// Start launches the worker goroutines. They run until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}

	logger.WithFields(map[string]interface{}{
		"queue":       p.queueName,
		"concurrency": p.concurrency,
	}).Info("[worker] Pool started")
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.backend.Dequeue(ctx, p.queueName, p.block)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WithError(err).WithField("queue", p.queueName).Warn("[worker] Dequeue failed")
			time.Sleep(p.backoffBase)
			continue
		}
		if job == nil {
			continue
		}

		p.Handle(ctx, job)
	}
}

// Handle runs the processor for one claimed job and applies the retry/DLQ
// policy on failure. Exported so tests can drive it directly.
func (p *Pool) Handle(ctx context.Context, job *queue.Job) {
	err := p.proc(ctx, job)
	if err == nil {
		return
	}

	job.Attempts++

	if job.Attempts < job.MaxAttempts {
		delay := p.backoffBase << (job.Attempts - 1)
		logger.WithFields(map[string]interface{}{
			"queue":    p.queueName,
			"job_id":   job.JobID,
			"attempts": job.Attempts,
			"delay":    delay,
		}).WithError(err).Warn("[worker] Job failed, scheduling retry")

		if rerr := p.backend.RetryLater(ctx, job, delay); rerr != nil {
			logger.WithError(rerr).WithField("job_id", job.JobID).Error("[worker] Failed to schedule retry")
		}
		return
	}

	entry := &queue.DlqEntry{
		DlqID:         uuid.NewString(),
		OriginalQueue: job.Queue,
		JobID:         job.JobID,
		JobType:       job.Type,
		Payload:       job.Payload,
		ErrorMessage:  err.Error(),
		FailedAt:      time.Now().UTC(),
		Attempts:      job.Attempts,
	}

	if derr := p.backend.PushDLQ(ctx, entry); derr != nil {
		logger.WithError(derr).WithField("job_id", job.JobID).Error("[worker] Failed to push DLQ entry")
	}

	logger.WithFields(map[string]interface{}{
		"queue":    p.queueName,
		"job_id":   job.JobID,
		"attempts": job.Attempts,
	}).WithError(err).Error("[worker] Job permanently failed, routed to DLQ")
}
