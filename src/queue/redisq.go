package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	r "github.com/redis/go-redis/v9"
	logger "github.com/sirupsen/logrus"
)

const dlqKey = "dlq"

func queueKey(name string) string { return "queue:" + name }
func delayKey(name string) string { return "delay:" + name }

// NewClient builds the shared Redis client used for queues and pub/sub.
func NewClient(cfg Config) *r.Client {
	return r.NewClient(&r.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// RedisQ is a set of named durable queues backed by Redis lists, with a
// per-queue delay ZSET for retry backoff and one shared dead-letter list.
type RedisQ struct {
	rdb            *r.Client
	enqueueTimeout time.Duration
	maxAttempts    int
}

func New(rdb *r.Client, cfg Config) *RedisQ {
	return &RedisQ{
		rdb:            rdb,
		enqueueTimeout: cfg.EnqueueTimeout,
		maxAttempts:    cfg.MaxAttempts,
	}
}

// Enqueue pushes a new job onto the named queue. The call is bounded by the
// configured enqueue timeout so a slow backend can never stall the caller.
func (q *RedisQ) Enqueue(ctx context.Context, queueName, jobType string, payload map[string]interface{}) (string, error) {
	job := &Job{
		JobID:       uuid.NewString(),
		Queue:       queueName,
		Type:        jobType,
		Payload:     payload,
		Attempts:    0,
		MaxAttempts: q.maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}

	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, q.enqueueTimeout)
	defer cancel()

	if err := q.rdb.LPush(ctx, queueKey(queueName), body).Err(); err != nil {
		return "", err
	}
	return job.JobID, nil
}

// Dequeue blocks up to the given duration waiting for a job on the named
// queue. Returns (nil, nil) when the wait times out with no job available.
func (q *RedisQ) Dequeue(ctx context.Context, queueName string, block time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, block, queueKey(queueName)).Result()
	if err != nil {
		if err == r.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(res) != 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		// A corrupt envelope cannot be retried; drop it with a trace.
		logger.WithError(err).WithField("queue", queueName).Error("[queue] Dropping undecodable job envelope")
		return nil, nil
	}
	return &job, nil
}

// RetryLater schedules the job to be re-enqueued after the given delay by
// parking it on the queue's delay ZSET, scored by its ready time.
func (q *RedisQ) RetryLater(ctx context.Context, job *Job, delay time.Duration) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	readyAt := time.Now().UTC().Add(delay)
	return q.rdb.ZAdd(ctx, delayKey(job.Queue), r.Z{
		Score:  float64(readyAt.Unix()),
		Member: body,
	}).Err()
}

// MoveDue promotes jobs whose delay has elapsed from the ZSET back onto the
// ready list. Called periodically by the mover loop.
func (q *RedisQ) MoveDue(ctx context.Context, queueName string, now int64, batch int64) error {
	members, err := q.rdb.ZRangeByScore(ctx, delayKey(queueName), &r.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now), Offset: 0, Count: batch,
	}).Result()
	if err != nil || len(members) == 0 {
		return err
	}

	pipe := q.rdb.TxPipeline()
	for _, m := range members {
		pipe.LPush(ctx, queueKey(queueName), m)
		pipe.ZRem(ctx, delayKey(queueName), m)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// PushDLQ appends a terminal failure record to the shared dead-letter list.
func (q *RedisQ) PushDLQ(ctx context.Context, entry *DlqEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}
	return q.rdb.LPush(ctx, dlqKey, body).Err()
}

// StartMover runs the delayed-job promotion loop for the given queues until
// the context is cancelled.
func (q *RedisQ) StartMover(ctx context.Context, queueNames []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC().Unix()
			for _, name := range queueNames {
				if err := q.MoveDue(ctx, name, now, 200); err != nil {
					logger.WithError(err).WithField("queue", name).Warn("[queue] Failed to move due jobs")
				}
			}
		}
	}
}
