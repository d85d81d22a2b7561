package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingrelay/src/queue"
)

type retryCall struct {
	job   *queue.Job
	delay time.Duration
}

type fakeBackend struct {
	retries []retryCall
	dlq     []*queue.DlqEntry
}

func (f *fakeBackend) Dequeue(context.Context, string, time.Duration) (*queue.Job, error) {
	return nil, nil
}

func (f *fakeBackend) RetryLater(_ context.Context, job *queue.Job, delay time.Duration) error {
	f.retries = append(f.retries, retryCall{job: job, delay: delay})
	return nil
}

func (f *fakeBackend) PushDLQ(_ context.Context, entry *queue.DlqEntry) error {
	f.dlq = append(f.dlq, entry)
	return nil
}

func testPoolConfig() Config {
	return Config{
		Concurrency:  1,
		BackoffBase:  time.Second,
		DequeueBlock: time.Second,
		MoveInterval: time.Second,
	}
}

func newTestJob() *queue.Job {
	return &queue.Job{
		JobID:       "job-1",
		Queue:       queue.QueueOrderPersistence,
		Type:        queue.JobOrderUpdate,
		Payload:     map[string]interface{}{"orderId": "ord-1"},
		MaxAttempts: 3,
		EnqueuedAt:  time.Now().UTC(),
	}
}

func TestHandleSuccess(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewPool(backend, queue.QueueOrderPersistence, func(context.Context, *queue.Job) error {
		return nil
	}, testPoolConfig())

	job := newTestJob()
	pool.Handle(context.Background(), job)

	assert.Empty(t, backend.retries)
	assert.Empty(t, backend.dlq)
	assert.Equal(t, 0, job.Attempts)
}

func TestHandleRetryBackoff(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewPool(backend, queue.QueueOrderPersistence, func(context.Context, *queue.Job) error {
		return errors.New("db unavailable")
	}, testPoolConfig())

	job := newTestJob()

	pool.Handle(context.Background(), job)
	require.Len(t, backend.retries, 1)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, time.Second, backend.retries[0].delay)

	pool.Handle(context.Background(), job)
	require.Len(t, backend.retries, 2)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, 2*time.Second, backend.retries[1].delay)

	assert.Empty(t, backend.dlq)
}

func TestHandleExhaustedGoesToDLQ(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewPool(backend, queue.QueueOrderPersistence, func(context.Context, *queue.Job) error {
		return errors.New("db unavailable")
	}, testPoolConfig())

	job := newTestJob()

	for i := 0; i < job.MaxAttempts; i++ {
		pool.Handle(context.Background(), job)
	}

	assert.Len(t, backend.retries, 2)
	require.Len(t, backend.dlq, 1)

	entry := backend.dlq[0]
	assert.Equal(t, "job-1", entry.JobID)
	assert.Equal(t, queue.QueueOrderPersistence, entry.OriginalQueue)
	assert.Equal(t, queue.JobOrderUpdate, entry.JobType)
	assert.Equal(t, "db unavailable", entry.ErrorMessage)
	assert.Equal(t, job.MaxAttempts, entry.Attempts)
	assert.NotEmpty(t, entry.DlqID)
	assert.Equal(t, "ord-1", entry.Payload["orderId"])
}

func TestHandleFurtherFailuresStayInDLQ(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewPool(backend, queue.QueueOrderPersistence, func(context.Context, *queue.Job) error {
		return errors.New("still broken")
	}, testPoolConfig())

	job := newTestJob()
	job.Attempts = 5

	pool.Handle(context.Background(), job)

	assert.Empty(t, backend.retries)
	assert.Len(t, backend.dlq, 1)
}
