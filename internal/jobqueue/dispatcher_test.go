package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"brint/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryStore struct {
	mu      sync.Mutex
	pending []PublishJob

	completed  []PublishJob
	failed     []PublishJob
	retried    int
	staleReset int
}

func (m *memoryStore) push(job PublishJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, job)
}

func (m *memoryStore) Dequeue(ctx context.Context, queueName string, now time.Time) (PublishJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, job := range m.pending {
		if job.Queue != queueName {
			continue
		}
		if job.NextRetryAt != 0 && job.NextRetryAt > now.UnixMilli() {
			continue
		}
		m.pending = append(m.pending[:i], m.pending[i+1:]...)
		job.Status = JobStatusProcessing
		return job, nil
	}
	return PublishJob{}, common.ErrNotFound
}

func (m *memoryStore) Complete(ctx context.Context, job PublishJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, job)
	return nil
}

func (m *memoryStore) RetryOrFail(ctx context.Context, job PublishJob, cause error) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Attempt++
	if job.Attempt < job.MaxAttempts {
		m.retried++
		job.Status = JobStatusPending
		m.pending = append(m.pending, job)
		return false, nil
	}
	job.Status = JobStatusFailed
	m.failed = append(m.failed, job)
	return true, nil
}

func (m *memoryStore) ResetStale(ctx context.Context, queueName string, staleAfter time.Duration, batchSize int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleReset++
	return 0, nil
}

func (m *memoryStore) CleanupFailed(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

func (m *memoryStore) snapshot() (completed, failed, retried int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completed), len(m.failed), m.retried
}

type recordingHandler struct {
	mu            sync.Mutex
	processErr    error
	panicOnFirst  bool
	processed     []PublishJob
	finalFailures []PublishJob
}

func (h *recordingHandler) Process(ctx context.Context, job PublishJob) error {
	h.mu.Lock()
	h.processed = append(h.processed, job)
	shouldPanic := h.panicOnFirst && len(h.processed) == 1
	h.mu.Unlock()

	if shouldPanic {
		panic("boom")
	}
	return h.processErr
}

func (h *recordingHandler) HandleFinalFailure(ctx context.Context, job PublishJob, cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finalFailures = append(h.finalFailures, job)
}

func newTestJob(queue string, maxAttempts int) PublishJob {
	return PublishJob{
		ID:            primitive.NewObjectID(),
		JobID:         primitive.NewObjectID().Hex(),
		Queue:         queue,
		PublicationID: primitive.NewObjectID(),
		Status:        JobStatusPending,
		MaxAttempts:   maxAttempts,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %v", timeout)
}

func TestDispatcher_ProcessesAndCompletesJobs(t *testing.T) {
	store := &memoryStore{}
	handler := &recordingHandler{}
	for i := 0; i < 4; i++ {
		store.push(newTestJob("publish:facebook", 3))
	}

	d := NewDispatcher(store, handler, DispatcherConfig{
		Queue:        "publish:facebook",
		Concurrency:  3,
		PollInterval: 20 * time.Millisecond,
	})
	handle := d.Start(context.Background())
	defer handle.Stop()

	waitFor(t, 2*time.Second, func() bool {
		completed, _, _ := store.snapshot()
		return completed == 4
	})

	_, failed, _ := store.snapshot()
	assert.Equal(t, 0, failed)
	assert.Empty(t, handler.finalFailures)
}

func TestDispatcher_RetriesUntilBudgetThenFinalFailure(t *testing.T) {
	store := &memoryStore{}
	handler := &recordingHandler{processErr: errors.New("provider down")}
	store.push(newTestJob("publish:facebook", 3))

	d := NewDispatcher(store, handler, DispatcherConfig{
		Queue:        "publish:facebook",
		Concurrency:  3,
		PollInterval: 20 * time.Millisecond,
	})
	handle := d.Start(context.Background())
	defer handle.Stop()

	waitFor(t, 2*time.Second, func() bool {
		_, failed, _ := store.snapshot()
		return failed == 1
	})

	completed, _, retried := store.snapshot()
	assert.Equal(t, 0, completed)
	assert.Equal(t, 2, retried)

	// Callback final failure được gọi đúng một lần
	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Len(t, handler.finalFailures, 1)
	assert.Len(t, handler.processed, 3)
}

func TestDispatcher_PanicIsTreatedAsFailedAttempt(t *testing.T) {
	store := &memoryStore{}
	handler := &recordingHandler{panicOnFirst: true}
	store.push(newTestJob("publish:facebook", 3))

	d := NewDispatcher(store, handler, DispatcherConfig{
		Queue:        "publish:facebook",
		Concurrency:  3,
		PollInterval: 20 * time.Millisecond,
	})
	handle := d.Start(context.Background())
	defer handle.Stop()

	// Lần 1 panic → retry, lần 2 thành công
	waitFor(t, 2*time.Second, func() bool {
		completed, _, _ := store.snapshot()
		return completed == 1
	})

	_, _, retried := store.snapshot()
	assert.Equal(t, 1, retried)
}

func TestDispatcher_StopDrainsInFlightJobs(t *testing.T) {
	store := &memoryStore{}
	handler := &recordingHandler{}
	store.push(newTestJob("publish:facebook", 3))

	d := NewDispatcher(store, handler, DispatcherConfig{
		Queue:        "publish:facebook",
		Concurrency:  3,
		PollInterval: 20 * time.Millisecond,
	})
	handle := d.Start(context.Background())

	waitFor(t, 2*time.Second, func() bool {
		completed, _, _ := store.snapshot()
		return completed == 1
	})
	handle.Stop()

	// Sau Stop không còn goroutine nào xử lý thêm
	store.push(newTestJob("publish:facebook", 3))
	time.Sleep(100 * time.Millisecond)
	completed, _, _ := store.snapshot()
	assert.Equal(t, 1, completed)
}

func TestNewDispatcher_ClampsConcurrency(t *testing.T) {
	d := NewDispatcher(&memoryStore{}, &recordingHandler{}, DispatcherConfig{Queue: "q", Concurrency: 100})
	assert.Equal(t, maxConcurrency, d.cfg.Concurrency)

	d = NewDispatcher(&memoryStore{}, &recordingHandler{}, DispatcherConfig{Queue: "q", Concurrency: 0})
	assert.Equal(t, minConcurrency, d.cfg.Concurrency)
}
