package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"brint/internal/common"
	"brint/internal/logger"

	"github.com/sirupsen/logrus"
)

// JobStore là phần contract của Queue mà dispatcher cần
type JobStore interface {
	Dequeue(ctx context.Context, queueName string, now time.Time) (PublishJob, error)
	Complete(ctx context.Context, job PublishJob) error
	RetryOrFail(ctx context.Context, job PublishJob, cause error) (final bool, err error)
	ResetStale(ctx context.Context, queueName string, staleAfter time.Duration, batchSize int64) (int, error)
	CleanupFailed(ctx context.Context, retention time.Duration) (int64, error)
}

// Handler xử lý job được dispatcher giao.
// Process trả error khi lần thử thất bại; HandleFinalFailure được gọi đúng
// một lần khi job đã cháy hết ngân sách retry.
type Handler interface {
	Process(ctx context.Context, job PublishJob) error
	HandleFinalFailure(ctx context.Context, job PublishJob, cause error)
}

// DispatcherConfig cấu hình một dispatcher cho một queue
type DispatcherConfig struct {
	Queue        string        // Tên queue cần poll
	Concurrency  int           // Số job xử lý song song tối đa (3-5)
	PollInterval time.Duration // Chu kỳ poll queue
}

const (
	minConcurrency = 3
	maxConcurrency = 5

	staleResetInterval = time.Minute
	staleAfter         = 5 * time.Minute
	staleBatchSize     = 50
	failedRetention    = 7 * 24 * time.Hour
)

// Dispatcher poll một queue và phát job cho handler với concurrency giới hạn
type Dispatcher struct {
	store   JobStore
	handler Handler
	cfg     DispatcherConfig
	log     *logrus.Logger
}

// NewDispatcher tạo dispatcher; concurrency được kẹp trong khoảng cho phép
func NewDispatcher(store JobStore, handler Handler, cfg DispatcherConfig) *Dispatcher {
	if cfg.Concurrency < minConcurrency {
		cfg.Concurrency = minConcurrency
	}
	if cfg.Concurrency > maxConcurrency {
		cfg.Concurrency = maxConcurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	return &Dispatcher{
		store:   store,
		handler: handler,
		cfg:     cfg,
		log:     logger.GetWorkerLogger(),
	}
}

// WorkerHandle đại diện cho một dispatcher đang chạy
type WorkerHandle struct {
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

// Stop dừng dispatcher và chờ các job đang xử lý hoàn tất
func (h *WorkerHandle) Stop() {
	h.cancel()
	h.wg.Wait()
}

// Start khởi động vòng poll và job dọn dẹp nền, trả về handle để dừng
func (d *Dispatcher) Start(ctx context.Context) *WorkerHandle {
	runCtx, cancel := context.WithCancel(ctx)
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.pollLoop(runCtx, wg)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.cleanupLoop(runCtx)
	}()

	d.log.WithFields(logrus.Fields{
		"queue":       d.cfg.Queue,
		"concurrency": d.cfg.Concurrency,
	}).Info("📦 [QUEUE] Dispatcher started")

	return &WorkerHandle{cancel: cancel, wg: wg}
}

// pollLoop poll queue theo chu kỳ và phát job qua semaphore concurrency
func (d *Dispatcher) pollLoop(ctx context.Context, wg *sync.WaitGroup) {
	sem := make(chan struct{}, d.cfg.Concurrency)
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx, wg, sem)
		}
	}
}

// drain dequeue liên tục cho đến khi queue rỗng hoặc hết slot concurrency
func (d *Dispatcher) drain(ctx context.Context, wg *sync.WaitGroup, sem chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		default:
			// Hết slot, chờ tick sau
			return
		}

		job, err := d.store.Dequeue(ctx, d.cfg.Queue, time.Now())
		if err != nil {
			<-sem
			if !errors.Is(err, common.ErrNotFound) {
				d.log.WithError(err).WithField("queue", d.cfg.Queue).
					Error("📦 [QUEUE] Failed to dequeue job")
			}
			return
		}

		wg.Add(1)
		go func(job PublishJob) {
			defer wg.Done()
			defer func() { <-sem }()
			d.runJob(ctx, job)
		}(job)
	}
}

// runJob chạy một job với panic recovery; mọi thất bại đi qua RetryOrFail
func (d *Dispatcher) runJob(ctx context.Context, job PublishJob) {
	logFields := logrus.Fields{
		"queue":         d.cfg.Queue,
		"jobId":         job.JobID,
		"publicationId": job.PublicationID.Hex(),
		"attempt":       job.Attempt,
	}

	var procErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				procErr = fmt.Errorf("panic while processing job: %v", r)
				d.log.WithFields(logFields).WithField("panic", r).
					Error("📦 [QUEUE] Panic khi xử lý job")
			}
		}()
		procErr = d.handler.Process(ctx, job)
	}()

	if procErr == nil {
		if err := d.store.Complete(ctx, job); err != nil {
			d.log.WithError(err).WithFields(logFields).
				Warn("📦 [QUEUE] Failed to complete job")
		}
		return
	}

	d.log.WithError(procErr).WithFields(logFields).
		Error("📦 [QUEUE] Job attempt failed")

	final, err := d.store.RetryOrFail(ctx, job, procErr)
	if err != nil {
		return
	}
	if final {
		d.handler.HandleFinalFailure(ctx, job, procErr)
	}
}

// cleanupLoop reset job kẹt ở processing và dọn job failed cũ
func (d *Dispatcher) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(staleResetInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.store.ResetStale(ctx, d.cfg.Queue, staleAfter, staleBatchSize); err != nil {
				d.log.WithError(err).WithField("queue", d.cfg.Queue).
					Error("📦 [QUEUE] Failed to reset stale jobs")
			}
			if _, err := d.store.CleanupFailed(ctx, failedRetention); err != nil {
				d.log.WithError(err).WithField("queue", d.cfg.Queue).
					Error("📦 [QUEUE] Failed to cleanup old failed jobs")
			}
		}
	}
}
