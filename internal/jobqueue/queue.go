package jobqueue

import (
	"context"
	"fmt"
	"time"

	basesvc "brint/internal/api/base/service"
	"brint/internal/common"
	"brint/internal/global"
	"brint/internal/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Options điều khiển hành vi retry và dọn dẹp của queue
type Options struct {
	Attempts         int           // Số lần thử tối đa cho một job
	BackoffBase      time.Duration // Backoff lũy thừa: delay = BackoffBase * 2^(attempt-1)
	RemoveOnComplete bool          // Xóa job khi hoàn thành
	RemoveOnFail     bool          // Xóa job khi hết retry (mặc định giữ lại để điều tra)
}

// DefaultOptions trả về cấu hình mặc định của publish queue
func DefaultOptions() Options {
	return Options{
		Attempts:         3,
		BackoffBase:      time.Second,
		RemoveOnComplete: true,
		RemoveOnFail:     false,
	}
}

// Queue là hàng đợi publish job lưu trên MongoDB
type Queue struct {
	*basesvc.BaseServiceMongoImpl[PublishJob]
	opts Options
	log  *logrus.Logger
}

// NewQueue tạo mới Queue với options cho trước
func NewQueue(opts Options) (*Queue, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.PublishJobs)
	if !exist {
		return nil, fmt.Errorf("failed to get publish_jobs collection: %v", common.ErrNotFound)
	}

	if opts.Attempts <= 0 {
		opts.Attempts = DefaultOptions().Attempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultOptions().BackoffBase
	}

	return &Queue{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[PublishJob](collection),
		opts:                 opts,
		log:                  logger.GetWorkerLogger(),
	}, nil
}

// Options trả về cấu hình hiện tại của queue
func (q *Queue) Options() Options {
	return q.opts
}

// Enqueue thêm một publish job mới vào hàng đợi queueName
func (q *Queue) Enqueue(ctx context.Context, queueName string, publicationID, workspaceID, brandID primitive.ObjectID) (PublishJob, error) {
	job := PublishJob{
		JobID:         uuid.NewString(),
		Queue:         queueName,
		PublicationID: publicationID,
		WorkspaceID:   workspaceID,
		BrandID:       brandID,
		Status:        JobStatusPending,
		Attempt:       0,
		MaxAttempts:   q.opts.Attempts,
	}

	created, err := q.InsertOne(ctx, job)
	if err != nil {
		q.log.WithError(err).WithFields(logrus.Fields{
			"queue":         queueName,
			"publicationId": publicationID.Hex(),
		}).Error("📦 [QUEUE] Failed to enqueue publish job")
		return PublishJob{}, err
	}

	return created, nil
}

// Dequeue lấy nguyên tử một job pending đã đến hạn và chuyển sang processing.
// Guard trạng thái nằm ngay trong filter nên hai worker không thể nhận cùng
// một job. Trả common.ErrNotFound khi queue rỗng.
func (q *Queue) Dequeue(ctx context.Context, queueName string, now time.Time) (PublishJob, error) {
	filter := bson.M{
		"queue":  queueName,
		"status": JobStatusPending,
		"$or": []bson.M{
			{"nextRetryAt": bson.M{"$exists": false}},
			{"nextRetryAt": 0},
			{"nextRetryAt": bson.M{"$lte": now.UnixMilli()}},
		},
	}
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"status":    JobStatusProcessing,
			"startedAt": now.UnixMilli(),
		},
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})

	return q.FindOneAndUpdate(ctx, filter, update, opts)
}

// Complete đánh dấu job xử lý xong. Với removeOnComplete, job bị xóa luôn
// để collection không phình vô hạn.
func (q *Queue) Complete(ctx context.Context, job PublishJob) error {
	if q.opts.RemoveOnComplete {
		return q.DeleteOne(ctx, bson.M{"_id": job.ID})
	}

	update := &basesvc.UpdateData{
		Set: map[string]interface{}{"status": JobStatusCompleted},
	}
	_, err := q.UpdateOne(ctx, bson.M{"_id": job.ID}, update, nil)
	return err
}

// RetryOrFail xử lý job thất bại: còn ngân sách và lỗi retryable thì đặt
// lịch retry với backoff lũy thừa, ngược lại đánh dấu failed (giữ lại trừ
// khi removeOnFail). Trả về final=true khi job không còn được thử lại.
func (q *Queue) RetryOrFail(ctx context.Context, job PublishJob, cause error) (final bool, err error) {
	job.Attempt++

	if job.Attempt < job.MaxAttempts && common.IsRetryable(cause) {
		backoff := q.opts.BackoffBase * time.Duration(1<<(job.Attempt-1))
		update := &basesvc.UpdateData{
			Set: map[string]interface{}{
				"status":      JobStatusPending,
				"attempt":     job.Attempt,
				"nextRetryAt": time.Now().Add(backoff).UnixMilli(),
				"lastError":   cause.Error(),
			},
		}
		if _, uerr := q.UpdateOne(ctx, bson.M{"_id": job.ID}, update, nil); uerr != nil {
			q.log.WithError(uerr).WithField("jobId", job.JobID).
				Error("📦 [QUEUE] Failed to schedule job retry")
			return false, uerr
		}
		return false, nil
	}

	// Hết ngân sách retry
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"status":    JobStatusFailed,
			"attempt":   job.Attempt,
			"lastError": cause.Error(),
		},
	}
	if _, uerr := q.UpdateOne(ctx, bson.M{"_id": job.ID}, update, nil); uerr != nil {
		q.log.WithError(uerr).WithField("jobId", job.JobID).
			Error("📦 [QUEUE] Failed to mark job as failed")
		return true, uerr
	}

	if q.opts.RemoveOnFail {
		if derr := q.DeleteOne(ctx, bson.M{"_id": job.ID}); derr != nil {
			q.log.WithError(derr).WithField("jobId", job.JobID).
				Warn("📦 [QUEUE] Failed to delete failed job")
		}
	}

	return true, nil
}

// ResetStale đưa các job processing quá lâu (worker chết giữa chừng) về
// pending để worker khác nhận lại. Trả về số job đã reset.
func (q *Queue) ResetStale(ctx context.Context, queueName string, staleAfter time.Duration, batchSize int64) (int, error) {
	cutoff := time.Now().Add(-staleAfter).UnixMilli()
	filter := bson.M{
		"queue":     queueName,
		"status":    JobStatusProcessing,
		"startedAt": bson.M{"$lte": cutoff},
	}

	stuck, err := q.Find(ctx, filter, options.Find().SetLimit(batchSize))
	if err != nil {
		return 0, err
	}

	reset := 0
	for _, job := range stuck {
		update := &basesvc.UpdateData{
			Set:   map[string]interface{}{"status": JobStatusPending},
			Unset: map[string]interface{}{"nextRetryAt": "", "startedAt": ""},
		}
		if _, uerr := q.UpdateOne(ctx, bson.M{"_id": job.ID}, update, nil); uerr != nil {
			q.log.WithError(uerr).WithField("jobId", job.JobID).
				Error("📦 [QUEUE] Failed to reset stale job to pending")
			continue
		}
		q.log.WithFields(logrus.Fields{
			"jobId":         job.JobID,
			"publicationId": job.PublicationID.Hex(),
		}).Warn("📦 [QUEUE] Reset stale processing job to pending")
		reset++
	}

	return reset, nil
}

// CleanupFailed xóa các job failed cũ hơn retention. Trả về số job đã xóa.
func (q *Queue) CleanupFailed(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	return q.DeleteMany(ctx, bson.M{
		"status":    JobStatusFailed,
		"updatedAt": bson.M{"$lte": cutoff},
	})
}
