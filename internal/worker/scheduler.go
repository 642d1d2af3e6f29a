package worker

import (
	"context"
	"time"

	pubmodels "brint/internal/api/publication/models"
	"brint/internal/jobqueue"
	"brint/internal/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// schedulerBatchSize giới hạn số publication requeue mỗi lần cron chạy
const schedulerBatchSize = 100

// ScheduledSource cung cấp các publication đã đến giờ đăng
type ScheduledSource interface {
	ListScheduledReady(ctx context.Context, limit int64) ([]pubmodels.Publication, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, patch map[string]interface{}) (pubmodels.Publication, error)
}

// JobEnqueuer thêm publish job vào queue
type JobEnqueuer interface {
	Enqueue(ctx context.Context, queueName string, publicationID, workspaceID, brandID primitive.ObjectID) (jobqueue.PublishJob, error)
}

// Scheduler quét định kỳ các publication scheduled đã đến giờ và đưa vào
// queue. Gắn jobId ngay sau khi enqueue để lần quét sau không enqueue trùng;
// nếu chết giữa hai bước thì tệ nhất là job được enqueue hai lần — worker
// idempotent nên vô hại.
type Scheduler struct {
	publications ScheduledSource
	queue        JobEnqueuer
	cron         *cron.Cron
	log          *logrus.Logger
}

// NewScheduler tạo scheduler chưa chạy
func NewScheduler(publications ScheduledSource, queue JobEnqueuer) *Scheduler {
	return &Scheduler{
		publications: publications,
		queue:        queue,
		cron:         cron.New(),
		log:          logger.GetWorkerLogger(),
	}
}

// Start đăng ký cron spec (mặc định mỗi phút) và khởi động scheduler
func (s *Scheduler) Start(cronSpec string) error {
	if cronSpec == "" {
		cronSpec = "* * * * *"
	}

	if _, err := s.cron.AddFunc(cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.RequeueDue(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.WithField("cronSpec", cronSpec).Info("⏰ [SCHEDULER] Scheduler started")
	return nil
}

// Stop dừng cron và chờ lần chạy đang dở hoàn tất
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RequeueDue enqueue các publication scheduled đã đến giờ, trả về số lượng
// đã enqueue thành công
func (s *Scheduler) RequeueDue(ctx context.Context) int {
	due, err := s.publications.ListScheduledReady(ctx, schedulerBatchSize)
	if err != nil {
		s.log.WithError(err).Error("⏰ [SCHEDULER] Không quét được publications đến hạn")
		return 0
	}

	enqueued := 0
	for _, pub := range due {
		job, err := s.queue.Enqueue(ctx, jobqueue.QueueName(pub.Platform), pub.ID, pub.WorkspaceID, pub.BrandID)
		if err != nil {
			s.log.WithError(err).WithField("publicationId", pub.ID.Hex()).
				Error("⏰ [SCHEDULER] Enqueue publish job thất bại")
			continue
		}

		if _, err := s.publications.UpdateStatus(ctx, pub.ID, map[string]interface{}{
			"jobId": job.JobID,
		}); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"publicationId": pub.ID.Hex(),
				"jobId":         job.JobID,
			}).Error("⏰ [SCHEDULER] Không gắn được jobId vào publication")
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		s.log.WithField("count", enqueued).Info("⏰ [SCHEDULER] Đã enqueue publications đến hạn")
	}
	return enqueued
}
