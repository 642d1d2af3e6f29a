// Package worker chứa orchestrator đăng bài: nhận job từ queue, đảm bảo
// token còn dùng được, gọi platform client và ghi lại kết quả.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	activitymodels "brint/internal/api/activity/models"
	pubmodels "brint/internal/api/publication/models"
	pubsvc "brint/internal/api/publication/service"
	"brint/internal/common"
	"brint/internal/jobqueue"
	"brint/internal/logger"
	"brint/internal/platform/facebook"
	"brint/internal/token"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicationStore là phần contract của publication service mà worker cần
type PublicationStore interface {
	GetWithRelations(ctx context.Context, id primitive.ObjectID) (*pubsvc.PublicationWithRelations, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, patch map[string]interface{}) (pubmodels.Publication, error)
}

// TokenEnsurer đảm bảo social account có token dùng được trước khi đăng
type TokenEnsurer interface {
	EnsureValid(ctx context.Context, accountID primitive.ObjectID) (token.EnsureResult, error)
}

// Publisher đăng một payload lên platform
type Publisher interface {
	Publish(ctx context.Context, pageID, accessToken string, payload pubmodels.Payload) (*facebook.PublishResult, error)
}

// ActivityRecorder ghi activity event, fire-and-forget
type ActivityRecorder interface {
	LogActivity(ctx context.Context, workspaceID, brandID, publicationID primitive.ObjectID, eventType string, metadata map[string]interface{})
}

// PublishWorker xử lý publish job: mỗi lần Process là một lần thử đăng.
// Worker phải idempotent vì queue giao job at-least-once: publication đã
// ở trạng thái terminal cứng thì job là no-op.
type PublishWorker struct {
	publications PublicationStore
	tokens       TokenEnsurer
	publisher    Publisher
	activity     ActivityRecorder
	log          *logrus.Logger
}

// NewPublishWorker tạo worker cho một platform
func NewPublishWorker(publications PublicationStore, tokens TokenEnsurer, publisher Publisher, activity ActivityRecorder) *PublishWorker {
	return &PublishWorker{
		publications: publications,
		tokens:       tokens,
		publisher:    publisher,
		activity:     activity,
		log:          logger.GetWorkerLogger(),
	}
}

// Process thực hiện một lần thử đăng cho job.
// Luồng: reload publication → guard terminal → chuyển publishing → đảm bảo
// token → decode payload → gọi platform → ghi kết quả. Mọi thất bại đều
// được ghi vào publication trước khi trả error cho dispatcher quyết định retry.
func (w *PublishWorker) Process(ctx context.Context, job jobqueue.PublishJob) error {
	logFields := logrus.Fields{
		"jobId":         job.JobID,
		"publicationId": job.PublicationID.Hex(),
		"attempt":       job.Attempt,
	}

	// 1. Reload publication mới nhất, không tin dữ liệu cũ trong job
	rel, err := w.publications.GetWithRelations(ctx, job.PublicationID)
	if err != nil {
		if errors.Is(err, common.ErrPipeNotFound) {
			// Publication đã bị xóa: job không còn gì để làm, không retry
			w.log.WithFields(logFields).WithError(err).
				Warn("🚀 [WORKER] Publication không còn tồn tại, bỏ qua job")
			return nil
		}
		// Lỗi đọc khác (kết nối database...) không được nuốt: trả error
		// để dispatcher retry thay vì complete job và mất lần đăng
		return err
	}
	pub := rel.Publication

	// 2. Terminal cứng: một worker khác đã xử lý xong (dequeue trùng do
	// at-least-once), tuyệt đối không đăng lại
	if pubmodels.IsHardTerminal(pub.Status) {
		w.log.WithFields(logFields).WithField("status", pub.Status).
			Info("🚀 [WORKER] Publication đã ở trạng thái terminal, bỏ qua job")
		return nil
	}

	// 3. Claim: chuyển sang publishing và gắn jobId để trace
	if _, err := w.publications.UpdateStatus(ctx, pub.ID, map[string]interface{}{
		"status": pubmodels.PublicationStatusPublishing,
		"jobId":  job.JobID,
	}); err != nil {
		return w.recordAttemptFailure(ctx, job, pub, err)
	}

	result, err := w.attemptPublish(ctx, rel)
	if err != nil {
		return w.recordAttemptFailure(ctx, job, pub, err)
	}

	// Thành công: ghi terminal markers và phát event
	now := time.Now().UnixMilli()
	if _, err := w.publications.UpdateStatus(ctx, pub.ID, map[string]interface{}{
		"status":           pubmodels.PublicationStatusPublished,
		"externalPostId":   result.ExternalPostID,
		"permalink":        result.Permalink,
		"providerResponse": result.Raw,
		"publishedAt":      now,
	}); err != nil {
		// Đăng đã thành công nhưng không ghi được kết quả — trả error để
		// retry; lần sau GetWithRelations vẫn thấy publishing nên sẽ ghi lại.
		// externalPostId có thể bị đăng trùng trong cửa sổ này, chấp nhận
		// theo semantics at-least-once.
		return w.recordAttemptFailure(ctx, job, pub, err)
	}

	w.activity.LogActivity(ctx, job.WorkspaceID, job.BrandID, pub.ID,
		activitymodels.EventPublicationPublished, map[string]interface{}{
			"externalPostId": result.ExternalPostID,
			"permalink":      result.Permalink,
			"platform":       pub.Platform,
		})

	w.log.WithFields(logFields).WithField("externalPostId", result.ExternalPostID).
		Info("🚀 [WORKER] Đăng bài thành công")
	return nil
}

// attemptPublish chuẩn bị token + payload và gọi platform client
func (w *PublishWorker) attemptPublish(ctx context.Context, rel *pubsvc.PublicationWithRelations) (*facebook.PublishResult, error) {
	pub := rel.Publication

	if rel.SocialAccount == nil {
		return nil, common.NewError(common.ErrCodePipeNotFound,
			"Publication chưa gắn social account hoặc account đã bị xóa",
			common.StatusNotFound, nil)
	}
	account := rel.SocialAccount

	payload, err := pubmodels.DecodePayload(pub.Payload)
	if err != nil {
		return nil, err
	}
	if payload.ContentType() != pub.ContentType {
		return nil, common.NewError(common.ErrCodePipeValidation,
			fmt.Sprintf("Payload contentType (%s) không khớp contentType của publication (%s)",
				payload.ContentType(), pub.ContentType),
			common.StatusBadRequest, nil)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	ensured, err := w.tokens.EnsureValid(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	return w.publisher.Publish(ctx, account.ExternalAccountID, ensured.Token, payload)
}

// recordAttemptFailure ghi thất bại của một lần thử vào publication, phát
// event publication.failed rồi trả error lại cho dispatcher (retry hay fail
// terminal là quyết định của queue, không phải của worker).
func (w *PublishWorker) recordAttemptFailure(ctx context.Context, job jobqueue.PublishJob, pub pubmodels.Publication, cause error) error {
	patch := map[string]interface{}{
		"status":       pubmodels.PublicationStatusFailed,
		"errorMessage": cause.Error(),
		"failedAt":     time.Now().UnixMilli(),
	}
	var customErr *common.Error
	if errors.As(cause, &customErr) && customErr.Details != nil {
		if details, ok := customErr.Details.(map[string]interface{}); ok {
			patch["providerResponse"] = details
		}
	}

	if _, err := w.publications.UpdateStatus(ctx, pub.ID, patch); err != nil {
		w.log.WithError(err).WithField("publicationId", pub.ID.Hex()).
			Error("🚀 [WORKER] Không ghi được trạng thái failed vào publication")
	}

	w.activity.LogActivity(ctx, job.WorkspaceID, job.BrandID, pub.ID,
		activitymodels.EventPublicationFailed, map[string]interface{}{
			"error":     cause.Error(),
			"attempt":   job.Attempt,
			"retryable": common.IsRetryable(cause),
			"platform":  pub.Platform,
		})

	return cause
}

// HandleFinalFailure được dispatcher gọi đúng một lần khi job cháy hết ngân
// sách retry: phát event có finalFailure để downstream phân biệt với các lần
// fail trung gian.
func (w *PublishWorker) HandleFinalFailure(ctx context.Context, job jobqueue.PublishJob, cause error) {
	w.activity.LogActivity(ctx, job.WorkspaceID, job.BrandID, job.PublicationID,
		activitymodels.EventPublicationFailed, map[string]interface{}{
			"error":        cause.Error(),
			"attempt":      job.Attempt,
			"finalFailure": true,
		})

	w.log.WithFields(logrus.Fields{
		"jobId":         job.JobID,
		"publicationId": job.PublicationID.Hex(),
	}).WithError(cause).Error("🚀 [WORKER] Job thất bại terminal, đã hết ngân sách retry")
}
