// Package jobqueue triển khai hàng đợi publish job trên MongoDB:
// enqueue, dequeue nguyên tử theo trạng thái, retry với backoff lũy thừa
// và dispatcher chạy worker với concurrency giới hạn.
package jobqueue

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobStatus định nghĩa trạng thái của một publish job trong queue
const (
	JobStatusPending    = "pending"    // Chờ xử lý (hoặc chờ đến lượt retry)
	JobStatusProcessing = "processing" // Đang được một worker xử lý
	JobStatusCompleted  = "completed"  // Xử lý xong (chỉ tồn tại khi không bật removeOnComplete)
	JobStatusFailed     = "failed"     // Hết ngân sách retry, giữ lại để điều tra
)

// QueueName trả về tên queue của một platform, mỗi platform một hàng đợi
// riêng để concurrency và backpressure không lẫn nhau.
func QueueName(platform string) string {
	return "publish:" + platform
}

// PublishJob là một đơn vị công việc trong hàng đợi đăng bài.
// Semantics là at-least-once: job có thể được giao lại cho worker khác
// nếu worker trước chết giữa chừng, nên phía xử lý phải idempotent.
type PublishJob struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	// JobID là định danh ổn định của job, được ghi ngược vào publication
	// để trace từ bài đăng sang job.
	JobID string `json:"jobId" bson:"jobId" index:"single:1"`

	// Queue là tên hàng đợi, mỗi platform một queue (ví dụ "publish:facebook")
	Queue string `json:"queue" bson:"queue" index:"single:1"`

	// ===== PAYLOAD =====
	PublicationID primitive.ObjectID `json:"publicationId" bson:"publicationId" index:"single:1"` // Bài đăng cần xử lý
	WorkspaceID   primitive.ObjectID `json:"workspaceId" bson:"workspaceId"`                      // Workspace sở hữu
	BrandID       primitive.ObjectID `json:"brandId" bson:"brandId"`                              // Brand sở hữu

	// ===== TRẠNG THÁI XỬ LÝ =====
	Status      string `json:"status" bson:"status" index:"single:1"`                    // pending, processing, completed, failed
	Attempt     int    `json:"attempt" bson:"attempt"`                                   // Số lần đã thử (tăng sau mỗi lần fail)
	MaxAttempts int    `json:"maxAttempts" bson:"maxAttempts"`                           // Ngân sách retry
	NextRetryAt int64  `json:"nextRetryAt,omitempty" bson:"nextRetryAt,omitempty" index:"single:1"` // Thời điểm sớm nhất được dequeue lại (Unix milli), 0 = ngay lập tức
	LastError   string `json:"lastError,omitempty" bson:"lastError,omitempty"`           // Lỗi của lần thử gần nhất
	StartedAt   int64  `json:"startedAt,omitempty" bson:"startedAt,omitempty"`           // Thời điểm worker nhận job (Unix milli), dùng để phát hiện job kẹt

	// ===== TIMESTAMPS =====
	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single:1"` // Thời gian tạo (Unix milli)
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`                  // Thời gian cập nhật cuối (Unix milli)
}
