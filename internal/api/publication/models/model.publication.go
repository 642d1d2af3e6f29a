package models

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicationStatus định nghĩa trạng thái của publication
const (
	PublicationStatusDraft      = "draft"      // Mới tạo, chưa lên lịch
	PublicationStatusScheduled  = "scheduled"  // Đã lên lịch hoặc đã enqueue
	PublicationStatusPublishing = "publishing" // Worker đang xử lý
	PublicationStatusPublished  = "published"  // Đã đăng thành công (terminal cứng)
	PublicationStatusFailed     = "failed"     // Hết retry hoặc lỗi terminal
	PublicationStatusCancelled  = "cancelled"  // Bị hủy thủ công (terminal cứng)
)

// Platform được hỗ trợ
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

// IsHardTerminal kiểm tra trạng thái terminal cứng: worker gặp job trỏ tới
// publication ở trạng thái này thì bỏ qua, không được đăng lại.
func IsHardTerminal(status string) bool {
	return status == PublicationStatusPublished || status == PublicationStatusCancelled
}

// Publication đại diện cho một lần đăng nội dung lên một tài khoản mạng xã hội
type Publication struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của publication

	// ===== OWNERSHIP =====
	WorkspaceID     primitive.ObjectID  `json:"workspaceId" bson:"workspaceId" index:"compound:wbr_clientrequest_unique"` // Workspace sở hữu
	BrandID         primitive.ObjectID  `json:"brandId" bson:"brandId" index:"single:1;compound:wbr_clientrequest_unique"` // Brand sở hữu
	SocialAccountID *primitive.ObjectID `json:"socialAccountId,omitempty" bson:"socialAccountId,omitempty"`                        // Tài khoản đích (có thể chưa gán khi còn draft)

	// ===== CLASSIFICATION =====
	Platform    string `json:"platform" bson:"platform" index:"single:1"` // Platform: facebook, instagram
	ContentType string `json:"contentType" bson:"contentType"`            // photo, carousel, video, link, story

	// ===== CONTENT =====
	// Payload là BSON document của variant tương ứng (xem model.payload.go).
	// Repository không diễn giải; decode bằng DecodePayload khi cần.
	Payload bson.Raw `json:"payload" bson:"payload"`

	// ===== SCHEDULING =====
	ScheduledAt int64 `json:"scheduledAt,omitempty" bson:"scheduledAt,omitempty" index:"single:1"` // Thời điểm đăng theo lịch (Unix milli), 0 = đăng ngay khi được nhặt

	// ===== STATUS =====
	Status string `json:"status" bson:"status" index:"single:1"` // Trạng thái (xem state machine)
	JobID  string `json:"jobId,omitempty" bson:"jobId,omitempty"` // ID của job queue đang xử lý publication này

	// ===== IDEMPOTENCY =====
	// ClientRequestID cùng (workspaceId, brandId) là khóa idempotency. Index
	// unique partial chỉ áp cho document có clientRequestId: publication không
	// dùng idempotency không được chiếm slot null trong index.
	ClientRequestID string `json:"clientRequestId,omitempty" bson:"clientRequestId,omitempty" index:"compound:wbr_clientrequest_unique,partial"`

	// ===== TERMINAL MARKERS =====
	ExternalPostID   string                 `json:"externalPostId,omitempty" bson:"externalPostId,omitempty"`     // ID bài đăng trên platform
	Permalink        string                 `json:"permalink,omitempty" bson:"permalink,omitempty"`               // Link công khai tới bài đăng
	ProviderResponse map[string]interface{} `json:"providerResponse,omitempty" bson:"providerResponse,omitempty"` // Response chẩn đoán từ provider
	ErrorMessage     string                 `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`         // Thông báo lỗi cuối cùng
	PublishedAt      int64                  `json:"publishedAt,omitempty" bson:"publishedAt,omitempty"`           // Thời điểm đăng thành công (Unix milli)
	FailedAt         int64                  `json:"failedAt,omitempty" bson:"failedAt,omitempty"`                 // Thời điểm thất bại terminal (Unix milli)

	// ===== TIMESTAMPS =====
	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single:1,order:-1"` // Thời gian tạo (Unix milli)
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`                            // Thời gian cập nhật cuối (Unix milli)
}
