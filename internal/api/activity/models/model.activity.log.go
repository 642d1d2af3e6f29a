package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType của activity log trong pipeline đăng bài
const (
	EventPublicationPublished = "publication.published" // Đăng thành công
	EventPublicationFailed    = "publication.failed"    // Một attempt thất bại (hoặc thất bại terminal, xem metadata.finalFailure)
)

// ActivityLog là bản ghi append-only về các sự kiện của pipeline.
// Không bao giờ update hay delete; ghi lỗi cũng không được làm fail luồng đăng.
type ActivityLog struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của bản ghi

	WorkspaceID   primitive.ObjectID `json:"workspaceId" bson:"workspaceId" index:"single:1"`       // Workspace liên quan
	BrandID       primitive.ObjectID `json:"brandId" bson:"brandId" index:"single:1"`               // Brand liên quan
	PublicationID primitive.ObjectID `json:"publicationId" bson:"publicationId" index:"single:1"` // Publication liên quan

	EventType string `json:"eventType" bson:"eventType" index:"single:1"` // publication.published, publication.failed
	ActorType string `json:"actorType" bson:"actorType"`                  // "system" với event từ worker
	Source    string `json:"source" bson:"source"`                        // "worker"

	// Metadata tùy theo event: externalPostId, permalink, error, attempt, finalFailure...
	Metadata map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single:1,order:-1"` // Thời gian ghi (Unix milli)
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`                            // Giữ cho đồng nhất schema, không dùng
}
