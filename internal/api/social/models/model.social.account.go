package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SocialAccountStatus định nghĩa trạng thái kết nối của tài khoản
const (
	SocialAccountStatusActive  = "active"  // Token còn dùng được
	SocialAccountStatusExpired = "expired" // Token hết hạn, cần user kết nối lại
)

// SocialAccount đại diện cho một tài khoản mạng xã hội đã kết nối (ví dụ Facebook Page)
type SocialAccount struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của tài khoản

	// ===== OWNERSHIP =====
	WorkspaceID primitive.ObjectID `json:"workspaceId" bson:"workspaceId" index:"single:1"` // Workspace sở hữu
	BrandID     primitive.ObjectID `json:"brandId" bson:"brandId" index:"single:1"`         // Brand sở hữu

	// ===== PLATFORM =====
	Platform          string `json:"platform" bson:"platform"`                              // facebook, instagram
	Name              string `json:"name" bson:"name"`                                      // Tên hiển thị (tên Page)
	ExternalAccountID string `json:"externalAccountId" bson:"externalAccountId" index:"single:1"` // ID tài khoản trên platform (Page ID)

	// ===== CREDENTIALS =====
	// Credentials là blob TokenData đã mã hóa (base64), chỉ credential codec đọc được.
	Credentials string `json:"-" bson:"credentials"`
	// ParentCredentials là blob user token đã mã hóa, dùng để refresh page token.
	// Rỗng nếu user token không được lưu.
	ParentCredentials string `json:"-" bson:"parentCredentials,omitempty"`

	// ===== TOKEN BOOKKEEPING =====
	TokenExpiresAt  int64  `json:"tokenExpiresAt,omitempty" bson:"tokenExpiresAt,omitempty"` // Hạn token (Unix milli), 0 = không rõ, coi như dài hạn
	Status          string `json:"status" bson:"status"`                                     // active, expired
	LastValidatedAt int64  `json:"lastValidatedAt,omitempty" bson:"lastValidatedAt,omitempty"` // Lần probe token thành công gần nhất (Unix milli)
	LastError       string `json:"lastError,omitempty" bson:"lastError,omitempty"`             // Lỗi provider gần nhất khiến account bị đánh dấu expired

	// ===== TIMESTAMPS =====
	CreatedAt int64 `json:"createdAt" bson:"createdAt"` // Thời gian tạo (Unix milli)
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"` // Thời gian cập nhật cuối (Unix milli)
}
