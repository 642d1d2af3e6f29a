package pubdto

import "encoding/json"

// PublicationCreateInput dữ liệu đầu vào khi tạo publication.
// Platform hiện chỉ nhận facebook: instagram chưa có platform client nên
// nhận vào sẽ enqueue lên queue không worker nào nhặt.
// TODO: mở lại instagram trong oneof khi instagram client được thêm.
type PublicationCreateInput struct {
	WorkspaceID     string          `json:"workspaceId" validate:"required"`
	BrandID         string          `json:"brandId" validate:"required"`
	SocialAccountID string          `json:"socialAccountId,omitempty" validate:"omitempty,exists=social_accounts"`
	Platform        string          `json:"platform" validate:"required,oneof=facebook"`
	ContentType     string          `json:"contentType" validate:"required,oneof=photo carousel video link story"`
	Payload         json.RawMessage `json:"payload" validate:"required"`
	ScheduledAt     int64           `json:"scheduledAt,omitempty"` // Unix milli; 0 = đăng ngay ở tick scheduler kế tiếp
	ClientRequestID string          `json:"clientRequestId,omitempty"`
}

// PublicationListQuery query params khi liệt kê publications theo brand
type PublicationListQuery struct {
	Status   string `query:"status" validate:"omitempty,oneof=draft scheduled publishing published failed cancelled"`
	Platform string `query:"platform" validate:"omitempty,oneof=facebook instagram"`
	Limit    int64  `query:"limit"`
	Cursor   string `query:"cursor"`
}
