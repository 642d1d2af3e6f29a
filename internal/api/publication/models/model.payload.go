package models

import (
	"encoding/json"
	"fmt"

	"brint/internal/common"

	"go.mongodb.org/mongo-driver/bson"
)

// ContentType định nghĩa các loại nội dung được hỗ trợ
const (
	ContentTypePhoto    = "photo"    // Ảnh đơn
	ContentTypeCarousel = "carousel" // Nhiều ảnh trong một bài
	ContentTypeVideo    = "video"    // Video / reel
	ContentTypeLink     = "link"     // Bài chia sẻ link
	ContentTypeStory    = "story"    // Story (ảnh)
)

// Payload là union phân biệt theo contentType. Mỗi content type có một variant
// riêng; repository không diễn giải payload, chỉ client publish của platform
// tương ứng mới đọc các field bên trong.
type Payload interface {
	ContentType() string
	Validate() error

	// đảm bảo union là closed set, variant mới phải khai báo trong package này
	sealedPayload()
}

// PhotoPayload chứa nội dung bài đăng ảnh đơn
type PhotoPayload struct {
	ImageURL string `json:"imageUrl" bson:"imageUrl"`                     // URL ảnh công khai
	Caption  string `json:"caption,omitempty" bson:"caption,omitempty"` // Caption của bài đăng
}

func (*PhotoPayload) ContentType() string { return ContentTypePhoto }
func (*PhotoPayload) sealedPayload()      {}

func (p *PhotoPayload) Validate() error {
	if p.ImageURL == "" {
		return payloadFieldError("imageUrl")
	}
	return nil
}

// CarouselPayload chứa nội dung bài đăng nhiều ảnh
type CarouselPayload struct {
	ImageURLs []string `json:"imageUrls" bson:"imageUrls"`                   // Danh sách URL ảnh (2-10)
	Caption   string   `json:"caption,omitempty" bson:"caption,omitempty"` // Caption chung của bài đăng
}

func (*CarouselPayload) ContentType() string { return ContentTypeCarousel }
func (*CarouselPayload) sealedPayload()      {}

func (p *CarouselPayload) Validate() error {
	if len(p.ImageURLs) < 2 || len(p.ImageURLs) > 10 {
		return common.NewError(common.ErrCodePipeValidation,
			"Carousel cần từ 2 đến 10 ảnh", common.StatusBadRequest, nil)
	}
	for _, u := range p.ImageURLs {
		if u == "" {
			return payloadFieldError("imageUrls")
		}
	}
	return nil
}

// VideoPayload chứa nội dung bài đăng video/reel
type VideoPayload struct {
	VideoURL    string `json:"videoUrl" bson:"videoUrl"`                             // URL video công khai
	Title       string `json:"title,omitempty" bson:"title,omitempty"`             // Tiêu đề video
	Description string `json:"description,omitempty" bson:"description,omitempty"` // Mô tả video
}

func (*VideoPayload) ContentType() string { return ContentTypeVideo }
func (*VideoPayload) sealedPayload()      {}

func (p *VideoPayload) Validate() error {
	if p.VideoURL == "" {
		return payloadFieldError("videoUrl")
	}
	return nil
}

// LinkPayload chứa nội dung bài chia sẻ link
type LinkPayload struct {
	LinkURL string `json:"linkUrl" bson:"linkUrl"`                       // URL được chia sẻ
	Message string `json:"message,omitempty" bson:"message,omitempty"` // Nội dung kèm theo link
}

func (*LinkPayload) ContentType() string { return ContentTypeLink }
func (*LinkPayload) sealedPayload()      {}

func (p *LinkPayload) Validate() error {
	if p.LinkURL == "" {
		return payloadFieldError("linkUrl")
	}
	return nil
}

// StoryPayload chứa nội dung story (ảnh)
type StoryPayload struct {
	ImageURL string `json:"imageUrl" bson:"imageUrl"` // URL ảnh công khai cho story
}

func (*StoryPayload) ContentType() string { return ContentTypeStory }
func (*StoryPayload) sealedPayload()      {}

func (p *StoryPayload) Validate() error {
	if p.ImageURL == "" {
		return payloadFieldError("imageUrl")
	}
	return nil
}

func payloadFieldError(field string) error {
	return common.NewError(common.ErrCodePipeValidation,
		fmt.Sprintf("Payload thiếu field bắt buộc: %s", field),
		common.StatusBadRequest, nil)
}

// newPayloadVariant trả về variant rỗng theo contentType.
// Thêm content type mới mà quên case ở đây sẽ trả lỗi ngay tại create.
func newPayloadVariant(contentType string) (Payload, error) {
	switch contentType {
	case ContentTypePhoto:
		return &PhotoPayload{}, nil
	case ContentTypeCarousel:
		return &CarouselPayload{}, nil
	case ContentTypeVideo:
		return &VideoPayload{}, nil
	case ContentTypeLink:
		return &LinkPayload{}, nil
	case ContentTypeStory:
		return &StoryPayload{}, nil
	default:
		return nil, common.NewError(common.ErrCodePipeValidation,
			fmt.Sprintf("Content type không được hỗ trợ: %s", contentType),
			common.StatusBadRequest, nil)
	}
}

// EncodePayload serialize payload thành BSON document, kèm discriminator contentType
// để DecodePayload đọc lại đúng variant.
func EncodePayload(p Payload) (bson.Raw, error) {
	data, err := bson.Marshal(p)
	if err != nil {
		return nil, common.ErrInvalidFormat
	}

	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, common.ErrInvalidFormat
	}
	doc["contentType"] = p.ContentType()

	out, err := bson.Marshal(doc)
	if err != nil {
		return nil, common.ErrInvalidFormat
	}
	return bson.Raw(out), nil
}

// DecodePayload đọc BSON document thành variant theo discriminator contentType
func DecodePayload(raw bson.Raw) (Payload, error) {
	var head struct {
		ContentType string `bson:"contentType"`
	}
	if err := bson.Unmarshal(raw, &head); err != nil {
		return nil, common.ErrInvalidFormat
	}

	p, err := newPayloadVariant(head.ContentType)
	if err != nil {
		return nil, err
	}
	if err := bson.Unmarshal(raw, p); err != nil {
		return nil, common.ErrInvalidFormat
	}
	return p, nil
}

// UnmarshalPayloadJSON parse payload JSON từ request theo contentType đã khai báo.
// Nếu payload tự mang field contentType khác với contentType khai báo → ValidationError.
func UnmarshalPayloadJSON(contentType string, data []byte) (Payload, error) {
	var head struct {
		ContentType string `json:"contentType"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &head); err != nil {
			return nil, common.NewError(common.ErrCodePipeValidation,
				"Payload không phải JSON hợp lệ", common.StatusBadRequest, nil)
		}
	}
	if head.ContentType != "" && head.ContentType != contentType {
		return nil, common.NewError(common.ErrCodePipeValidation,
			fmt.Sprintf("Payload contentType (%s) không khớp contentType của publication (%s)",
				head.ContentType, contentType),
			common.StatusBadRequest, nil)
	}

	p, err := newPayloadVariant(contentType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, common.NewError(common.ErrCodePipeValidation,
			"Payload không đúng cấu trúc của content type", common.StatusBadRequest, nil)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
