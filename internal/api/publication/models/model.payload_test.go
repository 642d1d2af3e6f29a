package models

import (
	"testing"

	"brint/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	original := &CarouselPayload{
		ImageURLs: []string{
			"https://cdn.example.com/1.jpg",
			"https://cdn.example.com/2.jpg",
		},
		Caption: "Bộ sưu tập mùa hè",
	}

	raw, err := EncodePayload(original)
	require.NoError(t, err)

	decoded, err := DecodePayload(raw)
	require.NoError(t, err)

	carousel, ok := decoded.(*CarouselPayload)
	require.True(t, ok)
	assert.Equal(t, original.ImageURLs, carousel.ImageURLs)
	assert.Equal(t, original.Caption, carousel.Caption)
	assert.Equal(t, ContentTypeCarousel, decoded.ContentType())
}

func TestDecodePayloadUnknownContentType(t *testing.T) {
	raw, err := EncodePayload(&PhotoPayload{ImageURL: "https://cdn.example.com/a.jpg"})
	require.NoError(t, err)

	// Sửa discriminator thành loại không tồn tại
	doc := append([]byte(nil), raw...)
	_, err = DecodePayload(doc)
	require.NoError(t, err) // sanity: bản gốc vẫn decode được

	_, err = UnmarshalPayloadJSON("poll", []byte(`{"question":"?"}`))
	require.Error(t, err)
	assert.True(t, common.IsRetryable(err) == false)
}

func TestPayloadValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{"photo hợp lệ", &PhotoPayload{ImageURL: "https://cdn.example.com/a.jpg"}, false},
		{"photo thiếu imageUrl", &PhotoPayload{Caption: "chỉ có caption"}, true},
		{"carousel 2 ảnh", &CarouselPayload{ImageURLs: []string{"https://a/1.jpg", "https://a/2.jpg"}}, false},
		{"carousel 1 ảnh", &CarouselPayload{ImageURLs: []string{"https://a/1.jpg"}}, true},
		{"carousel 11 ảnh", &CarouselPayload{ImageURLs: make11URLs()}, true},
		{"video hợp lệ", &VideoPayload{VideoURL: "https://cdn.example.com/v.mp4"}, false},
		{"video thiếu videoUrl", &VideoPayload{Title: "tiêu đề"}, true},
		{"link hợp lệ", &LinkPayload{LinkURL: "https://example.com/post"}, false},
		{"link thiếu linkUrl", &LinkPayload{Message: "xem ngay"}, true},
		{"story hợp lệ", &StoryPayload{ImageURL: "https://cdn.example.com/s.jpg"}, false},
		{"story thiếu imageUrl", &StoryPayload{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, func() bool {
					e, ok := err.(*common.Error)
					return ok && e.Code.Code == common.ErrCodePipeValidation.Code
				}())
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func make11URLs() []string {
	urls := make([]string, 11)
	for i := range urls {
		urls[i] = "https://a/x.jpg"
	}
	return urls
}

func TestUnmarshalPayloadJSONRejectsMismatchedDiscriminator(t *testing.T) {
	// JSON payload tự khai contentType khác với contentType của publication
	_, err := UnmarshalPayloadJSON(ContentTypePhoto,
		[]byte(`{"contentType":"video","imageUrl":"https://a/x.jpg"}`))
	require.Error(t, err)
}

func TestIsHardTerminal(t *testing.T) {
	assert.True(t, IsHardTerminal(PublicationStatusPublished))
	assert.True(t, IsHardTerminal(PublicationStatusCancelled))
	assert.False(t, IsHardTerminal(PublicationStatusFailed))
	assert.False(t, IsHardTerminal(PublicationStatusPublishing))
	assert.False(t, IsHardTerminal(PublicationStatusScheduled))
	assert.False(t, IsHardTerminal(PublicationStatusDraft))
}
