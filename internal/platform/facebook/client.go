package facebook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	pubmodels "brint/internal/api/publication/models"
)

// Client là Graph API client cho một platform account (Facebook Page).
// Mỗi method đăng một content type; token truyền theo từng call vì token
// có thể được refresh giữa hai lần đăng.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient tạo client với base URL Graph API (ví dụ https://graph.facebook.com/v19.0)
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// postForm gửi POST form-encoded tới một Graph endpoint và decode response
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return transientError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transientError(err)
	}
	return readGraphResponse(resp, out)
}

// get gửi GET tới một Graph endpoint và decode response
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return transientError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transientError(err)
	}
	return readGraphResponse(resp, out)
}

// fetchPermalink lấy permalink_url của một object vừa đăng.
// Permalink chỉ phục vụ hiển thị nên lỗi ở đây không làm fail lần đăng.
func (c *Client) fetchPermalink(ctx context.Context, objectID, accessToken string) string {
	var out struct {
		PermalinkURL string `json:"permalink_url"`
	}
	query := url.Values{}
	query.Set("fields", "permalink_url")
	query.Set("access_token", accessToken)
	if err := c.get(ctx, "/"+objectID, query, &out); err != nil {
		return ""
	}
	return out.PermalinkURL
}

// Publish dispatch theo variant của payload. Switch liệt kê đủ các variant
// của union; variant mới chưa được xử lý sẽ rơi vào ProviderError thay vì
// panic giữa worker.
func (c *Client) Publish(ctx context.Context, pageID, accessToken string, payload pubmodels.Payload) (*PublishResult, error) {
	switch p := payload.(type) {
	case *pubmodels.PhotoPayload:
		return c.PublishPhoto(ctx, pageID, accessToken, p)
	case *pubmodels.CarouselPayload:
		return c.PublishCarousel(ctx, pageID, accessToken, p)
	case *pubmodels.VideoPayload:
		return c.PublishVideo(ctx, pageID, accessToken, p)
	case *pubmodels.LinkPayload:
		return c.PublishLink(ctx, pageID, accessToken, p)
	case *pubmodels.StoryPayload:
		return c.PublishStory(ctx, pageID, accessToken, p)
	default:
		return nil, fmt.Errorf("content type %s chưa được hỗ trợ trên facebook", payload.ContentType())
	}
}

// PublishPhoto đăng một ảnh đơn lên Page
func (c *Client) PublishPhoto(ctx context.Context, pageID, accessToken string, payload *pubmodels.PhotoPayload) (*PublishResult, error) {
	form := url.Values{}
	form.Set("url", payload.ImageURL)
	if payload.Caption != "" {
		form.Set("caption", payload.Caption)
	}
	form.Set("access_token", accessToken)

	var out struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := c.postForm(ctx, "/"+pageID+"/photos", form, &out); err != nil {
		return nil, err
	}

	postID := out.PostID
	if postID == "" {
		postID = out.ID
	}
	return &PublishResult{
		ExternalPostID: postID,
		Permalink:      c.fetchPermalink(ctx, postID, accessToken),
		Raw:            map[string]interface{}{"id": out.ID, "post_id": out.PostID},
	}, nil
}

// PublishCarousel đăng nhiều ảnh trong một bài: upload từng ảnh ở chế độ
// unpublished rồi tạo một feed post đính kèm toàn bộ media.
func (c *Client) PublishCarousel(ctx context.Context, pageID, accessToken string, payload *pubmodels.CarouselPayload) (*PublishResult, error) {
	mediaIDs := make([]string, 0, len(payload.ImageURLs))
	for _, imageURL := range payload.ImageURLs {
		form := url.Values{}
		form.Set("url", imageURL)
		form.Set("published", "false")
		form.Set("access_token", accessToken)

		var uploaded struct {
			ID string `json:"id"`
		}
		if err := c.postForm(ctx, "/"+pageID+"/photos", form, &uploaded); err != nil {
			return nil, err
		}
		mediaIDs = append(mediaIDs, uploaded.ID)
	}

	form := url.Values{}
	if payload.Caption != "" {
		form.Set("message", payload.Caption)
	}
	for i, mediaID := range mediaIDs {
		form.Set(fmt.Sprintf("attached_media[%d]", i),
			fmt.Sprintf(`{"media_fbid":"%s"}`, mediaID))
	}
	form.Set("access_token", accessToken)

	var out struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "/"+pageID+"/feed", form, &out); err != nil {
		return nil, err
	}

	return &PublishResult{
		ExternalPostID: out.ID,
		Permalink:      c.fetchPermalink(ctx, out.ID, accessToken),
		Raw:            map[string]interface{}{"id": out.ID, "mediaIds": mediaIDs},
	}, nil
}

// PublishVideo đăng video (reel) từ URL công khai
func (c *Client) PublishVideo(ctx context.Context, pageID, accessToken string, payload *pubmodels.VideoPayload) (*PublishResult, error) {
	form := url.Values{}
	form.Set("file_url", payload.VideoURL)
	if payload.Title != "" {
		form.Set("title", payload.Title)
	}
	if payload.Description != "" {
		form.Set("description", payload.Description)
	}
	form.Set("access_token", accessToken)

	var out struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "/"+pageID+"/videos", form, &out); err != nil {
		return nil, err
	}

	return &PublishResult{
		ExternalPostID: out.ID,
		Permalink:      c.fetchPermalink(ctx, out.ID, accessToken),
		Raw:            map[string]interface{}{"id": out.ID},
	}, nil
}

// PublishLink đăng bài chia sẻ link lên feed của Page
func (c *Client) PublishLink(ctx context.Context, pageID, accessToken string, payload *pubmodels.LinkPayload) (*PublishResult, error) {
	form := url.Values{}
	form.Set("link", payload.LinkURL)
	if payload.Message != "" {
		form.Set("message", payload.Message)
	}
	form.Set("access_token", accessToken)

	var out struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "/"+pageID+"/feed", form, &out); err != nil {
		return nil, err
	}

	return &PublishResult{
		ExternalPostID: out.ID,
		Permalink:      c.fetchPermalink(ctx, out.ID, accessToken),
		Raw:            map[string]interface{}{"id": out.ID},
	}, nil
}

// PublishStory đăng story ảnh theo hai bước: upload ảnh unpublished rồi
// gắn vào photo_stories.
func (c *Client) PublishStory(ctx context.Context, pageID, accessToken string, payload *pubmodels.StoryPayload) (*PublishResult, error) {
	form := url.Values{}
	form.Set("url", payload.ImageURL)
	form.Set("published", "false")
	form.Set("access_token", accessToken)

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "/"+pageID+"/photos", form, &uploaded); err != nil {
		return nil, err
	}

	storyForm := url.Values{}
	storyForm.Set("photo_id", uploaded.ID)
	storyForm.Set("access_token", accessToken)

	var out struct {
		Success bool   `json:"success"`
		PostID  string `json:"post_id"`
	}
	if err := c.postForm(ctx, "/"+pageID+"/photo_stories", storyForm, &out); err != nil {
		return nil, err
	}

	return &PublishResult{
		ExternalPostID: out.PostID,
		Permalink:      c.fetchPermalink(ctx, out.PostID, accessToken),
		Raw:            map[string]interface{}{"post_id": out.PostID, "photoId": uploaded.ID},
	}, nil
}
