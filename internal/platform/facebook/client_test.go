package facebook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pubmodels "brint/internal/api/publication/models"
	"brint/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PublishPhoto(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-1/photos":
			require.NoError(t, r.ParseForm())
			gotForm = map[string]string{
				"url":          r.PostFormValue("url"),
				"caption":      r.PostFormValue("caption"),
				"access_token": r.PostFormValue("access_token"),
			}
			w.Write([]byte(`{"id":"ph-1","post_id":"page-1_post-1"}`))
		case "/page-1_post-1":
			assert.Equal(t, "permalink_url", r.URL.Query().Get("fields"))
			w.Write([]byte(`{"permalink_url":"https://facebook.com/page-1/posts/post-1"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.PublishPhoto(context.Background(), "page-1", "tok", &pubmodels.PhotoPayload{
		ImageURL: "https://cdn.example.com/a.jpg",
		Caption:  "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "page-1_post-1", result.ExternalPostID)
	assert.Equal(t, "https://facebook.com/page-1/posts/post-1", result.Permalink)
	assert.Equal(t, "https://cdn.example.com/a.jpg", gotForm["url"])
	assert.Equal(t, "hello", gotForm["caption"])
	assert.Equal(t, "tok", gotForm["access_token"])
}

func TestClient_PublishCarousel(t *testing.T) {
	uploads := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-1/photos":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "false", r.PostFormValue("published"))
			uploads++
			if uploads == 1 {
				w.Write([]byte(`{"id":"media-1"}`))
			} else {
				w.Write([]byte(`{"id":"media-2"}`))
			}
		case "/page-1/feed":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "two pics", r.PostFormValue("message"))
			assert.Equal(t, `{"media_fbid":"media-1"}`, r.PostFormValue("attached_media[0]"))
			assert.Equal(t, `{"media_fbid":"media-2"}`, r.PostFormValue("attached_media[1]"))
			w.Write([]byte(`{"id":"post-9"}`))
		case "/post-9":
			w.Write([]byte(`{"permalink_url":"https://facebook.com/post-9"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.PublishCarousel(context.Background(), "page-1", "tok", &pubmodels.CarouselPayload{
		ImageURLs: []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"},
		Caption:   "two pics",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, uploads)
	assert.Equal(t, "post-9", result.ExternalPostID)
}

func TestClient_PublishStoryTwoPhase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-1/photos":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "false", r.PostFormValue("published"))
			w.Write([]byte(`{"id":"photo-5"}`))
		case "/page-1/photo_stories":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "photo-5", r.PostFormValue("photo_id"))
			w.Write([]byte(`{"success":true,"post_id":"story-5"}`))
		case "/story-5":
			w.Write([]byte(`{"permalink_url":"https://facebook.com/stories/story-5"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.PublishStory(context.Background(), "page-1", "tok", &pubmodels.StoryPayload{
		ImageURL: "https://cdn.example.com/s.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "story-5", result.ExternalPostID)
}

func TestClient_GraphErrorBecomesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100,"error_subcode":33}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.PublishLink(context.Background(), "page-1", "tok", &pubmodels.LinkPayload{
		LinkURL: "https://example.com",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPipeProvider))

	var customErr *common.Error
	require.True(t, errors.As(err, &customErr))
	details, ok := customErr.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 100, details["providerCode"])
	assert.Equal(t, 33, details["providerSubcode"])
	assert.Equal(t, "Invalid parameter", customErr.Message)
}

func TestClient_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // đóng ngay để mô phỏng lỗi mạng

	client := NewClient(server.URL)
	_, err := client.PublishPhoto(context.Background(), "page-1", "tok", &pubmodels.PhotoPayload{
		ImageURL: "https://cdn.example.com/a.jpg",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPipeTransient))
	assert.True(t, common.IsRetryable(err))
}

func TestClient_PublishDispatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-1/feed":
			w.Write([]byte(`{"id":"post-link"}`))
		case "/post-link":
			w.Write([]byte(`{"permalink_url":"https://facebook.com/post-link"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Publish(context.Background(), "page-1", "tok", &pubmodels.LinkPayload{
		LinkURL: "https://example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "post-link", result.ExternalPostID)
}
