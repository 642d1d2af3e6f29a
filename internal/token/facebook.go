// Package token giữ token của tài khoản mạng xã hội luôn dùng được:
// probe, exchange, refresh và policy chain EnsureValid cho worker.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"brint/internal/common"
)

// FacebookTokenAPI gọi các endpoint token của Graph API
type FacebookTokenAPI struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
}

// NewFacebookTokenAPI tạo API client; appID/appSecret chỉ cần cho exchange
func NewFacebookTokenAPI(baseURL, appID, appSecret string) *FacebookTokenAPI {
	return &FacebookTokenAPI{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appID:     appID,
		appSecret: appSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type graphErrorBody struct {
	Error struct {
		Message      string `json:"message"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
	} `json:"error"`
}

// getJSON gọi GET và decode; lỗi mạng trả error, lỗi Graph trả ProviderError
func (a *FacebookTokenAPI) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope graphErrorBody
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error.Message != "" {
			return common.NewProviderError(envelope.Error.Code, envelope.Error.ErrorSubcode, envelope.Error.Message)
		}
		return common.NewProviderError(0, 0, fmt.Sprintf("Graph API trả về HTTP %d", resp.StatusCode))
	}

	return json.Unmarshal(body, out)
}

// Validate probe token bằng một call nhẹ (GET /me).
// Trả (false, err) khi lỗi mạng: không coi lỗi mạng là bằng chứng token hỏng.
// Trả (false, nil) khi provider từ chối token rõ ràng.
func (a *FacebookTokenAPI) Validate(ctx context.Context, accessToken string) (bool, error) {
	query := url.Values{}
	query.Set("access_token", accessToken)
	query.Set("fields", "id")

	var out struct {
		ID string `json:"id"`
	}
	err := a.getJSON(ctx, "/me", query, &out)
	if err == nil {
		return out.ID != "", nil
	}

	var customErr *common.Error
	if errors.As(err, &customErr) && customErr.Code.Code == common.ErrCodePipeProvider.Code {
		// Provider từ chối token — invalid thật
		return false, nil
	}
	// Lỗi mạng/timeout: không kết luận được
	return false, err
}

// ExchangeForLongLived đổi short-lived user token lấy long-lived token
// (grant fb_exchange_token). Dùng ở luồng kết nối tài khoản.
func (a *FacebookTokenAPI) ExchangeForLongLived(ctx context.Context, shortLivedToken string) (string, int64, error) {
	query := url.Values{}
	query.Set("grant_type", "fb_exchange_token")
	query.Set("client_id", a.appID)
	query.Set("client_secret", a.appSecret)
	query.Set("fb_exchange_token", shortLivedToken)

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := a.getJSON(ctx, "/oauth/access_token", query, &out); err != nil {
		return "", 0, err
	}
	return out.AccessToken, out.ExpiresIn, nil
}

// RefreshFromParentToken lấy page token mới từ user token.
// Page token sinh từ long-lived user token không có hạn → expiresAt = 0.
func (a *FacebookTokenAPI) RefreshFromParentToken(ctx context.Context, parentToken, providerAccountID string) (string, int64, error) {
	query := url.Values{}
	query.Set("fields", "access_token")
	query.Set("access_token", parentToken)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := a.getJSON(ctx, "/"+providerAccountID, query, &out); err != nil {
		return "", 0, err
	}
	if out.AccessToken == "" {
		return "", 0, common.NewProviderError(0, 0, "Graph API không trả về access_token cho page")
	}
	return out.AccessToken, 0, nil
}
