// Package facebook gọi Facebook Graph API để đăng nội dung lên Page.
// Client chỉ dịch payload thành request và chuẩn hóa kết quả, không bao giờ
// đụng vào repository.
package facebook

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"brint/internal/common"
)

// PublishResult là kết quả chuẩn hóa sau khi đăng thành công
type PublishResult struct {
	ExternalPostID string                 `json:"externalPostId"` // ID bài đăng trên Facebook
	Permalink      string                 `json:"permalink"`      // Link công khai tới bài đăng
	Raw            map[string]interface{} `json:"raw,omitempty"`  // Response thô từ Graph API (chẩn đoán)
}

// graphErrorBody là envelope lỗi chuẩn của Graph API
type graphErrorBody struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
	} `json:"error"`
}

// decodeGraphError đọc body lỗi Graph API và trả ProviderError có code/subcode
// gốc của provider; body không parse được thì vẫn là ProviderError với message thô.
func decodeGraphError(statusCode int, body []byte) error {
	var envelope graphErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return common.NewProviderError(envelope.Error.Code, envelope.Error.ErrorSubcode, envelope.Error.Message)
	}
	return common.NewProviderError(0, 0, fmt.Sprintf("Graph API trả về HTTP %d", statusCode))
}

// transientError bọc lỗi mạng/timeout thành TransientError để dispatcher retry
func transientError(err error) error {
	return common.NewError(common.ErrCodePipeTransient,
		fmt.Sprintf("Lỗi mạng khi gọi Graph API: %v", err),
		common.StatusGatewayTimeout, nil)
}

// readGraphResponse đọc response: 2xx decode vào out, ngoài ra trả ProviderError
func readGraphResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transientError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeGraphError(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return common.NewProviderError(0, 0, "Graph API trả về body không phải JSON")
		}
	}
	return nil
}
