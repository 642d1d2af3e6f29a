// Package credential mã hóa/giải mã credential blob của tài khoản mạng xã hội.
// Blob ở trạng thái rest là AES-256-GCM, nonce đứng đầu ciphertext, encode base64.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"brint/internal/common"
)

// TokenData là nội dung credential sau khi giải mã
type TokenData struct {
	Platform    string `json:"platform"`              // Platform của token: facebook, instagram
	AccessToken string `json:"accessToken"`           // OAuth access token
	TokenType   string `json:"tokenType,omitempty"`   // Loại token: page, user
	ExpiresAt   int64  `json:"expiresAt,omitempty"`   // Hạn token (Unix milli), 0 = không rõ
}

// Codec mã hóa/giải mã TokenData với key dẫn xuất từ secret cấu hình
type Codec struct {
	key []byte
}

// NewCodec tạo codec với key = sha256(secret + suffix cố định)
func NewCodec(secret string) *Codec {
	hash := sha256.Sum256([]byte(secret + "_credential_encryption_key"))
	return &Codec{key: hash[:]}
}

// Encrypt mã hóa TokenData thành base64 string
func (c *Codec) Encrypt(data TokenData) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token data: %w", err)
	}

	// Tạo AES cipher block
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	// Tạo GCM
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// Tạo nonce (12 bytes cho GCM)
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Encrypt
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	// Encode to base64
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt giải mã blob base64 thành TokenData.
// Mọi lỗi giải mã/parse đều trả CredentialsError: token không đọc được coi
// như credential hỏng, không phải lỗi hệ thống tạm thời.
func (c *Codec) Decrypt(encryptedBase64 string) (TokenData, error) {
	var zero TokenData

	// Decode base64
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedBase64)
	if err != nil {
		return zero, credentialsError("blob không phải base64 hợp lệ")
	}

	// Tạo AES cipher block
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return zero, credentialsError("không tạo được cipher")
	}

	// Tạo GCM
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return zero, credentialsError("không tạo được GCM")
	}

	// Kiểm tra độ dài
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return zero, credentialsError("ciphertext quá ngắn")
	}

	// Extract nonce và ciphertext
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	// Decrypt
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return zero, credentialsError("giải mã thất bại, key sai hoặc dữ liệu hỏng")
	}

	var data TokenData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return zero, credentialsError("nội dung credential không phải JSON hợp lệ")
	}

	return data, nil
}

// DecryptForPlatform giải mã và kiểm tra credential đúng platform mong đợi.
// Platform mismatch cũng là CredentialsError: credential gắn nhầm tài khoản.
func (c *Codec) DecryptForPlatform(encryptedBase64 string, platform string) (TokenData, error) {
	data, err := c.Decrypt(encryptedBase64)
	if err != nil {
		return TokenData{}, err
	}
	if data.Platform != platform {
		return TokenData{}, credentialsError(
			fmt.Sprintf("credential thuộc platform %s, không phải %s", data.Platform, platform))
	}
	return data, nil
}

func credentialsError(msg string) error {
	return common.NewError(common.ErrCodePipeCredentials,
		"Credential không hợp lệ: "+msg, common.StatusInternalServerError, nil)
}
