package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	socialmodels "brint/internal/api/social/models"
	"brint/internal/common"
	"brint/internal/credential"
	"brint/internal/logger"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FreshnessLookahead là cửa sổ nhìn trước: token còn hạn dưới ngưỡng này
// được coi là sắp hết hạn và cần refresh.
const FreshnessLookahead = 7 * 24 * time.Hour

// ProviderTokenAPI là phần contract platform mà EnsureValid cần
type ProviderTokenAPI interface {
	Validate(ctx context.Context, accessToken string) (bool, error)
	RefreshFromParentToken(ctx context.Context, parentToken, providerAccountID string) (string, int64, error)
}

// AccountStore là phần contract của social account service mà token service cần
type AccountStore interface {
	FindOneById(ctx context.Context, id primitive.ObjectID) (socialmodels.SocialAccount, error)
	UpdateCredentials(ctx context.Context, id primitive.ObjectID, encryptedCredentials string, tokenExpiresAt int64) (socialmodels.SocialAccount, error)
	MarkValidated(ctx context.Context, id primitive.ObjectID) (socialmodels.SocialAccount, error)
	MarkExpired(ctx context.Context, id primitive.ObjectID, reason string) (socialmodels.SocialAccount, error)
}

// EnsureResult là kết quả của EnsureValid
type EnsureResult struct {
	Token        string // Access token để đăng bài
	WasRefreshed bool   // true nếu token vừa được refresh
}

// Service giữ token của social account luôn dùng được cho worker.
// Chính sách "optimistic reuse, pessimistic bookkeeping": thiên về thử đăng
// thật thay vì chặn trước, nhưng mọi vấn đề phát hiện được đều ghi lại.
type Service struct {
	accounts AccountStore
	api      ProviderTokenAPI
	codec    *credential.Codec
	log      *logrus.Logger
}

// NewService tạo token service
func NewService(accounts AccountStore, api ProviderTokenAPI, codec *credential.Codec) *Service {
	return &Service{
		accounts: accounts,
		api:      api,
		codec:    codec,
		log:      logger.GetWorkerLogger(),
	}
}

// IsExpiredOrExpiringSoon kiểm tra token có nằm trong cửa sổ lookahead không.
// expiresAt = 0 (không rõ hạn) → coi như token dài hạn, không cần refresh.
func IsExpiredOrExpiringSoon(tokenExpiresAt int64, now time.Time) bool {
	if tokenExpiresAt == 0 {
		return false
	}
	return tokenExpiresAt <= now.Add(FreshnessLookahead).UnixMilli()
}

// isHardExpired: token đã quá hạn thật sự (không chỉ sắp hết hạn)
func isHardExpired(tokenExpiresAt int64, now time.Time) bool {
	return tokenExpiresAt != 0 && tokenExpiresAt <= now.UnixMilli()
}

// EnsureValid là entry point duy nhất worker gọi trước khi đăng.
// Policy theo thứ tự ưu tiên:
//  1. Chưa sắp hết hạn: probe token; probe ok → dùng luôn. Probe lỗi/fail →
//     vẫn dùng token cũ (một hiccup validation không được chặn lần đăng
//     nhiều khả năng vẫn thành công).
//  2. Sắp hết hạn nhưng không có parent token: chưa quá hạn cứng thì vẫn
//     dùng token cũ; đã quá hạn cứng → ReauthRequired.
//  3. Có parent token: refresh, persist token/hạn mới + status=active.
//  4. Refresh thất bại: chưa quá hạn cứng thì dùng token cũ (log warning);
//     quá hạn cứng thì persist status=expired nhưng VẪN trả token cũ —
//     worker cứ thử đăng, provider từ chối mới là tín hiệu chính thức.
func (s *Service) EnsureValid(ctx context.Context, accountID primitive.ObjectID) (EnsureResult, error) {
	var zero EnsureResult

	account, err := s.accounts.FindOneById(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, common.ErrPipeNotFound
		}
		// Lỗi đọc tạm thời giữ nguyên để caller retry
		return zero, err
	}

	data, err := s.codec.DecryptForPlatform(account.Credentials, account.Platform)
	if err != nil {
		return zero, err
	}

	now := time.Now()
	logFields := logrus.Fields{
		"accountId": accountID.Hex(),
		"platform":  account.Platform,
	}

	// 1. Token chưa sắp hết hạn: probe rồi dùng lại
	if !IsExpiredOrExpiringSoon(account.TokenExpiresAt, now) {
		valid, verr := s.api.Validate(ctx, data.AccessToken)
		if verr == nil && valid {
			s.accounts.MarkValidated(ctx, accountID)
			return EnsureResult{Token: data.AccessToken}, nil
		}
		if verr != nil {
			s.log.WithFields(logFields).WithError(verr).
				Warn("🔑 [TOKEN] Probe token lỗi mạng, dùng lại token hiện tại")
		} else {
			s.log.WithFields(logFields).
				Warn("🔑 [TOKEN] Provider báo token không hợp lệ nhưng token chưa sắp hết hạn, vẫn thử dùng")
		}
		return EnsureResult{Token: data.AccessToken}, nil
	}

	hardExpired := isHardExpired(account.TokenExpiresAt, now)

	// 2. Không có parent token để refresh
	parentBlob := account.ParentCredentials
	var parentToken string
	if parentBlob != "" {
		parent, derr := s.codec.DecryptForPlatform(parentBlob, account.Platform)
		if derr != nil {
			s.log.WithFields(logFields).WithError(derr).
				Warn("🔑 [TOKEN] Parent credential không giải mã được, coi như không có")
		} else {
			parentToken = parent.AccessToken
		}
	}
	if parentToken == "" {
		if !hardExpired {
			s.log.WithFields(logFields).
				Warn("🔑 [TOKEN] Token sắp hết hạn nhưng không có parent token, dùng lại token hiện tại")
			return EnsureResult{Token: data.AccessToken}, nil
		}
		s.accounts.MarkExpired(ctx, accountID,
			"Token đã hết hạn và không có parent token để refresh")
		return zero, common.NewError(common.ErrCodePipeReauthRequired,
			"Token đã hết hạn và không có parent token để refresh, cần kết nối lại tài khoản",
			common.StatusBadRequest, nil)
	}

	// 3. Refresh từ parent token
	newToken, newExpiresAt, rerr := s.api.RefreshFromParentToken(ctx, parentToken, account.ExternalAccountID)
	if rerr != nil {
		// 4. Refresh thất bại
		if !hardExpired {
			s.log.WithFields(logFields).WithError(rerr).
				Warn("🔑 [TOKEN] Refresh thất bại, token chưa quá hạn cứng nên dùng lại token cũ")
			return EnsureResult{Token: data.AccessToken}, nil
		}
		s.log.WithFields(logFields).WithError(rerr).
			Error("🔑 [TOKEN] Refresh thất bại và token đã quá hạn, đánh dấu expired nhưng vẫn thử đăng")
		// Giữ lại lỗi provider (kèm mã lỗi) trên account để chẩn đoán
		s.accounts.MarkExpired(ctx, accountID, rerr.Error())
		return EnsureResult{Token: data.AccessToken}, nil
	}

	blob, err := s.codec.Encrypt(credential.TokenData{
		Platform:    account.Platform,
		AccessToken: newToken,
		TokenType:   "page",
		ExpiresAt:   newExpiresAt,
	})
	if err != nil {
		return zero, fmt.Errorf("failed to encrypt refreshed token: %w", err)
	}

	if _, err := s.accounts.UpdateCredentials(ctx, accountID, blob, newExpiresAt); err != nil {
		return zero, err
	}

	s.log.WithFields(logFields).Info("🔑 [TOKEN] Đã refresh token thành công")
	return EnsureResult{Token: newToken, WasRefreshed: true}, nil
}
