package socialsvc

import (
	"context"
	"fmt"
	"time"

	basesvc "brint/internal/api/base/service"
	socialmodels "brint/internal/api/social/models"
	"brint/internal/common"
	"brint/internal/global"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SocialAccountService là service quản lý các tài khoản mạng xã hội đã kết nối
type SocialAccountService struct {
	*basesvc.BaseServiceMongoImpl[socialmodels.SocialAccount]
}

// NewSocialAccountService tạo mới SocialAccountService
func NewSocialAccountService() (*SocialAccountService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.SocialAccounts)
	if !exist {
		return nil, fmt.Errorf("failed to get social_accounts collection: %v", common.ErrNotFound)
	}

	return &SocialAccountService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[socialmodels.SocialAccount](collection),
	}, nil
}

// UpdateCredentials cập nhật credential blob mới và bookkeeping token sau khi refresh
func (s *SocialAccountService) UpdateCredentials(ctx context.Context, id primitive.ObjectID, encryptedCredentials string, tokenExpiresAt int64) (socialmodels.SocialAccount, error) {
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"credentials":     encryptedCredentials,
			"tokenExpiresAt":  tokenExpiresAt,
			"status":          socialmodels.SocialAccountStatusActive,
			"lastValidatedAt": time.Now().UnixMilli(),
		},
	}
	return s.UpdateOne(ctx, map[string]interface{}{"_id": id}, update, nil)
}

// MarkValidated ghi nhận lần probe token thành công gần nhất
func (s *SocialAccountService) MarkValidated(ctx context.Context, id primitive.ObjectID) (socialmodels.SocialAccount, error) {
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"lastValidatedAt": time.Now().UnixMilli(),
			"status":          socialmodels.SocialAccountStatusActive,
		},
	}
	return s.UpdateOne(ctx, map[string]interface{}{"_id": id}, update, nil)
}

// MarkExpired đánh dấu tài khoản hết hạn token kèm lý do (thường là lỗi
// provider khi refresh thất bại), user phải kết nối lại
func (s *SocialAccountService) MarkExpired(ctx context.Context, id primitive.ObjectID, reason string) (socialmodels.SocialAccount, error) {
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"status":    socialmodels.SocialAccountStatusExpired,
			"lastError": reason,
		},
	}
	return s.UpdateOne(ctx, map[string]interface{}{"_id": id}, update, nil)
}
