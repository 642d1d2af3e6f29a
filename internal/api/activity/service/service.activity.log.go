package activitysvc

import (
	"context"
	"fmt"
	"time"

	activitymodels "brint/internal/api/activity/models"
	basesvc "brint/internal/api/base/service"
	"brint/internal/common"
	"brint/internal/global"
	"brint/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityLogService là service ghi activity log append-only cho pipeline
type ActivityLogService struct {
	*basesvc.BaseServiceMongoImpl[activitymodels.ActivityLog]
}

// NewActivityLogService tạo mới ActivityLogService
func NewActivityLogService() (*ActivityLogService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.ActivityLogs)
	if !exist {
		return nil, fmt.Errorf("failed to get activity_logs collection: %v", common.ErrNotFound)
	}

	return &ActivityLogService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[activitymodels.ActivityLog](collection),
	}, nil
}

// LogActivity ghi một event theo kiểu fire-and-forget: lỗi ghi log chỉ được
// log lại chứ không bao giờ trả về cho caller, để luồng đăng bài không bị
// fail vì audit.
func (s *ActivityLogService) LogActivity(ctx context.Context, workspaceID, brandID, publicationID primitive.ObjectID, eventType string, metadata map[string]interface{}) {
	entry := activitymodels.ActivityLog{
		WorkspaceID:   workspaceID,
		BrandID:       brandID,
		PublicationID: publicationID,
		EventType:     eventType,
		ActorType:     "system",
		Source:        "worker",
		Metadata:      metadata,
		CreatedAt:     time.Now().UnixMilli(),
	}

	if _, err := s.InsertOne(ctx, entry); err != nil {
		logger.GetAuditLogger().WithError(err).WithFields(map[string]interface{}{
			"eventType":     eventType,
			"publicationId": publicationID.Hex(),
		}).Warn("📝 [ACTIVITY] Ghi activity log thất bại, bỏ qua")
	}
}
