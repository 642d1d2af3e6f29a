package pubsvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	basesvc "brint/internal/api/base/service"
	brandmodels "brint/internal/api/brand/models"
	brandsvc "brint/internal/api/brand/service"
	pubmodels "brint/internal/api/publication/models"
	socialmodels "brint/internal/api/social/models"
	socialsvc "brint/internal/api/social/service"
	"brint/internal/common"
	"brint/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PublicationService là service quản lý publications
type PublicationService struct {
	*basesvc.BaseServiceMongoImpl[pubmodels.Publication]

	socialAccountService *socialsvc.SocialAccountService
	brandService         *brandsvc.BrandService
	workspaceService     *brandsvc.WorkspaceService
}

// NewPublicationService tạo mới PublicationService
func NewPublicationService() (*PublicationService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Publications)
	if !exist {
		return nil, fmt.Errorf("failed to get publications collection: %v", common.ErrNotFound)
	}

	socialAccountService, err := socialsvc.NewSocialAccountService()
	if err != nil {
		return nil, err
	}
	brandService, err := brandsvc.NewBrandService()
	if err != nil {
		return nil, err
	}
	workspaceService, err := brandsvc.NewWorkspaceService()
	if err != nil {
		return nil, err
	}

	return &PublicationService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[pubmodels.Publication](collection),
		socialAccountService: socialAccountService,
		brandService:         brandService,
		workspaceService:     workspaceService,
	}, nil
}

// Create tạo publication mới sau khi kiểm tra payload khớp contentType.
// Payload được decode và validate trước khi ghi; mismatch → ValidationError,
// không có row nào được persist.
func (s *PublicationService) Create(ctx context.Context, pub pubmodels.Publication) (pubmodels.Publication, error) {
	var zero pubmodels.Publication

	payload, err := pubmodels.DecodePayload(pub.Payload)
	if err != nil {
		return zero, err
	}
	if payload.ContentType() != pub.ContentType {
		return zero, common.NewError(common.ErrCodePipeValidation,
			fmt.Sprintf("Payload contentType (%s) không khớp contentType của publication (%s)",
				payload.ContentType(), pub.ContentType),
			common.StatusBadRequest, nil)
	}
	if err := payload.Validate(); err != nil {
		return zero, err
	}

	if pub.Status == "" {
		pub.Status = pubmodels.PublicationStatusDraft
	}

	// Unique sparse index trên (workspaceId, brandId, clientRequestId) chặn
	// race giữa hai request idempotency cùng lúc; ErrDuplicate cho caller
	// tự xử lý bằng FindByClientRequestID.
	return s.InsertOne(ctx, pub)
}

// UpdateStatus cập nhật partial các field trạng thái/terminal của publication.
// Chỉ whitelist field trạng thái được đi qua đây, không bao giờ đụng vào
// content/payload. Trả ErrNotFound nếu publication không còn tồn tại.
func (s *PublicationService) UpdateStatus(ctx context.Context, id primitive.ObjectID, patch map[string]interface{}) (pubmodels.Publication, error) {
	var zero pubmodels.Publication

	allowed := map[string]bool{
		"status":           true,
		"jobId":            true,
		"externalPostId":   true,
		"permalink":        true,
		"providerResponse": true,
		"errorMessage":     true,
		"publishedAt":      true,
		"failedAt":         true,
		"scheduledAt":      true,
	}
	set := map[string]interface{}{}
	for k, v := range patch {
		if !allowed[k] {
			return zero, common.NewError(common.ErrCodeBusinessOperation,
				fmt.Sprintf("Field %s không được phép cập nhật qua updateStatus", k),
				common.StatusBadRequest, nil)
		}
		set[k] = v
	}

	return s.UpdateOne(ctx, bson.M{"_id": id}, &basesvc.UpdateData{Set: set}, nil)
}

// PublicationWithRelations gom publication cùng các bản ghi liên quan cho worker:
// một lần đọc duy nhất trước khi đăng.
type PublicationWithRelations struct {
	Publication   pubmodels.Publication
	SocialAccount *socialmodels.SocialAccount
	Brand         *brandmodels.Brand
	Workspace     *brandmodels.Workspace
}

// GetWithRelations đọc publication kèm socialAccount, brand và workspace.
// Publication không tồn tại → ErrPipeNotFound; các quan hệ thiếu thì để nil
// cho caller quyết định.
func (s *PublicationService) GetWithRelations(ctx context.Context, id primitive.ObjectID) (*PublicationWithRelations, error) {
	pub, err := s.FindOne(ctx, bson.M{"_id": id}, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrPipeNotFound
		}
		return nil, err
	}

	result := &PublicationWithRelations{Publication: pub}

	if pub.SocialAccountID != nil {
		account, err := s.socialAccountService.FindOne(ctx, bson.M{"_id": *pub.SocialAccountID}, nil)
		if err == nil {
			result.SocialAccount = &account
		}
	}

	brand, err := s.brandService.FindOne(ctx, bson.M{"_id": pub.BrandID}, nil)
	if err == nil {
		result.Brand = &brand
		workspace, err := s.workspaceService.FindOne(ctx, bson.M{"_id": brand.WorkspaceID}, nil)
		if err == nil {
			result.Workspace = &workspace
		}
	}

	return result, nil
}

// FindByClientRequestID tìm publication theo khóa idempotency.
// Trả ErrNotFound nếu chưa có request nào dùng clientRequestId này.
func (s *PublicationService) FindByClientRequestID(ctx context.Context, workspaceID, brandID primitive.ObjectID, clientRequestID string) (pubmodels.Publication, error) {
	return s.FindOne(ctx, bson.M{
		"workspaceId":     workspaceID,
		"brandId":         brandID,
		"clientRequestId": clientRequestID,
	}, nil)
}

// listCursor là nội dung cursor keyset, encode base64 để client coi như opaque
type listCursor struct {
	CreatedAt int64  `json:"c"`
	ID        string `json:"i"`
}

func encodeCursor(c listCursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(s string) (*listCursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, common.NewError(common.ErrCodeValidationFormat,
			"Cursor không hợp lệ", common.StatusBadRequest, nil)
	}
	var c listCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, common.NewError(common.ErrCodeValidationFormat,
			"Cursor không hợp lệ", common.StatusBadRequest, nil)
	}
	return &c, nil
}

// ListPage là một trang kết quả keyset pagination
type ListPage struct {
	Items      []pubmodels.Publication `json:"items"`
	NextCursor string                  `json:"nextCursor,omitempty"`
}

// brandListFilter dựng filter liệt kê theo brand: status/platform optional,
// cursor keyset (nếu có) giới hạn về các document đứng sau vị trí cũ.
func brandListFilter(brandID primitive.ObjectID, status, platform, cursor string) (bson.M, error) {
	filter := bson.M{"brandId": brandID}
	if status != "" {
		filter["status"] = status
	}
	if platform != "" {
		filter["platform"] = platform
	}

	if cursor != "" {
		c, err := decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		lastID, err := primitive.ObjectIDFromHex(c.ID)
		if err != nil {
			return nil, common.NewError(common.ErrCodeValidationFormat,
				"Cursor không hợp lệ", common.StatusBadRequest, nil)
		}
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$lt": c.CreatedAt}},
			bson.M{"createdAt": c.CreatedAt, "_id": bson.M{"$lt": lastID}},
		}
	}

	return filter, nil
}

// ListByBrand liệt kê publications của một brand, keyset pagination theo
// (createdAt desc, _id desc). Cursor opaque; trang cuối có NextCursor rỗng.
// Keyset thay vì skip/limit để trang sâu không quét lại từ đầu collection.
func (s *PublicationService) ListByBrand(ctx context.Context, brandID primitive.ObjectID, status, platform string, limit int64, cursor string) (*ListPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	filter, err := brandListFilter(brandID, status, platform, cursor)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit + 1) // lấy dư 1 để biết còn trang sau không

	items, err := s.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	page := &ListPage{}
	if int64(len(items)) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		page.NextCursor = encodeCursor(listCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID.Hex(),
		})
	}
	page.Items = items

	return page, nil
}

// scheduledReadyFilter lọc publication sẵn sàng enqueue: status scheduled,
// chưa gắn job, và hoặc không có scheduledAt (đăng ngay) hoặc đã đến giờ.
func scheduledReadyFilter(nowMilli int64) bson.M {
	return bson.M{
		"status": pubmodels.PublicationStatusScheduled,
		"jobId":  bson.M{"$in": bson.A{nil, ""}},
		"$or": bson.A{
			bson.M{"scheduledAt": bson.M{"$in": bson.A{nil, int64(0)}}},
			bson.M{"scheduledAt": bson.M{"$lte": nowMilli}},
		},
	}
}

// ListScheduledReady trả về các publication chờ enqueue: đã đến giờ theo lịch
// hoặc không có lịch (đăng ngay), dùng cho scheduler requeue định kỳ.
// Sort scheduledAt asc đẩy nhóm đăng-ngay (không có field) lên đầu.
func (s *PublicationService) ListScheduledReady(ctx context.Context, limit int64) ([]pubmodels.Publication, error) {
	filter := scheduledReadyFilter(time.Now().UnixMilli())
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduledAt", Value: 1}}).
		SetLimit(limit)

	return s.Find(ctx, filter, opts)
}

// Cancel hủy publication theo yêu cầu quản trị. Không hủy được publication
// đã published/cancelled hoặc đang publishing.
func (s *PublicationService) Cancel(ctx context.Context, id primitive.ObjectID) (pubmodels.Publication, error) {
	var zero pubmodels.Publication

	pub, err := s.FindOne(ctx, bson.M{"_id": id}, nil)
	if err != nil {
		return zero, err
	}

	if pubmodels.IsHardTerminal(pub.Status) || pub.Status == pubmodels.PublicationStatusPublishing {
		return zero, common.NewError(common.ErrCodeBusinessState,
			fmt.Sprintf("Không thể hủy publication ở trạng thái %s", pub.Status),
			common.StatusConflict, nil)
	}

	return s.UpdateStatus(ctx, id, map[string]interface{}{
		"status": pubmodels.PublicationStatusCancelled,
	})
}
