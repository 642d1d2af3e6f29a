// Package pubhdl xử lý các request HTTP của domain publication.
package pubhdl

import (
	"context"
	"errors"
	"fmt"

	basehdl "brint/internal/api/base/handler"
	pubdto "brint/internal/api/publication/dto"
	pubmodels "brint/internal/api/publication/models"
	pubsvc "brint/internal/api/publication/service"
	"brint/internal/common"
	"brint/internal/global"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// publicationService là phần contract của publication service mà handler dùng
type publicationService interface {
	Create(ctx context.Context, pub pubmodels.Publication) (pubmodels.Publication, error)
	FindOneById(ctx context.Context, id primitive.ObjectID) (pubmodels.Publication, error)
	FindByClientRequestID(ctx context.Context, workspaceID, brandID primitive.ObjectID, clientRequestID string) (pubmodels.Publication, error)
	ListByBrand(ctx context.Context, brandID primitive.ObjectID, status, platform string, limit int64, cursor string) (*pubsvc.ListPage, error)
	Cancel(ctx context.Context, id primitive.ObjectID) (pubmodels.Publication, error)
}

// PublicationHandler xử lý các request liên quan đến publication
type PublicationHandler struct {
	service publicationService
}

// NewPublicationHandler tạo mới PublicationHandler
func NewPublicationHandler() (*PublicationHandler, error) {
	service, err := pubsvc.NewPublicationService()
	if err != nil {
		return nil, fmt.Errorf("failed to create publication service: %v", err)
	}
	return &PublicationHandler{service: service}, nil
}

// parseObjectID parse hex string thành ObjectID, lỗi format → VAL_002
func parseObjectID(value, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, common.NewError(common.ErrCodeValidationFormat,
			fmt.Sprintf("%s không phải ObjectID hợp lệ", field),
			common.StatusBadRequest, nil)
	}
	return id, nil
}

// Create tạo publication mới.
// Idempotency: request mang clientRequestId trùng với một publication đã có
// trong (workspace, brand) thì trả về bản ghi cũ thay vì tạo mới — kể cả khi
// hai request chạy song song (unique sparse index bắt race, handler map
// ErrDuplicate về bản ghi thắng cuộc).
func (h *PublicationHandler) Create(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		var input pubdto.PublicationCreateInput
		if err := c.Bind().Body(&input); err != nil {
			basehdl.HandleResponse(c, nil, common.ErrInvalidFormat)
			return nil
		}
		if err := global.Validate.Struct(input); err != nil {
			basehdl.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationInput,
				err.Error(), common.StatusBadRequest, nil))
			return nil
		}

		workspaceID, err := parseObjectID(input.WorkspaceID, "workspaceId")
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		brandID, err := parseObjectID(input.BrandID, "brandId")
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		var socialAccountID *primitive.ObjectID
		if input.SocialAccountID != "" {
			id, err := parseObjectID(input.SocialAccountID, "socialAccountId")
			if err != nil {
				basehdl.HandleResponse(c, nil, err)
				return nil
			}
			socialAccountID = &id
		}

		// Kiểm tra idempotency trước khi làm gì khác
		if input.ClientRequestID != "" {
			existing, err := h.service.FindByClientRequestID(c.Context(), workspaceID, brandID, input.ClientRequestID)
			if err == nil {
				basehdl.HandleResponse(c, existing, nil)
				return nil
			}
			if !errors.Is(err, common.ErrNotFound) {
				basehdl.HandleResponse(c, nil, err)
				return nil
			}
		}

		payload, err := pubmodels.UnmarshalPayloadJSON(input.ContentType, input.Payload)
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		raw, err := pubmodels.EncodePayload(payload)
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		// Publication tạo qua API luôn vào scheduled: có scheduledAt thì đợi
		// đến giờ, không có thì scheduler nhặt ngay ở tick kế tiếp
		status := pubmodels.PublicationStatusScheduled

		pub := pubmodels.Publication{
			WorkspaceID:     workspaceID,
			BrandID:         brandID,
			SocialAccountID: socialAccountID,
			Platform:        input.Platform,
			ContentType:     input.ContentType,
			Payload:         raw,
			ScheduledAt:     input.ScheduledAt,
			Status:          status,
			ClientRequestID: input.ClientRequestID,
		}

		created, err := h.service.Create(c.Context(), pub)
		if err != nil {
			// Race idempotency: request song song đã insert trước, trả bản ghi đó
			if errors.Is(err, common.ErrDuplicate) && input.ClientRequestID != "" {
				existing, ferr := h.service.FindByClientRequestID(c.Context(), workspaceID, brandID, input.ClientRequestID)
				if ferr == nil {
					basehdl.HandleResponse(c, existing, nil)
					return nil
				}
			}
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		basehdl.HandleCreatedResponse(c, created)
		return nil
	})
}

// GetByID trả về một publication theo ID
func (h *PublicationHandler) GetByID(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		id, err := parseObjectID(c.Params("id"), "id")
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		pub, err := h.service.FindOneById(c.Context(), id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				err = common.ErrPipeNotFound
			}
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		basehdl.HandleResponse(c, pub, nil)
		return nil
	})
}

// ListByBrand liệt kê publications của một brand với keyset pagination.
// Cursor opaque lấy từ nextCursor của trang trước; trang cuối không có nextCursor.
func (h *PublicationHandler) ListByBrand(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		brandID, err := parseObjectID(c.Params("brandId"), "brandId")
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		var query pubdto.PublicationListQuery
		if err := c.Bind().Query(&query); err != nil {
			basehdl.HandleResponse(c, nil, common.ErrInvalidFormat)
			return nil
		}
		if err := global.Validate.Struct(query); err != nil {
			basehdl.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationInput,
				err.Error(), common.StatusBadRequest, nil))
			return nil
		}

		page, err := h.service.ListByBrand(c.Context(), brandID, query.Status, query.Platform, query.Limit, query.Cursor)
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		basehdl.HandleResponse(c, page, nil)
		return nil
	})
}

// Cancel hủy một publication chưa vào trạng thái terminal/đang đăng
func (h *PublicationHandler) Cancel(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		id, err := parseObjectID(c.Params("id"), "id")
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		pub, err := h.service.Cancel(c.Context(), id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				err = common.ErrPipeNotFound
			}
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		basehdl.HandleResponse(c, pub, nil)
		return nil
	})
}
