package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Brand đại diện cho một thương hiệu trong workspace
type Brand struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`               // ID của brand
	WorkspaceID primitive.ObjectID `json:"workspaceId" bson:"workspaceId" index:"single:1"` // Workspace sở hữu
	Name        string             `json:"name" bson:"name"`                                // Tên brand
	Description string             `json:"description,omitempty" bson:"description,omitempty"` // Mô tả
	CreatedAt   int64              `json:"createdAt" bson:"createdAt"`                      // Thời gian tạo (Unix milli)
	UpdatedAt   int64              `json:"updatedAt" bson:"updatedAt"`                      // Thời gian cập nhật cuối (Unix milli)
}

// Workspace đại diện cho một không gian làm việc (đơn vị tenant)
type Workspace struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của workspace
	Name      string             `json:"name" bson:"name"`                  // Tên workspace
	CreatedAt int64              `json:"createdAt" bson:"createdAt"`        // Thời gian tạo (Unix milli)
	UpdatedAt int64              `json:"updatedAt" bson:"updatedAt"`        // Thời gian cập nhật cuối (Unix milli)
}
