package brandsvc

import (
	"fmt"

	basesvc "brint/internal/api/base/service"
	brandmodels "brint/internal/api/brand/models"
	"brint/internal/common"
	"brint/internal/global"
)

// BrandService là service quản lý brands
type BrandService struct {
	*basesvc.BaseServiceMongoImpl[brandmodels.Brand]
}

// NewBrandService tạo mới BrandService
func NewBrandService() (*BrandService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Brands)
	if !exist {
		return nil, fmt.Errorf("failed to get brands collection: %v", common.ErrNotFound)
	}

	return &BrandService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[brandmodels.Brand](collection),
	}, nil
}

// WorkspaceService là service quản lý workspaces
type WorkspaceService struct {
	*basesvc.BaseServiceMongoImpl[brandmodels.Workspace]
}

// NewWorkspaceService tạo mới WorkspaceService
func NewWorkspaceService() (*WorkspaceService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Workspaces)
	if !exist {
		return nil, fmt.Errorf("failed to get workspaces collection: %v", common.ErrNotFound)
	}

	return &WorkspaceService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[brandmodels.Workspace](collection),
	}, nil
}
