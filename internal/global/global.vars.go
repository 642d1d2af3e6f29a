package global

import (
	"brint/config"
	"brint/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_CollectionName chứa tên các collection trong MongoDB
type MongoDB_CollectionName struct {
	Publications   string // Tên collection cho publication
	SocialAccounts string // Tên collection cho tài khoản mạng xã hội đã kết nối
	Brands         string // Tên collection cho brand
	Workspaces     string // Tên collection cho workspace
	ActivityLogs   string // Tên collection cho activity log (append-only)
	PublishJobs    string // Tên collection cho publish job queue
}

// Các biến toàn cục
var Validate *validator.Validate                               // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client                              // Phiên kết nối tới MongoDB
var ServerConfig *config.Configuration                         // Cấu hình của server
var MongoDB_ColNames MongoDB_CollectionName = *new(MongoDB_CollectionName) // Tên các collection

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
