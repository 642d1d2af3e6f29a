package main

import (
	"context"

	"brint/config"
	activitymodels "brint/internal/api/activity/models"
	brandmodels "brint/internal/api/brand/models"
	pubmodels "brint/internal/api/publication/models"
	socialmodels "brint/internal/api/social/models"
	"brint/internal/database"
	"brint/internal/global"
	"brint/internal/jobqueue"

	"github.com/sirupsen/logrus"
)

// InitGlobal khởi tạo các biến toàn cục theo thứ tự phụ thuộc
func InitGlobal() {
	initColNames()         // Khởi tạo tên các collection trong database
	initValidator()        // Khởi tạo validator
	initConfig()           // Khởi tạo cấu hình server
	initDatabase_MongoDB() // Khởi tạo kết nối database
}

// initColNames khởi tạo tên các collection trong database
func initColNames() {
	global.MongoDB_ColNames.Workspaces = "workspaces"
	global.MongoDB_ColNames.Brands = "brands"
	global.MongoDB_ColNames.SocialAccounts = "social_accounts"
	global.MongoDB_ColNames.Publications = "publications"
	global.MongoDB_ColNames.ActivityLogs = "activity_logs"
	global.MongoDB_ColNames.PublishJobs = "publish_jobs"

	logrus.Info("Initialized collection names")
}

// initValidator khởi tạo validator (đăng ký custom validator: exists)
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

// initConfig khởi tạo cấu hình server
func initConfig() {
	global.ServerConfig = config.NewConfig()
	if global.ServerConfig == nil {
		logrus.Fatalf("Failed to initialize config: config is nil")
	}
	logrus.Info("Initialized server config")
}

// initDatabase_MongoDB khởi tạo kết nối database, collections và indexes
func initDatabase_MongoDB() {
	var err error
	global.MongoDB_Session, err = database.GetInstance(global.ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to get database instance: %v", err)
	}
	logrus.Info("Connected to MongoDB")

	if err := database.EnsureDatabaseAndCollections(global.MongoDB_Session); err != nil {
		logrus.Fatalf("Failed to ensure database and collections: %v", err)
	}
	logrus.Info("Ensured database and collections")

	// Khởi tạo các index cho các collection theo tag trên model
	dbName := global.ServerConfig.MongoDB_DBName
	db := global.MongoDB_Session.Database(dbName)
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Workspaces), brandmodels.Workspace{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Brands), brandmodels.Brand{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.SocialAccounts), socialmodels.SocialAccount{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Publications), pubmodels.Publication{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.ActivityLogs), activitymodels.ActivityLog{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.PublishJobs), jobqueue.PublishJob{})
}
