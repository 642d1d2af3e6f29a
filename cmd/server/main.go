package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	activitysvc "brint/internal/api/activity/service"
	pubmodels "brint/internal/api/publication/models"
	pubsvc "brint/internal/api/publication/service"
	socialsvc "brint/internal/api/social/service"
	"brint/internal/credential"
	"brint/internal/database"
	"brint/internal/global"
	"brint/internal/jobqueue"
	"brint/internal/logger"
	"brint/internal/platform/facebook"
	"brint/internal/token"
	"brint/internal/worker"

	"github.com/gofiber/fiber/v3"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

// startPipeline dựng queue, worker và scheduler; trả về hàm dừng theo thứ tự
// ngược khởi động
func startPipeline(ctx context.Context) (stop func(), err error) {
	cfg := global.ServerConfig

	queue, err := jobqueue.NewQueue(jobqueue.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create publish queue: %w", err)
	}

	publicationService, err := pubsvc.NewPublicationService()
	if err != nil {
		return nil, fmt.Errorf("failed to create publication service: %w", err)
	}
	socialAccountService, err := socialsvc.NewSocialAccountService()
	if err != nil {
		return nil, fmt.Errorf("failed to create social account service: %w", err)
	}
	activityService, err := activitysvc.NewActivityLogService()
	if err != nil {
		return nil, fmt.Errorf("failed to create activity log service: %w", err)
	}

	codec := credential.NewCodec(cfg.CredentialSecret)
	tokenAPI := token.NewFacebookTokenAPI(cfg.FacebookGraphURL, cfg.FacebookAppID, cfg.FacebookAppSecret)
	tokenService := token.NewService(socialAccountService, tokenAPI, codec)
	fbClient := facebook.NewClient(cfg.FacebookGraphURL)

	publishWorker := worker.NewPublishWorker(publicationService, tokenService, fbClient, activityService)
	dispatcher := jobqueue.NewDispatcher(queue, publishWorker, jobqueue.DispatcherConfig{
		Queue:        jobqueue.QueueName(pubmodels.PlatformFacebook),
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: time.Duration(cfg.WorkerPollSeconds) * time.Second,
	})
	handle := dispatcher.Start(ctx)

	scheduler := worker.NewScheduler(publicationService, queue)
	if err := scheduler.Start(cfg.SchedulerCronSpec); err != nil {
		handle.Stop()
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	return func() {
		scheduler.Stop()
		handle.Stop()
	}, nil
}

func main() {
	// Khởi tạo logger
	initLogger()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry
	InitRegistry()

	log := logger.GetAppLogger()

	// Khởi động pipeline nền (dispatcher + scheduler)
	pipelineCtx, cancelPipeline := context.WithCancel(context.Background())
	stopPipeline, err := startPipeline(pipelineCtx)
	if err != nil {
		log.Fatalf("Failed to start publish pipeline: %v", err)
	}
	log.Info("🚀 [WORKER] Publish pipeline started")

	// Khởi tạo Fiber app
	app, err := InitFiberApp()
	if err != nil {
		log.Fatalf("Failed to initialize Fiber app: %v", err)
	}

	// Graceful shutdown: nhận SIGINT/SIGTERM thì dừng HTTP trước, worker sau
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		log.WithField("signal", sig.String()).Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Error("Error during server shutdown")
		}
	}()

	address := global.ServerConfig.Address
	log.WithField("address", address).Info("Starting Fiber server...")
	if err := app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.WithError(err).Error("Error in Fiber Listen")
	}

	// HTTP đã dừng, dọn dẹp theo thứ tự ngược khởi động
	cancelPipeline()
	stopPipeline()

	if err := database.CloseInstance(global.MongoDB_Session); err != nil {
		log.WithError(err).Warn("Error closing MongoDB connection")
	}

	log.Info("Server stopped")
	logger.Close()
}
