package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coursecraft/backend/libs/cache"
	"github.com/coursecraft/backend/libs/config"
	"github.com/coursecraft/backend/libs/logger"
	"github.com/coursecraft/backend/services/catalog-service/internal/bootstrap"
	"github.com/coursecraft/backend/services/catalog-service/internal/repositories"
	"github.com/coursecraft/backend/services/catalog-service/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Catalog Service Scheduler")

	// Connect to database
	db, err := bootstrap.ConnectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Connect to Redis
	rdb, err := bootstrap.ConnectRedis(context.Background(), cfg.Redis)
	if err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	// Initialize repositories and services
	courseRepo := repositories.NewCourseRepository(db)
	chapterRepo := repositories.NewChapterRepository(db)
	lessonRepo := repositories.NewLessonRepository(db)
	pageCache := cache.New(rdb, cfg.Cache.Channel, logger.Logger)
	reorderService := services.NewReorderService(courseRepo, chapterRepo, lessonRepo, pageCache, logger.Logger)

	scheduler, err := NewScheduler(cfg.Jobs.OrderRepairCron, reorderService, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Invalid order repair schedule", zap.String("cron", cfg.Jobs.OrderRepairCron), zap.Error(err))
	}
	scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down scheduler...")
	scheduler.Stop()
	logger.Logger.Info("Scheduler exited")
}
