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
	"github.com/coursecraft/backend/services/catalog-service/internal/tasks"
	"github.com/hibiken/asynq"
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

	logger.Logger.Info("Starting Catalog Service Worker")

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

	// Initialize repositories
	courseRepo := repositories.NewCourseRepository(db)
	chapterRepo := repositories.NewChapterRepository(db)
	lessonRepo := repositories.NewLessonRepository(db)

	// Failed copies are retried by asynq
	pageCache := cache.New(rdb, cfg.Cache.Channel, logger.Logger)
	chapterService := services.NewChapterService(courseRepo, chapterRepo, lessonRepo, pageCache, nil, logger.Logger)

	// Create Asynq server
	srv := asynq.NewServer(
		bootstrap.AsynqOpt(cfg.Redis),
		asynq.Config{
			Queues: map[string]int{
				tasks.QueueDefault: 1,
			},
			Logger: newAsynqLogger(logger.Logger),
		},
	)

	// Register task handlers
	handler := tasks.NewHandler(chapterService, logger.Logger)
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCopyLessons, handler.HandleCopyLessons)

	// Start worker
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Logger.Fatal("Failed to start worker", zap.Error(err))
		}
	}()

	logger.Logger.Info("Worker started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down worker...")
	srv.Shutdown()
	logger.Logger.Info("Worker exited")
}
