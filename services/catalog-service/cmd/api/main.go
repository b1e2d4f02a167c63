package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coursecraft/backend/libs/auth/middleware"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/libs/auth/service"
	"github.com/coursecraft/backend/libs/cache"
	"github.com/coursecraft/backend/libs/config"
	"github.com/coursecraft/backend/libs/logger"
	loggerMiddleware "github.com/coursecraft/backend/libs/logger/middleware"
	sharedMiddleware "github.com/coursecraft/backend/libs/middlewares"
	_ "github.com/coursecraft/backend/services/catalog-service/docs"
	"github.com/coursecraft/backend/services/catalog-service/internal/bootstrap"
	"github.com/coursecraft/backend/services/catalog-service/internal/handlers"
	"github.com/coursecraft/backend/services/catalog-service/internal/repositories"
	"github.com/coursecraft/backend/services/catalog-service/internal/services"
	"github.com/coursecraft/backend/services/catalog-service/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/hibiken/asynq"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title CourseCraft Catalog API
// @version 1.0
// @description API for authoring and browsing courses, chapters and lessons

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for service-to-service authentication
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
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

	logger.Logger.Info("Starting Catalog Service API")

	// Connect to database
	db, err := bootstrap.ConnectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := bootstrap.RunMigrations(db, bootstrap.MigrationsPath()); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	gormDB, err := bootstrap.OpenGorm(db)
	if err != nil {
		logger.Logger.Fatal("Failed to open gorm", zap.Error(err))
	}

	// Connect to Redis
	ctx := context.Background()
	rdb, err := bootstrap.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	// Create Asynq client
	asynqClient := asynq.NewClient(bootstrap.AsynqOpt(cfg.Redis))
	defer asynqClient.Close()

	// Initialize JWT token validator
	tokenValidator := service.NewTokenValidator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize repositories
	courseRepo := repositories.NewCourseRepository(db)
	chapterRepo := repositories.NewChapterRepository(db)
	lessonRepo := repositories.NewLessonRepository(db)
	userRepo := repositories.NewUserRepository(gormDB)

	// Initialize services
	pageCache := cache.New(rdb, cfg.Cache.Channel, logger.Logger)
	enqueuer := tasks.NewEnqueuer(asynqClient, cfg.Jobs.CopyMaxRetry)

	courseService := services.NewCourseService(courseRepo, chapterRepo, lessonRepo, pageCache, logger.Logger)
	chapterService := services.NewChapterService(courseRepo, chapterRepo, lessonRepo, pageCache, enqueuer, logger.Logger)
	lessonService := services.NewLessonService(courseRepo, chapterRepo, lessonRepo, pageCache, logger.Logger)
	reorderService := services.NewReorderService(courseRepo, chapterRepo, lessonRepo, pageCache, logger.Logger)
	bulkService := services.NewBulkService(courseRepo, chapterRepo, pageCache, logger.Logger)
	catalogService := services.NewCatalogService(courseRepo, chapterRepo, lessonRepo, pageCache, cfg.Cache.TTL, logger.Logger)
	userService := services.NewUserService(userRepo, courseRepo, logger.Logger)

	// Initialize handlers
	catalogHandler := handlers.NewCatalogHandler(catalogService, logger.Logger)
	courseHandler := handlers.NewCourseHandler(courseService, reorderService, chapterService, logger.Logger)
	chapterHandler := handlers.NewChapterHandler(chapterService, reorderService, bulkService, logger.Logger)
	lessonHandler := handlers.NewLessonHandler(lessonService, logger.Logger)
	adminHandler := handlers.NewAdminHandler(bulkService, courseService, userService, logger.Logger)
	internalHandler := handlers.NewInternalHandler(reorderService, logger.Logger)

	// Initialize auth middleware
	optionalAuth := middleware.OptionalAuthMiddleware(tokenValidator, userRepo)
	requireAuth := middleware.AuthMiddleware(tokenValidator, userRepo)
	authorMiddleware := middleware.RoleMiddleware(principal.RoleInstructor, principal.RoleAdmin)
	adminMiddleware := middleware.RoleMiddleware(principal.RoleAdmin)
	apiKeyMiddleware := middleware.APIKeyMiddleware(cfg.APIKey)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(sharedMiddleware.RequestSizeLimitMiddleware(10 * 1024 * 1024)) // 10MB

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog, personalised when a token is present
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			catalogHandler.RegisterRoutes(r)
		})

		// Authoring dashboard (instructors and admins)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(authorMiddleware)
			courseHandler.RegisterRoutes(r)
			chapterHandler.RegisterRoutes(r)
			lessonHandler.RegisterRoutes(r)
		})

		// Administration
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(adminMiddleware)
			adminHandler.RegisterRoutes(r)
		})

		// Service-to-service endpoints (API key protected)
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			internalHandler.RegisterRoutes(r)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}
