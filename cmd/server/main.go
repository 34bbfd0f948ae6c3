package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/cache"
	"github.com/edupulse/assessment-engine/internal/config"
	"github.com/edupulse/assessment-engine/internal/handlers"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories/postgres"
	"github.com/edupulse/assessment-engine/internal/services"
	"github.com/edupulse/assessment-engine/internal/utils"
	"github.com/edupulse/assessment-engine/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.RoleGrant{},
		&models.Course{},
		&models.Enrollment{},
		&models.GuardianLink{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuizAttempt{},
		&models.Notification{},
	); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	var cacheService cache.CacheService
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, using in-memory cache", "error", err)
		cacheService = cache.NewMemoryCache()
	} else {
		cacheService = cache.NewRedisCache(redisClient, slogger)
	}

	eventCfg := config.LoadEventConfig()
	publisher, err := eventCfg.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	validator := utils.NewValidator()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	authorizer := services.NewAuthorizer(repo, slogger)
	directory := services.NewDirectoryService(repo, tokens, cacheService, publisher, slogger, validator, cfg.BootstrapGraceWindow)
	courses := services.NewCourseService(repo, authorizer, slogger, validator)
	enrollments := services.NewEnrollmentService(repo, authorizer, slogger, validator)
	quizzes := services.NewQuizService(repo, authorizer, publisher, slogger, validator)
	attempts := services.NewAttemptService(repo, authorizer, publisher, slogger)
	notifications := services.NewNotificationService(repo, publisher, slogger)
	retention := services.NewRetentionService(repo, authorizer, cacheService, publisher, slogger, services.RetentionConfig{
		CourseRestoreWindow:    cfg.CourseRestoreWindow,
		CourseInactivityWindow: cfg.CourseInactivityWindow,
		TenantGraceWindow:      cfg.TenantGraceWindow,
		ExportDir:              cfg.ExportDir,
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	manager := handlers.NewHandlerManager(tokens, directory, courses, enrollments,
		quizzes, attempts, retention, notifications, logger)
	manager.SetupRoutes(router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runSweeps(ctx, cfg, attempts, retention, directory, slogger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}

// runSweeps drives the periodic jobs: the auto-submit sweep for overdue
// attempts, the retention sweeps for courses and tenants, and the tenant
// integrity check. All of them are idempotent, so overlapping runs across
// instances are harmless.
func runSweeps(
	ctx context.Context,
	cfg *config.Config,
	attempts services.AttemptService,
	retention services.RetentionService,
	directory services.DirectoryService,
	logger *slog.Logger,
) {
	autoSubmit := time.NewTicker(cfg.AutoSubmitInterval)
	defer autoSubmit.Stop()
	retentionTick := time.NewTicker(cfg.RetentionInterval)
	defer retentionTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-autoSubmit.C:
			if _, err := attempts.ExpireOverdue(ctx); err != nil {
				logger.Error("Auto-submit sweep failed", "error", err)
			}
		case <-retentionTick.C:
			if _, err := retention.SweepCourses(ctx); err != nil {
				logger.Error("Course sweep failed", "error", err)
			}
			if _, err := retention.SweepTenants(ctx); err != nil {
				logger.Error("Tenant sweep failed", "error", err)
			}
			if _, err := directory.CheckIntegrity(ctx); err != nil {
				logger.Error("Integrity check failed", "error", err)
			}
		}
	}
}
