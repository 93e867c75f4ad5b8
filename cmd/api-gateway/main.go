package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/campushub/complaint-desk-api/api/swagger"
	"github.com/campushub/complaint-desk-api/internal/handler"
	"github.com/campushub/complaint-desk-api/internal/repository"
	"github.com/campushub/complaint-desk-api/internal/service"
	"github.com/campushub/complaint-desk-api/pkg/cache"
	"github.com/campushub/complaint-desk-api/pkg/config"
	"github.com/campushub/complaint-desk-api/pkg/database"
	"github.com/campushub/complaint-desk-api/pkg/jobs"
	"github.com/campushub/complaint-desk-api/pkg/logger"
	"github.com/campushub/complaint-desk-api/pkg/mailer"
	"github.com/campushub/complaint-desk-api/pkg/storage"
)

// @title Complaint Desk API
// @version 1.0.0
// @description Role-based complaint ticketing service for an academic campus
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Stats fall back to uncached queries when redis is unavailable.
		sugar.Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to prepare upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	var mail mailer.Mailer = mailer.NopMailer{}
	if cfg.SMTP.Enabled {
		mail = mailer.NewSMTPMailer(cfg.SMTP)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "complaint-desk-api",
	})

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, mail, jobs.QueueConfig{
		Workers:    cfg.Notifications.EmailWorkers,
		MaxRetries: cfg.Notifications.EmailRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	notificationSvc.StartQueue(context.Background())
	defer notificationSvc.StopQueue()

	statsSvc := service.NewStatsService(statsRepo, cacheRepo, cfg.Stats.CacheTTL, metricsSvc, logr)

	complaintSvc := service.NewComplaintService(
		complaintRepo,
		userRepo,
		categoryRepo,
		feedbackRepo,
		notificationSvc,
		uploads,
		service.AttachmentRules{
			MaxSizeBytes: cfg.Attachments.MaxFileSizeBytes,
			AllowedExts:  cfg.Attachments.AllowedExtensions,
		},
		metricsSvc,
		statsSvc,
		validate,
		logr,
	)

	categorySvc := service.NewCategoryService(categoryRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, logr)
	exportSvc := service.NewExportService(complaintRepo, userRepo, cfg.Exports.PDFRowCap, validate, logr)

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Complaints:    handler.NewComplaintHandler(complaintSvc, signer, uploads),
		Categories:    handler.NewCategoryHandler(categorySvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Stats:         handler.NewStatsHandler(statsSvc),
		Exports:       handler.NewExportHandler(exportSvc),
		Users:         handler.NewUserHandler(userSvc),
	}

	router := handler.NewRouter(cfg, logr, handlers, handler.RouterDeps{
		Auth:    authSvc,
		Metrics: metricsSvc,
		Users:   userRepo,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
}
