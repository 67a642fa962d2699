package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"promise-tracker/api"
	"promise-tracker/config"
	"promise-tracker/models"
	"promise-tracker/services"
	"promise-tracker/storage"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}
	if err := cfg.ValidateServer(); err != nil {
		logging.Fatal("Invalid server configuration", zap.Error(err))
	}

	// Setup Store
	store, err := storage.Open(cfg)
	if err != nil {
		logging.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	logging.Info("Store ready", zap.String("driver", cfg.StoreDriver))

	// Setup Media Host
	var media services.MediaHost
	if cfg.MediaConfigured() {
		s3Client, err := storage.NewS3Client(context.Background(), cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		media = storage.NewS3MediaHost(s3Client, cfg.S3Bucket, cfg.MediaBaseURL())
		logging.Info("Media uploads enabled", zap.String("bucket", cfg.S3Bucket))
	} else {
		logging.Warn("S3 not configured, only external media URLs are accepted")
	}

	// Setup Services
	cache := services.NewCacheService(cfg.RedisURL, cfg.CacheTTL, logging)
	defer cache.Close()
	evidenceService := services.NewEvidenceService(store, store, media, cache, logging)
	reconciler := services.NewReconciler(store, logging, cfg.ReconcileWorkers, cfg.ReconcileRepair)
	reconciler.Cache = cache

	// Setup Router
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(evidenceService, api.Options{
		APIKey:         cfg.APISecretKey,
		DefaultRole:    models.Role(cfg.DefaultRole),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Checks:         map[string]api.HealthCheck{"store": store.Ping},
	}, logging)

	// Setup Cron
	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.ReconcileSchedule, func() {
		logging.Info("Running scheduled reconcile job...")
		if _, err := reconciler.Run(context.Background()); err != nil {
			logging.Error("Reconcile job failed", zap.Error(err))
		}
	})
	if err != nil {
		logging.Fatal("Invalid RECONCILE_SCHEDULE", zap.String("schedule", cfg.ReconcileSchedule), zap.Error(err))
	}
	cronScheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info("Shutting down")

	<-cronScheduler.Stop().Done()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
}
