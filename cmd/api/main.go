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

	"github.com/krushna-ai/gdvg-ingest/internal/api"
	"github.com/krushna-ai/gdvg-ingest/internal/api/middleware"
	"github.com/krushna-ai/gdvg-ingest/internal/config"
	"github.com/krushna-ai/gdvg-ingest/internal/logger"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
	"github.com/krushna-ai/gdvg-ingest/internal/service"
	"github.com/krushna-ai/gdvg-ingest/internal/source/tmdb"
	"github.com/krushna-ai/gdvg-ingest/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments.
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		LogFile:     cfg.Log.File,
		ServiceName: "gdvg-ingest",
	})
	logger.SetDefaultLogger(appLogger)

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	jobRepo := repository.NewJobRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	contentRepo := repository.NewContentRepository(db)
	gapRepo := repository.NewGapRepository(db)

	tmdbClient := tmdb.NewClient(&tmdb.Config{
		BaseURL:        cfg.TMDB.BaseURL,
		AccessToken:    cfg.TMDB.AccessToken,
		RateLimitDelay: cfg.TMDB.RateLimitDelay(),
		Timeout:        cfg.TMDB.Timeout,
	})

	// Artwork mirroring is optional; without object storage records keep
	// the provider's image paths only.
	var mirror *service.ImageMirror
	if cfg.Storage.Enabled {
		objectStorage, err := storage.NewS3Storage(&storage.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
		if err := objectStorage.EnsureBucket(context.Background()); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
		mirror = service.NewImageMirror(objectStorage, cfg.TMDB.ImageBaseURL, appLogger)
	}

	processor := service.NewProcessor(
		tmdbClient, jobRepo, queueRepo, contentRepo, gapRepo, mirror, appLogger,
		service.ProcessorConfig{
			Workers:        cfg.Import.Workers,
			MaxAttempts:    cfg.Import.MaxRetries,
			RetryBaseDelay: time.Duration(cfg.Import.RetryBaseDelayMS) * time.Millisecond,
			ItemDelay:      time.Duration(cfg.Import.ItemDelayMS) * time.Millisecond,
			BatchSize:      cfg.Import.BatchSize,
		},
	)
	orchestrator := service.NewOrchestrator(jobRepo, queueRepo, processor, appLogger)
	detector := service.NewDetector(tmdbClient, contentRepo, gapRepo, appLogger, service.DetectorConfig{
		MaxPages:         cfg.Gaps.MaxPagesPerSweep,
		Countries:        cfg.Gaps.Countries,
		SortOrders:       cfg.Gaps.SortOrders,
		SequentialWindow: cfg.Gaps.SequentialWindow,
	})
	statsService := service.NewStatsService(contentRepo, queueRepo, gapRepo)

	router := api.SetupRouter(api.RouterDeps{
		Orchestrator: orchestrator,
		Detector:     detector,
		Stats:        statsService,
		Gaps:         gapRepo,
		Content:      contentRepo,
		Log:          appLogger,
	}, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Pause live runs first; their persisted queues make them resumable.
	orchestrator.Stop(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
