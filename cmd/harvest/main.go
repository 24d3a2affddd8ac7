package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/krushna-ai/gdvg-ingest/internal/config"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/logger"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
	"github.com/krushna-ai/gdvg-ingest/internal/service"
	"github.com/krushna-ai/gdvg-ingest/internal/source/tmdb"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "gdvg-harvest",
	})
	logger.SetDefaultLogger(appLogger)

	strategies := flag.String("strategies", "discover,changes", "Comma-separated detection strategies: discover, sequential, changes, metadata")
	contentTypes := flag.String("types", "movie,tv", "Comma-separated content types: movie, tv")
	daysBack := flag.Int("days", 1, "Changes feed lookback in days")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		"strategies": *strategies,
		"types":      *contentTypes,
		"days":       *daysBack,
	}).Info("Starting gap detection")

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	contentRepo := repository.NewContentRepository(db)
	gapRepo := repository.NewGapRepository(db)

	tmdbClient := tmdb.NewClient(&tmdb.Config{
		BaseURL:        cfg.TMDB.BaseURL,
		AccessToken:    cfg.TMDB.AccessToken,
		RateLimitDelay: cfg.TMDB.RateLimitDelay(),
		Timeout:        cfg.TMDB.Timeout,
	})

	detector := service.NewDetector(tmdbClient, contentRepo, gapRepo, appLogger, service.DetectorConfig{
		MaxPages:         cfg.Gaps.MaxPagesPerSweep,
		Countries:        cfg.Gaps.Countries,
		SortOrders:       cfg.Gaps.SortOrders,
		SequentialWindow: cfg.Gaps.SequentialWindow,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	opts := service.DetectOptions{DaysBack: *daysBack}
	for _, s := range strings.Split(*strategies, ",") {
		if s = strings.TrimSpace(s); s != "" {
			opts.Strategies = append(opts.Strategies, s)
		}
	}
	for _, t := range strings.Split(*contentTypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			opts.ContentTypes = append(opts.ContentTypes, domain.ContentType(t))
		}
	}

	stats, err := detector.Run(ctx, opts)
	if err != nil {
		appLogger.WithError(err).Fatal("Gap detection failed")
	}
	appLogger.WithFields(logger.Fields{
		"scanned":    stats.Scanned,
		"registered": stats.Registered,
		"duplicates": stats.Duplicates,
		"errors":     stats.Errors,
	}).Info("Gap detection completed")
}
