// Package main initializes and runs the Cohort preview refresher worker.
//
// The worker periodically recomputes the first preview page of every
// segment and writes it into the preview cache so the API serves warm
// results.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mveiga/cohort/internal/cache"
	"github.com/mveiga/cohort/internal/config"
	"github.com/mveiga/cohort/internal/database"
	"github.com/mveiga/cohort/internal/logger"
	"github.com/mveiga/cohort/internal/observability"
	"github.com/mveiga/cohort/internal/refresher"
	"github.com/mveiga/cohort/internal/segment"
	"github.com/mveiga/cohort/internal/store"
)

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

// run executes the worker lifecycle.
func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if !cfg.Refresher.Enabled {
		log.Println("refresher is disabled, exiting")
		return nil
	}

	logg := logger.New(&cfg.App)
	slog.SetDefault(logg)
	cfg.LogConfig(logg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup
	// -------------------------------------------------------------------------
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------
	memberships := store.NewPostgresMembershipStore(pool, cfg.Engine.MembershipBatchSize)
	subjects := store.NewPostgresSubjectStore(pool)
	segments := store.NewPostgresSegmentStore(pool)

	// The worker writes previews the API reads: only the shared Redis tier
	// matters here, an in-process tier would warm nobody's reads.
	previewCache := cache.NewRedisPreviewCache(redisClient, cfg.Engine.PreviewCacheTTL, logg)

	resolver := segment.NewResolver(memberships, logg)
	previewer := segment.NewPreviewer(resolver, subjects, segments, previewCache, logg)

	service := refresher.New(logg, refresher.Config{
		Interval:     cfg.Refresher.Interval,
		PreviewLimit: cfg.Refresher.PreviewLimit,
		Concurrency:  cfg.Refresher.Concurrency,
	}, segments, previewer)

	// -------------------------------------------------------------------------
	// 4. Observability Server (health probes + metrics)
	// -------------------------------------------------------------------------
	obsServer := observability.NewServer(logg, &cfg.Observability,
		database.NewHealthChecker(pool),
		cache.NewHealthChecker(redisClient),
	)
	if err := obsServer.Start(); err != nil {
		return fmt.Errorf("failed to start observability server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			logg.Error("observability server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// -------------------------------------------------------------------------
	// 5. Run until signalled
	// -------------------------------------------------------------------------
	if err := service.Run(ctx); err != nil {
		return fmt.Errorf("refresher failed: %w", err)
	}

	logg.Info("worker exited successfully")
	return nil
}
