// Package main initializes and runs the Cohort API service.
//
// It acts as the composition root for the segment resolution engine,
// wiring up PostgreSQL, Redis, the preview cache tiers and the HTTP
// server, and handling the process lifecycle.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mveiga/cohort/internal/api"
	"github.com/mveiga/cohort/internal/cache"
	"github.com/mveiga/cohort/internal/config"
	"github.com/mveiga/cohort/internal/database"
	"github.com/mveiga/cohort/internal/logger"
	"github.com/mveiga/cohort/internal/observability"
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

// run executes the service lifecycle.
func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg := logger.New(&cfg.App)
	slog.SetDefault(logg)
	cfg.LogConfig(logg)

	ctx := context.Background()

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
	tags := store.NewPostgresTagStore(pool)

	l1, err := cache.NewMemoryPreviewCache(cfg.Engine.PreviewCacheCapacity, cfg.Engine.PreviewCacheTTL)
	if err != nil {
		return fmt.Errorf("failed to build memory preview cache: %w", err)
	}
	defer l1.Close()
	l2 := cache.NewRedisPreviewCache(redisClient, cfg.Engine.PreviewCacheTTL, logg)
	previewCache := cache.NewTieredPreviewCache(l1, l2)

	resolver := segment.NewResolver(memberships, logg)
	previewer := segment.NewPreviewer(resolver, subjects, segments, previewCache, logg)

	apiService := api.NewAPI(previewer, tags, cfg.Engine.MaxGroupDepth, cfg.Server.APIKeyHash)

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

	// -------------------------------------------------------------------------
	// 5. HTTP Server Setup
	// -------------------------------------------------------------------------
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           apiService.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		logg.Info("api server listening", slog.String("addr", addr))

		var err error
		if cfg.Server.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("api server failed: %w", err)
		}
	}()

	// -------------------------------------------------------------------------
	// 6. Graceful Shutdown
	// -------------------------------------------------------------------------
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logg.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("api server shutdown failed", slog.String("error", err.Error()))
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("observability server shutdown failed", slog.String("error", err.Error()))
	}

	logg.Info("service exited successfully")
	return nil
}
