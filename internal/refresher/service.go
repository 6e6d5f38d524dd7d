// Package refresher implements the background worker that keeps the first
// preview page of every segment warm in the cache, so the dashboard never
// pays the full resolution cost on its hot path.
package refresher

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mveiga/cohort/internal/observability"
	"github.com/mveiga/cohort/internal/segment"
)

// SegmentLister enumerates the segments to refresh.
type SegmentLister interface {
	ListSegmentIDs(ctx context.Context) ([]string, error)
}

// Config holds the configuration for the refresher service.
type Config struct {
	// Interval is the duration between refresh cycles.
	Interval time.Duration

	// PreviewLimit is the page size warmed for each segment.
	PreviewLimit int

	// Concurrency bounds how many segments are refreshed at once.
	Concurrency int
}

// Service orchestrates the periodic preview warm-up.
type Service struct {
	logger    *slog.Logger
	config    Config
	segments  SegmentLister
	previewer *segment.Previewer
}

// New creates a new refresher service.
func New(logger *slog.Logger, cfg Config, segments SegmentLister, previewer *segment.Previewer) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	if segments == nil {
		panic("refresher: segment lister cannot be nil")
	}
	if previewer == nil {
		panic("refresher: previewer cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = 5 * time.Minute // Safe default
	}
	if cfg.PreviewLimit < 1 {
		cfg.PreviewLimit = segment.DefaultPreviewLimit
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return &Service{
		logger:    logger,
		config:    cfg,
		segments:  segments,
		previewer: previewer,
	}
}

// Run starts the refresh loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting refresher service",
		slog.String("interval", s.config.Interval.String()),
		slog.Int("concurrency", s.config.Concurrency),
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run once immediately on startup so a fresh deploy starts warm.
	if err := s.refresh(ctx); err != nil {
		s.logger.Error("initial refresh failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresher service stopping...")
			return nil
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				// Log and retry on the next tick, the worker stays up.
				s.logger.Error("refresh cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// refresh performs a single warm-up cycle over all segments.
func (s *Service) refresh(ctx context.Context) error {
	start := time.Now()
	defer func() {
		observability.RefresherCycleDuration.Observe(time.Since(start).Seconds())
	}()

	ids, err := s.segments.ListSegmentIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list segments: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	var warmed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for _, id := range ids {
		g.Go(func() error {
			if _, err := s.previewer.RefreshSegmentPreview(gctx, id, s.config.PreviewLimit, 0); err != nil {
				if gctx.Err() != nil {
					// Shutdown, not a segment problem.
					return gctx.Err()
				}
				s.logger.Warn("failed to refresh segment preview",
					slog.String("segment_id", id),
					slog.String("error", err.Error()),
				)
				observability.RefresherSegmentsTotal.WithLabelValues("fail").Inc()
				failed.Add(1)
				return nil // Try remaining segments, don't abort the cycle.
			}
			observability.RefresherSegmentsTotal.WithLabelValues("success").Inc()
			warmed.Add(1)
			return nil
		})
	}

	// Only cancellation surfaces here, a failed segment never aborts the
	// cycle.
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("refresh cycle completed",
		slog.Int64("warmed", warmed.Load()),
		slog.Int64("failed", failed.Load()),
		slog.String("duration", time.Since(start).String()),
	)

	return nil
}
