// Package cache provides the preview caching layers for Cohort: a
// process-local in-memory tier and a shared Redis tier, composable into a
// read-through pair.
package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mveiga/cohort/internal/config"
	"github.com/mveiga/cohort/internal/logger"
)

// NewRedisClient builds a Redis client from the configuration and blocks
// until the server answers a ping, or until the retry budget or ctx runs
// out. The client is closed on failure.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	opts := &redis.Options{
		Addr:            cfg.Address(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	if err := awaitRedis(ctx, client, cfg.PingMaxRetries, cfg.PingBackoff); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// awaitRedis pings until the server answers, doubling the wait between
// attempts. Cancelling ctx aborts the wait immediately, so startup does not
// hang through a shutdown signal.
func awaitRedis(ctx context.Context, client *redis.Client, maxAttempts int, backoff time.Duration) error {
	log := logger.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, backoff)
		lastErr = client.Ping(pingCtx).Err()
		cancel()

		if lastErr == nil {
			log.Info("connected to redis", slog.Int("attempt", attempt))
			return nil
		}

		log.Warn("redis not reachable yet",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.String("error", lastErr.Error()),
		)

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for redis: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return fmt.Errorf("failed to connect to redis after %d attempts: %w", maxAttempts, lastErr)
}
