package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mveiga/cohort/internal/observability"
	"github.com/mveiga/cohort/internal/segment"
)

// KeyPrefix is the namespace used for all preview keys in Redis.
// Example: "preview:3f1c...:10:0"
const KeyPrefix = "preview"

// Compile-time check against the engine's cache contract.
var _ segment.PreviewCache = (*RedisPreviewCache)(nil)

// RedisPreviewCache is the shared preview tier. It lets multiple API
// instances reuse each other's computed previews, with Redis expiry
// enforcing the TTL.
//
// All failures degrade to cache misses: a broken Redis must never fail a
// preview request.
type RedisPreviewCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisPreviewCache wraps an existing Redis client as a preview tier.
func NewRedisPreviewCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisPreviewCache {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &RedisPreviewCache{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

// Get retrieves and decodes a cached preview page.
func (c *RedisPreviewCache) Get(ctx context.Context, key segment.PreviewKey) (*segment.Preview, bool) {
	raw, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("preview cache read failed",
				slog.String("key", key.String()),
				slog.String("error", err.Error()),
			)
		}
		observability.PreviewCacheMisses.WithLabelValues("redis").Inc()
		return nil, false
	}

	var preview segment.Preview
	if err := json.Unmarshal(raw, &preview); err != nil {
		// A corrupt entry is unreadable forever; drop it so the next
		// compute overwrites it.
		c.logger.Warn("preview cache entry corrupt, deleting",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
		c.client.Del(ctx, redisKey(key))
		observability.PreviewCacheMisses.WithLabelValues("redis").Inc()
		return nil, false
	}

	observability.PreviewCacheHits.WithLabelValues("redis").Inc()
	return &preview, true
}

// Set encodes and stores a preview page with the configured TTL.
func (c *RedisPreviewCache) Set(ctx context.Context, key segment.PreviewKey, preview *segment.Preview) {
	raw, err := json.Marshal(preview)
	if err != nil {
		c.logger.Error("failed to encode preview for cache",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := c.client.Set(ctx, redisKey(key), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("preview cache write failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the underlying Redis client.
func (c *RedisPreviewCache) Close() error {
	return c.client.Close()
}

func redisKey(key segment.PreviewKey) string {
	return fmt.Sprintf("%s:%s", KeyPrefix, key.String())
}
