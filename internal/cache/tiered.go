package cache

import (
	"context"

	"github.com/mveiga/cohort/internal/segment"
)

// Compile-time check against the engine's cache contract.
var _ segment.PreviewCache = (*TieredPreviewCache)(nil)

// TieredPreviewCache composes the in-memory tier and the Redis tier into
// a single read-through cache: reads check memory first and fall back to
// Redis (filling memory on the way back), writes go to both.
type TieredPreviewCache struct {
	l1 *MemoryPreviewCache
	l2 *RedisPreviewCache
}

// NewTieredPreviewCache builds the two-tier cache. Either tier may be nil,
// in which case only the other is used.
func NewTieredPreviewCache(l1 *MemoryPreviewCache, l2 *RedisPreviewCache) *TieredPreviewCache {
	return &TieredPreviewCache{l1: l1, l2: l2}
}

// Get checks L1, then L2. An L2 hit back-fills L1 so subsequent reads stay
// in-process.
func (c *TieredPreviewCache) Get(ctx context.Context, key segment.PreviewKey) (*segment.Preview, bool) {
	if c.l1 != nil {
		if preview, ok := c.l1.Get(ctx, key); ok {
			return preview, true
		}
	}

	if c.l2 != nil {
		if preview, ok := c.l2.Get(ctx, key); ok {
			if c.l1 != nil {
				c.l1.Set(ctx, key, preview)
			}
			return preview, true
		}
	}

	return nil, false
}

// Set writes through to both tiers.
func (c *TieredPreviewCache) Set(ctx context.Context, key segment.PreviewKey, preview *segment.Preview) {
	if c.l1 != nil {
		c.l1.Set(ctx, key, preview)
	}
	if c.l2 != nil {
		c.l2.Set(ctx, key, preview)
	}
}
