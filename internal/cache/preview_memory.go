package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter"

	"github.com/mveiga/cohort/internal/observability"
	"github.com/mveiga/cohort/internal/segment"
)

// Compile-time check against the engine's cache contract.
var _ segment.PreviewCache = (*MemoryPreviewCache)(nil)

// MemoryPreviewCache is the process-local preview tier, backed by the
// contention-free S3-FIFO cache from the 'otter' library.
//
// TTL staleness is enforced by otter itself; the capacity cap bounds
// worst-case memory for deployments with many (segment, page)
// combinations.
type MemoryPreviewCache struct {
	store otter.Cache[string, *segment.Preview]
}

// NewMemoryPreviewCache initializes the in-memory tier.
// capacity: max number of cached pages. ttl: freshness window per entry.
func NewMemoryPreviewCache(capacity int, ttl time.Duration) (*MemoryPreviewCache, error) {
	store, err := otter.MustBuilder[string, *segment.Preview](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &MemoryPreviewCache{store: store}, nil
}

// Get retrieves a cached preview page. The context is unused; the lookup
// is purely in-process.
func (c *MemoryPreviewCache) Get(_ context.Context, key segment.PreviewKey) (*segment.Preview, bool) {
	preview, found := c.store.Get(key.String())
	if found {
		observability.PreviewCacheHits.WithLabelValues("memory").Inc()
	} else {
		observability.PreviewCacheMisses.WithLabelValues("memory").Inc()
	}
	return preview, found
}

// Set stores a preview page. The configured TTL applies automatically.
func (c *MemoryPreviewCache) Set(_ context.Context, key segment.PreviewKey, preview *segment.Preview) {
	c.store.Set(key.String(), preview)
}

// Close shuts down the cache and its background cleanup goroutines.
func (c *MemoryPreviewCache) Close() {
	c.store.Close()
}
