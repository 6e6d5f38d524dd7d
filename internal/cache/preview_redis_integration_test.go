//go:build integration

package cache_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveiga/cohort/internal/cache"
	"github.com/mveiga/cohort/internal/segment"
	"github.com/mveiga/cohort/internal/testsupport"
)

// setupRedisCache spins up a real Redis container and wires the L2 tier
// against it.
func setupRedisCache(t *testing.T, ttl time.Duration) (*cache.RedisPreviewCache, func()) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx := context.Background()
	redisContainer, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err, "failed to start redis container")

	previewCache := cache.NewRedisPreviewCache(redisContainer.Client, ttl, log)

	cleanup := func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	}

	return previewCache, cleanup
}

func TestRedisPreviewCache_RoundTrip(t *testing.T) {
	previewCache, cleanup := setupRedisCache(t, time.Minute)
	defer cleanup()

	ctx := context.Background()
	key := segment.PreviewKey{SegmentID: "seg-1", Limit: 10, Offset: 0}
	preview := &segment.Preview{
		Count: 7,
		SampleUsers: []segment.SampleUser{
			{ID: "u1", Email: "a@example.com", Name: "Alice Adams"},
			{ID: "u2", Email: "b@example.com", Name: "No Name"},
		},
	}

	previewCache.Set(ctx, key, preview)

	got, ok := previewCache.Get(ctx, key)
	require.True(t, ok, "entry should survive the redis round trip")
	assert.Equal(t, preview, got)
}

func TestRedisPreviewCache_MissOnUnknownKey(t *testing.T) {
	previewCache, cleanup := setupRedisCache(t, time.Minute)
	defer cleanup()

	_, ok := previewCache.Get(context.Background(), segment.PreviewKey{SegmentID: "seg-missing"})
	assert.False(t, ok)
}

func TestRedisPreviewCache_TTLExpiry(t *testing.T) {
	previewCache, cleanup := setupRedisCache(t, time.Second)
	defer cleanup()

	ctx := context.Background()
	key := segment.PreviewKey{SegmentID: "seg-1", Limit: 10, Offset: 0}
	previewCache.Set(ctx, key, &segment.Preview{Count: 1, SampleUsers: []segment.SampleUser{}})

	_, ok := previewCache.Get(ctx, key)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := previewCache.Get(ctx, key)
		return !ok
	}, 5*time.Second, 250*time.Millisecond, "entry should expire after the redis TTL")
}

func TestTieredPreviewCache_L2HitBackfillsL1(t *testing.T) {
	redisCache, cleanup := setupRedisCache(t, time.Minute)
	defer cleanup()

	l1, err := cache.NewMemoryPreviewCache(16, time.Minute)
	require.NoError(t, err)
	defer l1.Close()

	tiered := cache.NewTieredPreviewCache(l1, redisCache)

	ctx := context.Background()
	key := segment.PreviewKey{SegmentID: "seg-1", Limit: 10, Offset: 0}
	preview := &segment.Preview{Count: 3, SampleUsers: []segment.SampleUser{}}

	// Populate only the shared tier, simulating a warm-up from another
	// process.
	redisCache.Set(ctx, key, preview)

	got, ok := tiered.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, preview, got)

	// The hit must now be served in-process.
	fromL1, ok := l1.Get(ctx, key)
	require.True(t, ok, "the L2 hit should have back-filled L1")
	assert.Equal(t, preview, fromL1)
}
