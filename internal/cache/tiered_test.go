package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveiga/cohort/internal/segment"
)

func TestTieredPreviewCache_MemoryTierOnly(t *testing.T) {
	t.Parallel()

	l1, err := NewMemoryPreviewCache(16, time.Minute)
	require.NoError(t, err)
	defer l1.Close()

	tiered := NewTieredPreviewCache(l1, nil)

	key := segment.PreviewKey{SegmentID: "seg-1", Limit: 10, Offset: 0}
	preview := &segment.Preview{Count: 3, SampleUsers: []segment.SampleUser{}}

	tiered.Set(context.Background(), key, preview)

	got, ok := tiered.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, preview, got)
}

func TestTieredPreviewCache_NoTiersIsAlwaysMiss(t *testing.T) {
	t.Parallel()

	tiered := NewTieredPreviewCache(nil, nil)

	key := segment.PreviewKey{SegmentID: "seg-1", Limit: 10, Offset: 0}
	tiered.Set(context.Background(), key, &segment.Preview{Count: 1})

	got, ok := tiered.Get(context.Background(), key)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestTieredPreviewCache_MissOnUnknownKey(t *testing.T) {
	t.Parallel()

	l1, err := NewMemoryPreviewCache(16, time.Minute)
	require.NoError(t, err)
	defer l1.Close()

	tiered := NewTieredPreviewCache(l1, nil)

	_, ok := tiered.Get(context.Background(), segment.PreviewKey{SegmentID: "seg-unknown"})
	assert.False(t, ok)
}
