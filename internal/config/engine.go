package config

import (
	"fmt"
	"time"
)

// EngineConfig tunes the segment resolution engine.
type EngineConfig struct {
	// MembershipBatchSize is the page size used when reading subject ids
	// for a tag. Memberships are accumulated page by page until a short
	// page signals the end of the data.
	MembershipBatchSize int `envconfig:"MEMBERSHIP_BATCH_SIZE" default:"1000" validate:"min=1"`

	// MaxGroupDepth bounds rule tree nesting to protect against
	// pathological or adversarial rule definitions.
	MaxGroupDepth int `envconfig:"MAX_GROUP_DEPTH" default:"16" validate:"min=1"`

	// PreviewCacheTTL is how long a computed segment preview stays fresh.
	PreviewCacheTTL time.Duration `envconfig:"PREVIEW_CACHE_TTL" default:"5m" validate:"gt=0"`

	// PreviewCacheCapacity caps the number of entries in the in-process
	// preview cache. The expected cardinality of (segment, page) pairs is
	// small, so the cap exists only to bound worst-case memory.
	PreviewCacheCapacity int `envconfig:"PREVIEW_CACHE_CAPACITY" default:"1024" validate:"min=1"`
}

// Validate checks EngineConfig fields for correctness.
func (e *EngineConfig) Validate() error {
	// The batch size doubles as the hydration page cap; keep it within
	// the range Postgres handles comfortably in an IN clause.
	if e.MembershipBatchSize > 10_000 {
		return fmt.Errorf("membership batch size must not exceed 10000, got %d", e.MembershipBatchSize)
	}
	return nil
}
