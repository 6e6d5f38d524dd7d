package config

import "time"

// RefresherConfig contains configuration for the preview refresher worker.
type RefresherConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`

	// Interval is the duration between refresh cycles.
	Interval time.Duration `envconfig:"INTERVAL" default:"5m" validate:"gt=0"`

	// PreviewLimit is the page size warmed for each segment.
	PreviewLimit int `envconfig:"PREVIEW_LIMIT" default:"10" validate:"min=1"`

	// Concurrency bounds how many segments are refreshed at once.
	Concurrency int `envconfig:"CONCURRENCY" default:"4" validate:"min=1"`
}

// Validate checks RefresherConfig fields for correctness.
func (r *RefresherConfig) Validate() error {
	return nil
}
