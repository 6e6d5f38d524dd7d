package config

import (
	"fmt"
	"strings"
	"time"
)

// ObservabilityConfig configures the sidecar listener that serves probes
// and the Prometheus scrape endpoint. Both the API and the refresher run
// one, on their own port, next to their business listener.
type ObservabilityConfig struct {
	Port    string        `envconfig:"PORT" default:"9090"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s" validate:"min=1s"`

	// Probe and scrape paths, overridable for clusters that reserve the
	// conventional routes for a mesh sidecar.
	LivenessPath  string `envconfig:"LIVENESS_PATH" default:"/healthz"`
	ReadinessPath string `envconfig:"READINESS_PATH" default:"/readyz"`
	MetricsPath   string `envconfig:"METRICS_PATH" default:"/metrics"`
}

// Validate checks the listener port and rejects probe paths that would not
// route or would shadow each other on the mux.
func (o *ObservabilityConfig) Validate() error {
	if err := validatePort(o.Port, "observability"); err != nil {
		return err
	}

	paths := []struct {
		name string
		path string
	}{
		{"liveness", o.LivenessPath},
		{"readiness", o.ReadinessPath},
		{"metrics", o.MetricsPath},
	}
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p.path, "/") {
			return fmt.Errorf("observability %s path must start with '/', got %q", p.name, p.path)
		}
		if other, dup := seen[p.path]; dup {
			return fmt.Errorf("observability %s path %q collides with the %s path", p.name, p.path, other)
		}
		seen[p.path] = p.name
	}

	return nil
}
