package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveiga/cohort/internal/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       config.AppConfig
		logFn     func(l *slog.Logger)
		wantEmpty bool
		check     func(t *testing.T, output string)
	}{
		{
			name: "json format emits structured output with identity attributes",
			cfg: config.AppConfig{
				Name:        "cohort",
				Version:     "1.2.3",
				Environment: "production",
				LogLevel:    "info",
				LogFormat:   "json",
			},
			logFn: func(l *slog.Logger) { l.Info("hello") },
			check: func(t *testing.T, output string) {
				var entry map[string]any
				require.NoError(t, json.Unmarshal([]byte(output), &entry))
				assert.Equal(t, "hello", entry["msg"])
				assert.Equal(t, "cohort", entry["service"])
				assert.Equal(t, "1.2.3", entry["version"])
				assert.Equal(t, "production", entry["env"])
				assert.NotContains(t, entry, "source", "AddSource stays off in production")
			},
		},
		{
			name: "text format is human readable",
			cfg: config.AppConfig{
				Name:        "cohort",
				Environment: "development",
				LogLevel:    "info",
				LogFormat:   "text",
			},
			logFn: func(l *slog.Logger) { l.Info("hello") },
			check: func(t *testing.T, output string) {
				assert.Contains(t, output, "msg=hello")
				assert.Contains(t, output, "service=cohort")
			},
		},
		{
			name: "debug messages suppressed at info level",
			cfg: config.AppConfig{
				Name:        "cohort",
				Environment: "development",
				LogLevel:    "info",
				LogFormat:   "text",
			},
			logFn:     func(l *slog.Logger) { l.Debug("quiet") },
			wantEmpty: true,
		},
		{
			name: "debug level lets debug messages through",
			cfg: config.AppConfig{
				Name:        "cohort",
				Environment: "development",
				LogLevel:    "debug",
				LogFormat:   "text",
			},
			logFn: func(l *slog.Logger) { l.Debug("loud") },
			check: func(t *testing.T, output string) {
				assert.Contains(t, output, "loud")
			},
		},
		{
			name: "unknown format falls back to json",
			cfg: config.AppConfig{
				Name:        "cohort",
				Environment: "development",
				LogLevel:    "info",
				LogFormat:   "xml",
			},
			logFn: func(l *slog.Logger) { l.Info("hello") },
			check: func(t *testing.T, output string) {
				var entry map[string]any
				assert.NoError(t, json.Unmarshal([]byte(output), &entry))
			},
		},
		{
			name: "unknown level falls back to info",
			cfg: config.AppConfig{
				Name:        "cohort",
				Environment: "development",
				LogLevel:    "shouting",
				LogFormat:   "text",
			},
			logFn:     func(l *slog.Logger) { l.Debug("quiet") },
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logg := NewWithWriter(&tt.cfg, &buf)

			tt.logFn(logg)

			if tt.wantEmpty {
				assert.Empty(t, buf.String())
				return
			}

			require.NotEmpty(t, buf.String())
			if tt.check != nil {
				tt.check(t, buf.String())
			}
		})
	}
}

func TestNewWithWriter_NilConfigPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		NewWithWriter(nil, &bytes.Buffer{})
	})
}
