//go:build integration

package observability_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveiga/cohort/internal/cache"
	"github.com/mveiga/cohort/internal/config"
	"github.com/mveiga/cohort/internal/database"
	"github.com/mveiga/cohort/internal/logger"
	"github.com/mveiga/cohort/internal/observability"
	"github.com/mveiga/cohort/internal/testsupport"
)

func TestObservabilityServer_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	redisContainer, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	pgChecker := database.NewHealthChecker(pgContainer.DB)
	redisChecker := cache.NewHealthChecker(redisContainer.Client)

	freePort, err := getFreePort()
	require.NoError(t, err)

	// Non-default paths prove the server respects its configuration
	// instead of hardcoded routes.
	livenessPath := "/alive"
	readinessPath := "/check-deps"
	metricsPath := "/telemetry"

	appCfg := &config.AppConfig{
		Name:        "cohort-test",
		Version:     "v0.0.0-test",
		Environment: "development",
		LogLevel:    "debug",
		LogFormat:   "text",
	}

	obsCfg := &config.ObservabilityConfig{
		Port:          fmt.Sprintf("%d", freePort),
		Timeout:       1 * time.Second,
		LivenessPath:  livenessPath,
		ReadinessPath: readinessPath,
		MetricsPath:   metricsPath,
	}

	log := logger.New(appCfg)

	server := observability.NewServer(log, obsCfg, pgChecker, redisChecker)
	require.NoError(t, server.Start())
	defer func() { _ = server.Shutdown(ctx) }()

	baseURL := fmt.Sprintf("http://localhost:%d", freePort)

	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + livenessPath)
		if err == nil {
			resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}
		return false
	}, 5*time.Second, 100*time.Millisecond, "server failed to start")

	t.Run("Liveness should return 200 OK on custom path", func(t *testing.T) {
		resp, err := http.Get(baseURL + livenessPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "ok", string(body))
	})

	t.Run("Metrics should be exposed on custom path", func(t *testing.T) {
		resp, err := http.Get(baseURL + metricsPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)

		bodyStr := string(body)
		assert.Contains(t, bodyStr, "go_goroutines")
		assert.Contains(t, bodyStr, "cohort_")
	})

	t.Run("Readiness should return 200 OK when deps are healthy", func(t *testing.T) {
		resp, err := http.Get(baseURL + readinessPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)

		statusMap := body["status"].(map[string]any)
		assert.Equal(t, "up", statusMap["postgres"])
		assert.Equal(t, "up", statusMap["redis"])
	})

	t.Run("Readiness should fail (503) when Redis is down", func(t *testing.T) {
		_ = redisContainer.Container.Stop(ctx, nil)

		// Allow some time for the client to detect the connection loss.
		time.Sleep(200 * time.Millisecond)

		resp, err := http.Get(baseURL + readinessPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		statusMap := body["status"].(map[string]any)

		redisStatus := statusMap["redis"].(string)
		assert.Contains(t, redisStatus, "down")
	})
}

// getFreePort asks the kernel for a free TCP port.
func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
