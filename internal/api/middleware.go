package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/mveiga/cohort/internal/observability"
)

// RequestLogger logs the completion of each request with structured
// attributes: RequestID, method, path, status, and duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := middleware.GetReqID(r.Context())

		// Wrap the ResponseWriter to capture the status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		// Info for success, Warn for 4xx, Error for 5xx
		level := slog.LevelInfo
		status := ww.Status()

		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		slog.Log(r.Context(), level, "HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", duration.String(),
			"request_id", reqID,
			"remote_ip", r.RemoteAddr,
		)
	})
}

// RequestMetrics records Prometheus telemetry for every request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern, not the raw path, to keep label
		// cardinality bounded.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		observability.APIReqDuration.WithLabelValues(r.Method, path).
			Observe(time.Since(start).Seconds())
		observability.APIReqTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
	})
}

// authenticateAPIKey validates the X-API-Key header against the configured
// SHA-256 hash. Comparison happens on hashes, in constant time, so the
// plaintext key is never stored server-side.
func (a *API) authenticateAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_UNAUTHORIZED",
				Message: "Missing API key",
			})
			return
		}

		sum := sha256.Sum256([]byte(key))
		got := hex.EncodeToString(sum[:])

		if subtle.ConstantTimeCompare([]byte(got), []byte(a.apiKeyHash)) != 1 {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_UNAUTHORIZED",
				Message: "Invalid API key",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
