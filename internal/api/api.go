// Package api implements the REST surface of Cohort: segment previews
// and tag administration.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/mveiga/cohort/internal/segment"
	"github.com/mveiga/cohort/internal/store"
)

// API holds dependencies and the router for the REST surface.
// It follows the dependency injection pattern to facilitate testing.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// previewer runs the segment resolution pipeline.
	previewer *segment.Previewer

	// tags is the data access layer for tag administration.
	tags store.TagRepository

	// maxGroupDepth bounds rule tree nesting accepted by the ad-hoc
	// preview endpoint.
	maxGroupDepth int

	// apiKeyHash is the SHA-256 hash of the valid API key.
	apiKeyHash string

	// skipAuth disables authentication when true (test/dev environments only).
	skipAuth bool
}

// NewAPI creates a new API instance with authentication enabled.
// The apiKeyHash parameter must be the SHA-256 hash of the API key.
func NewAPI(previewer *segment.Previewer, tags store.TagRepository, maxGroupDepth int, apiKeyHash string) *API {
	return NewAPIWithConfig(previewer, tags, maxGroupDepth, apiKeyHash, false)
}

// NewAPIWithConfig creates a new API instance with explicit control over
// authentication. Primarily used in tests to disable authentication.
//
// Panics if previewer or tags are nil, or if apiKeyHash is empty while
// authentication is enabled.
func NewAPIWithConfig(previewer *segment.Previewer, tags store.TagRepository, maxGroupDepth int, apiKeyHash string, skipAuth bool) *API {
	if previewer == nil {
		panic("api: previewer cannot be nil")
	}
	if tags == nil {
		panic("api: tag repository cannot be nil")
	}
	if !skipAuth && apiKeyHash == "" {
		panic("api: apiKeyHash cannot be empty when authentication is enabled")
	}
	if maxGroupDepth <= 0 {
		maxGroupDepth = 16
	}

	a := &API{
		Router:        chi.NewRouter(),
		previewer:     previewer,
		tags:          tags,
		maxGroupDepth: maxGroupDepth,
		apiKeyHash:    apiKeyHash,
		skipAuth:      skipAuth,
	}

	a.configureRoutes()
	return a
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	// RequestID: unique id per request, essential for tracing.
	a.Router.Use(middleware.RequestID)
	// RealIP: correct client IP behind a proxy/LB.
	a.Router.Use(middleware.RealIP)
	// Structured request logging + Prometheus telemetry.
	a.Router.Use(RequestLogger)
	a.Router.Use(RequestMetrics)
	// Recoverer: panics become 500s instead of crashing the server.
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// Public routes
	a.Router.Get("/health", a.handleHealthCheck)

	// Protected API V1 routes
	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)

		r.Route("/segments", func(r chi.Router) {
			r.Post("/preview", a.handleAdHocPreview)
			r.Get("/{id}/preview", a.handleSegmentPreview)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Post("/", a.handleCreateTag)
			r.Get("/", a.handleListTags)
		})
	})
}

// handleHealthCheck reports whether the service is serving HTTP.
// Deep dependency checks live on the observability server's readiness probe.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
