package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mveiga/cohort/internal/logger"
	"github.com/mveiga/cohort/internal/segment"
)

// handleAdHocPreview processes POST /api/v1/segments/preview.
//
// It evaluates a rule tree supplied in the request body without requiring
// a persisted segment, for authoring UIs that preview while the user edits.
func (a *API) handleAdHocPreview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req PreviewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	if errResp := req.Validate(a.maxGroupDepth); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	preview, err := a.previewer.UsersByRules(r.Context(), req.Rules, req.Limit, req.Offset)
	if err != nil {
		// Resolution failures degrade to an empty preview rather than an
		// error page: a broken preview widget must not take down the
		// authoring flow. The diagnostic lands in the log.
		log.Error("ad-hoc preview failed", slog.String("error", err.Error()))
		render.Status(r, http.StatusOK)
		render.JSON(w, r, emptyPreview())
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, preview)
}

// handleSegmentPreview processes GET /api/v1/segments/{id}/preview.
//
// Results are served through the preview cache; repeated page requests
// within the TTL do not re-resolve the segment.
func (a *API) handleSegmentPreview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	segmentID := chi.URLParam(r, "id")
	if segmentID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Segment ID is required",
		})
		return
	}

	limit, err := parseOptionalInt(r, "limit", segment.DefaultPreviewLimit)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	offset, err := parseOptionalInt(r, "offset", 0)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	// Clamp out-of-bounds values instead of erroring.
	if limit < 1 {
		limit = segment.DefaultPreviewLimit
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	preview, err := a.previewer.CachedSegmentPreview(r.Context(), segmentID, limit, offset)
	if err != nil {
		// Same degradation contract as the ad-hoc endpoint: a failed or
		// missing segment surfaces as zero matching subjects.
		log.Error("segment preview failed",
			slog.String("segment_id", segmentID),
			slog.String("error", err.Error()),
		)
		render.Status(r, http.StatusOK)
		render.JSON(w, r, emptyPreview())
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, preview)
}

// parseOptionalInt extracts an integer from the query string.
// If the parameter is missing, it returns the defaultValue.
// It only returns an error if the parameter is present but malformed.
func parseOptionalInt(r *http.Request, key string, defaultValue int) (int, error) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' must be an integer", key)
	}
	return val, nil
}

func emptyPreview() *segment.Preview {
	return &segment.Preview{Count: 0, SampleUsers: []segment.SampleUser{}}
}
