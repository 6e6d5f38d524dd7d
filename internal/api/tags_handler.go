package api

import (
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mveiga/cohort/internal/logger"
	"github.com/mveiga/cohort/internal/store"
)

// handleCreateTag processes POST /api/v1/tags.
func (a *API) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreateTagRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	tag := &store.Tag{
		Name:   req.Name,
		TypeID: req.TypeID,
	}

	if err := a.tags.CreateTag(r.Context(), tag); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_CONFLICT",
				Message: "A tag with this name already exists",
			})
			return
		}

		log.Error("failed to create tag in db", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to create tag in database",
		})
		return
	}

	log.Info("tag created successfully", slog.String("tag_id", tag.ID), slog.String("tag_name", tag.Name))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mapStoreTagToResponse(tag))
}

// handleListTags processes GET /api/v1/tags with page/page_size pagination.
func (a *API) handleListTags(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	page, err := parseOptionalInt(r, "page", 1)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	pageSize, err := parseOptionalInt(r, "page_size", 10)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	// Silently correct out-of-bounds values.
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize

	tags, totalItems, err := a.tags.ListTags(r.Context(), pageSize, offset)
	if err != nil {
		log.Error("failed to list tags from db", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to list tags",
		})
		return
	}

	dtos := make([]Tag, len(tags))
	for i, t := range tags {
		dtos[i] = mapStoreTagToResponse(t)
	}

	totalPages := 0
	if totalItems > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(pageSize)))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PaginatedResponse{
		Data: dtos,
		Pagination: Pagination{
			TotalItems:  totalItems,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    pageSize,
		},
	})
}

// mapStoreTagToResponse converts the DB entity to the API response DTO.
func mapStoreTagToResponse(t *store.Tag) Tag {
	return Tag{
		ID:        t.ID,
		Name:      t.Name,
		TypeID:    t.TypeID,
		CreatedAt: t.CreatedAt,
	}
}
