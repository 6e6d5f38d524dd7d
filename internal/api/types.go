package api

import (
	"strings"
	"time"

	"github.com/mveiga/cohort/internal/segment"
)

// PreviewRequest is the payload of the ad-hoc preview endpoint: a rule
// tree to evaluate plus optional pagination.
type PreviewRequest struct {
	Rules  segment.Rules `json:"rules"`
	Limit  int           `json:"limit,omitempty"`
	Offset int           `json:"offset,omitempty"`
}

// Validate checks the request against the engine's rule constraints.
// It returns a structured *ErrorResponse if validation fails, or nil if valid.
func (r *PreviewRequest) Validate(maxDepth int) *ErrorResponse {
	if r.Limit < 0 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Limit must not be negative",
		}
	}
	if r.Offset < 0 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Offset must not be negative",
		}
	}

	if err := segment.ValidateRules(r.Rules, maxDepth); err != nil {
		return &ErrorResponse{
			Code:    "ERR_INVALID_RULES",
			Message: err.Error(),
		}
	}

	return nil
}

// Tag represents the tag resource exposed by the API.
type Tag struct {
	// ID is the immutable identifier.
	ID string `json:"id"`

	// Name is the human-readable label. Unique.
	Name string `json:"name"`

	// TypeID optionally assigns the tag to a grouping category.
	TypeID *string `json:"type_id,omitempty"`

	// CreatedAt is the timestamp of creation in UTC.
	CreatedAt time.Time `json:"created_at"`
}

// CreateTagRequest defines the payload for creating a new tag.
type CreateTagRequest struct {
	Name   string  `json:"name"`
	TypeID *string `json:"type_id,omitempty"`
}

// Sanitize cleans up input data by trimming whitespace.
func (r *CreateTagRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.TypeID != nil {
		trimmed := strings.TrimSpace(*r.TypeID)
		r.TypeID = &trimmed
	}
}

// Validate checks if the request data adheres to business rules.
func (r *CreateTagRequest) Validate() *ErrorResponse {
	if r.Name == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Name is required",
		}
	}
	if len(r.Name) > 255 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Name must be less than 255 characters",
		}
	}
	return nil
}

// PaginatedResponse is a standard wrapper for list endpoints to support offset pagination.
type PaginatedResponse struct {
	// Data holds the list of resources (e.g., []Tag).
	Data interface{} `json:"data"`

	// Pagination contains paging metadata.
	Pagination Pagination `json:"pagination"`
}

// Pagination metadata for the frontend pager.
type Pagination struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`
}
