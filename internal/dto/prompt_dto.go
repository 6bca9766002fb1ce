package dto

import (
	"time"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

// PromptCreateRequest captures a new prompt version.
type PromptCreateRequest struct {
	GradeID     uint   `json:"grade_id" validate:"required,gt=0"`
	GenreID     uint   `json:"genre_id" validate:"required,gt=0"`
	Kind        string `json:"kind" validate:"required,oneof=analyze score"`
	VersionName string `json:"version_name" validate:"required,max=50"`
	Content     string `json:"content" validate:"required"`
	IsDefault   bool   `json:"is_default"`
}

// PromptUpdateRequest captures partial prompt updates.
type PromptUpdateRequest struct {
	VersionName *string `json:"version_name" validate:"omitempty,min=1,max=50"`
	Content     *string `json:"content" validate:"omitempty,min=1"`
	IsDefault   *bool   `json:"is_default"`
}

// PromptListRequest filters prompt listings.
type PromptListRequest struct {
	GradeID  uint   `query:"grade_id"`
	GenreID  uint   `query:"genre_id"`
	Kind     string `query:"kind" validate:"omitempty,oneof=analyze score"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// PromptDefaultRequest selects the default prompt for a key.
type PromptDefaultRequest struct {
	GradeID uint   `query:"grade_id" validate:"required,gt=0"`
	GenreID uint   `query:"genre_id" validate:"required,gt=0"`
	Kind    string `query:"kind" validate:"required,oneof=analyze score"`
}

// PromptResponse represents a prompt version.
type PromptResponse struct {
	ID          uint           `json:"id"`
	GradeID     uint           `json:"grade_id"`
	GenreID     uint           `json:"genre_id"`
	Kind        string         `json:"kind"`
	VersionName string         `json:"version_name"`
	Content     string         `json:"content"`
	IsDefault   bool           `json:"is_default"`
	CreatedBy   string         `json:"created_by"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Grade       *GradeResponse `json:"grade,omitempty"`
	Genre       *GenreResponse `json:"genre,omitempty"`
}

// PromptListResponse wraps a page of prompts.
type PromptListResponse struct {
	Items      []PromptResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// NewPromptResponse converts a prompt model. Associations are included only
// when preloaded.
func NewPromptResponse(prompt models.Prompt) PromptResponse {
	response := PromptResponse{
		ID:          prompt.ID,
		GradeID:     prompt.GradeID,
		GenreID:     prompt.GenreID,
		Kind:        prompt.Kind,
		VersionName: prompt.VersionName,
		Content:     prompt.Content,
		IsDefault:   prompt.IsDefault,
		CreatedBy:   prompt.CreatedBy,
		Active:      prompt.Active,
		CreatedAt:   prompt.CreatedAt,
		UpdatedAt:   prompt.UpdatedAt,
	}
	if prompt.Grade.ID != 0 {
		grade := NewGradeResponse(prompt.Grade)
		response.Grade = &grade
	}
	if prompt.Genre.ID != 0 {
		genre := NewGenreResponse(prompt.Genre)
		response.Genre = &genre
	}
	return response
}
