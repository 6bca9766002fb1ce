package dto

import (
	"time"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

// AnalyzeRequest starts a new evaluation for an essay.
type AnalyzeRequest struct {
	EssayID         uint `json:"essay_id" validate:"required,gt=0"`
	AnalyzePromptID uint `json:"analyze_prompt_id" validate:"required,gt=0"`
}

// ConfirmRequest records the reviewer's genre and grade decision.
type ConfirmRequest struct {
	GenreID uint `json:"genre_id" validate:"required,gt=0"`
	GradeID uint `json:"grade_id" validate:"required,gt=0"`
}

// DetectGenreRequest classifies raw essay text without persisting anything.
type DetectGenreRequest struct {
	Content     string `json:"content" validate:"required"`
	Requirement string `json:"requirement"`
}

// EvaluationListRequest pages through an essay's evaluations.
type EvaluationListRequest struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// DetectionResponse is the catalog-resolved genre/grade proposal.
type DetectionResponse struct {
	GenreID    uint    `json:"genre_id"`
	GenreCode  string  `json:"genre_code"`
	GenreName  string  `json:"genre_name"`
	GradeID    uint    `json:"grade_id"`
	GradeLevel int     `json:"grade_level"`
	GradeName  string  `json:"grade_name"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"fallback"`
}

// EvaluationResponse represents one analysis pass.
type EvaluationResponse struct {
	ID                   uint                   `json:"id"`
	EssayID              uint                   `json:"essay_id"`
	ReviewerID           string                 `json:"reviewer_id"`
	AnalyzePromptID      uint                   `json:"analyze_prompt_id"`
	AnalyzePromptVersion string                 `json:"analyze_prompt_version,omitempty"`
	Result               map[string]interface{} `json:"result"`
	DetectedGenreID      *uint                  `json:"detected_genre_id"`
	DetectedGradeID      *uint                  `json:"detected_grade_id"`
	GenreConfidence      *float64               `json:"genre_confidence"`
	ConfirmedGenreID     *uint                  `json:"confirmed_genre_id"`
	ConfirmedGradeID     *uint                  `json:"confirmed_grade_id"`
	ConfirmedAt          *time.Time             `json:"confirmed_at"`
	Confirmed            bool                   `json:"confirmed"`
	IsLatest             bool                   `json:"is_latest"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// EvaluationListResponse wraps a page of evaluations.
type EvaluationListResponse struct {
	Items      []EvaluationResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewEvaluationResponse converts an evaluation model.
func NewEvaluationResponse(evaluation models.Evaluation) EvaluationResponse {
	result := map[string]interface{}{}
	if evaluation.Result != nil {
		result = map[string]interface{}(evaluation.Result)
	}
	return EvaluationResponse{
		ID:                   evaluation.ID,
		EssayID:              evaluation.EssayID,
		ReviewerID:           evaluation.ReviewerID,
		AnalyzePromptID:      evaluation.AnalyzePromptID,
		AnalyzePromptVersion: evaluation.AnalyzePrompt.VersionName,
		Result:               result,
		DetectedGenreID:      evaluation.DetectedGenreID,
		DetectedGradeID:      evaluation.DetectedGradeID,
		GenreConfidence:      evaluation.GenreConfidence,
		ConfirmedGenreID:     evaluation.ConfirmedGenreID,
		ConfirmedGradeID:     evaluation.ConfirmedGradeID,
		ConfirmedAt:          evaluation.ConfirmedAt,
		Confirmed:            evaluation.IsConfirmed(),
		IsLatest:             evaluation.IsLatest,
		CreatedAt:            evaluation.CreatedAt,
		UpdatedAt:            evaluation.UpdatedAt,
	}
}
