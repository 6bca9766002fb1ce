package dto

import (
	"time"

	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/pkg/scoring"
)

// ScoreRequest runs the scoring stage. When both confirmed ids are present the
// evaluation is confirmed first.
type ScoreRequest struct {
	ScorePromptID    uint   `json:"score_prompt_id" validate:"required,gt=0"`
	ScoreType        string `json:"score_type" validate:"omitempty,oneof=ai user"`
	ConfirmedGenreID *uint  `json:"confirmed_genre_id" validate:"omitempty,gt=0"`
	ConfirmedGradeID *uint  `json:"confirmed_grade_id" validate:"omitempty,gt=0"`
}

// ScoreResponse represents one scoring pass. TotalScore is the stored
// truncated total; RoundedTotal keeps one decimal for display.
type ScoreResponse struct {
	ID                 uint                              `json:"id"`
	EvaluationID       uint                              `json:"evaluation_id"`
	ScorerID           string                            `json:"scorer_id"`
	ScorePromptID      uint                              `json:"score_prompt_id"`
	ScorePromptVersion string                            `json:"score_prompt_version,omitempty"`
	Kind               string                            `json:"kind"`
	ScoreSystem        int                               `json:"score_system"`
	TotalScore         float64                           `json:"total_score"`
	RoundedTotal       float64                           `json:"rounded_total"`
	DimensionSum       float64                           `json:"dimension_sum"`
	Dimensions         map[string]scoring.DimensionScore `json:"dimensions"`
	IsDefault          bool                              `json:"is_default"`
	CreatedAt          time.Time                         `json:"created_at"`
}

// ScoreListResponse lists an evaluation's scores, newest first.
type ScoreListResponse struct {
	Items []ScoreResponse `json:"items"`
}

// NewScoreResponse converts a score model.
func NewScoreResponse(score models.Score) ScoreResponse {
	dimensions := scoring.Dimensions{
		ThemeAndIntent:     score.ThemeAndIntent,
		LanguageExpression: score.LanguageExpression,
		Structure:          score.Structure,
		ContentSelection:   score.ContentSelection,
		EmotionAndContent:  score.EmotionAndContent,
	}
	return ScoreResponse{
		ID:                 score.ID,
		EvaluationID:       score.EvaluationID,
		ScorerID:           score.ScorerID,
		ScorePromptID:      score.ScorePromptID,
		ScorePromptVersion: score.ScorePrompt.VersionName,
		Kind:               score.Kind,
		ScoreSystem:        score.ScoreSystem,
		TotalScore:         score.TotalScore,
		RoundedTotal:       scoring.NormalizeRounded(score.DimensionSum, scoring.Scale(score.ScoreSystem)),
		DimensionSum:       score.DimensionSum,
		Dimensions:         dimensions.Breakdown(),
		IsDefault:          score.IsDefault,
		CreatedAt:          score.CreatedAt,
	}
}
