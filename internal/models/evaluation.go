package models

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation is one analysis pass over an essay. Per essay, at most one active
// evaluation has IsLatest set. Confirmed genre and grade stay nil until a
// reviewer confirms them.
type Evaluation struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	EssayID          uint              `gorm:"not null;index:idx_evaluation_latest" json:"essay_id"`
	ReviewerID       string            `gorm:"size:32;not null;index" json:"reviewer_id"`
	AnalyzePromptID  uint              `gorm:"not null" json:"analyze_prompt_id"`
	Result           datatypes.JSONMap `gorm:"not null" json:"result"`
	DetectedGenreID  *uint             `json:"detected_genre_id"`
	DetectedGradeID  *uint             `json:"detected_grade_id"`
	GenreConfidence  *float64          `json:"genre_confidence"`
	ConfirmedGenreID *uint             `json:"confirmed_genre_id"`
	ConfirmedGradeID *uint             `json:"confirmed_grade_id"`
	ConfirmedAt      *time.Time        `json:"confirmed_at"`
	IsLatest         bool              `gorm:"not null;default:false;index:idx_evaluation_latest" json:"is_latest"`
	Active           bool              `gorm:"not null;default:true" json:"active"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Essay            Essay             `gorm:"constraint:OnUpdate:CASCADE" json:"essay"`
	AnalyzePrompt    Prompt            `json:"analyze_prompt"`
}

// IsConfirmed reports whether a reviewer has confirmed genre and grade.
func (e Evaluation) IsConfirmed() bool {
	return e.ConfirmedGenreID != nil && e.ConfirmedGradeID != nil
}
