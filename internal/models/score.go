package models

import "time"

// Score kinds.
const (
	ScoreKindAI   = "ai"
	ScoreKindUser = "user"
)

// SystemScorer identifies scores produced without a human scorer.
const SystemScorer = "system"

// Score is one scoring pass over an evaluation. Per evaluation, at most one
// active score has IsDefault set. TotalScore is on the essay's scale.
type Score struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	EvaluationID       uint       `gorm:"not null;index:idx_score_default" json:"evaluation_id"`
	ScorerID           string     `gorm:"size:32;not null;index" json:"scorer_id"`
	ScorePromptID      uint       `gorm:"not null" json:"score_prompt_id"`
	Kind               string     `gorm:"size:20;not null" json:"kind"`
	ScoreSystem        int        `gorm:"not null" json:"score_system"`
	TotalScore         float64    `gorm:"not null" json:"total_score"`
	DimensionSum       float64    `gorm:"not null" json:"dimension_sum"`
	ThemeAndIntent     float64    `gorm:"not null" json:"theme_and_intent"`
	LanguageExpression float64    `gorm:"not null" json:"language_expression"`
	Structure          float64    `gorm:"not null" json:"structure"`
	ContentSelection   float64    `gorm:"not null" json:"content_selection"`
	EmotionAndContent  float64    `gorm:"not null" json:"emotion_and_content"`
	RawResponse        string     `gorm:"type:text" json:"-"`
	IsDefault          bool       `gorm:"not null;default:false;index:idx_score_default" json:"is_default"`
	Active             bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Evaluation         Evaluation `gorm:"constraint:OnUpdate:CASCADE" json:"-"`
	ScorePrompt        Prompt     `json:"score_prompt"`
}
