package models

import (
	"time"

	"gorm.io/datatypes"
)

// Feedback kinds.
const (
	FeedbackKindComparison  = "comparison"
	FeedbackKindCustomScore = "custom_score"
	FeedbackKindComment     = "comment"
	FeedbackKindIssueMark   = "issue_mark"
)

// Feedback is an append-only reviewer annotation on an evaluation and,
// optionally, one of its scores. Data is stored verbatim.
type Feedback struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	EvaluationID uint              `gorm:"not null;index" json:"evaluation_id"`
	ScoreID      *uint             `gorm:"index" json:"score_id"`
	AuthorID     string            `gorm:"size:32;not null;index" json:"author_id"`
	Kind         string            `gorm:"size:50;not null" json:"kind"`
	Data         datatypes.JSONMap `gorm:"not null" json:"data"`
	Active       bool              `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time         `json:"created_at"`
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Genre{},
		&Grade{},
		&Batch{},
		&Essay{},
		&Prompt{},
		&Evaluation{},
		&Score{},
		&Feedback{},
	}
}
