package models

import (
	"time"

	"gorm.io/datatypes"
)

// Batch groups essays written for the same title and requirement.
type Batch struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	DirectoryName    string    `gorm:"size:100;not null;uniqueIndex" json:"directory_name"`
	EssayTitle       string    `gorm:"type:text;not null" json:"essay_title"`
	EssayRequirement string    `gorm:"type:text" json:"essay_requirement"`
	GradeID          *uint     `gorm:"index" json:"grade_id"`
	SuggestedGenreID *uint     `json:"suggested_genre_id"`
	EssayCount       int       `gorm:"default:0" json:"essay_count"`
	Active           bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Essay is an ingested student essay. The grading workflow never mutates it.
type Essay struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	BatchID           uint              `gorm:"not null;index" json:"batch_id"`
	StudentName       string            `gorm:"size:100;index" json:"student_name"`
	Content           string            `gorm:"type:text;not null" json:"content"`
	WordCount         int               `gorm:"not null" json:"word_count"`
	ScoreSystem       int               `gorm:"not null;default:40;index" json:"score_system"`
	OriginalScore     *float64          `json:"original_score"`
	OriginalScoreData datatypes.JSONMap `json:"original_score_data"`
	Active            bool              `gorm:"not null;default:true" json:"active"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Batch             Batch             `gorm:"constraint:OnUpdate:CASCADE" json:"batch"`
}

// Title returns the batch title, or an empty string when the batch is not loaded.
func (e Essay) Title() string {
	return e.Batch.EssayTitle
}

// Requirement returns the batch requirement text.
func (e Essay) Requirement() string {
	return e.Batch.EssayRequirement
}
