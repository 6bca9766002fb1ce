package models

import "time"

// Prompt kinds.
const (
	PromptKindAnalyze = "analyze"
	PromptKindScore   = "score"
)

// Prompt is a versioned model instruction for one (grade, genre, kind).
// At most one active prompt per key carries IsDefault.
type Prompt struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GradeID     uint      `gorm:"not null;index:idx_prompt_key" json:"grade_id"`
	GenreID     uint      `gorm:"not null;index:idx_prompt_key" json:"genre_id"`
	Kind        string    `gorm:"size:20;not null;index:idx_prompt_key" json:"kind"`
	VersionName string    `gorm:"size:50;not null" json:"version_name"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	IsDefault   bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedBy   string    `gorm:"size:32;index" json:"created_by"`
	Active      bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Grade       Grade     `json:"grade"`
	Genre       Genre     `json:"genre"`
}
