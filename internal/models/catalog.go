package models

import "time"

// Genre codes known to the workflow.
const (
	GenreCodeNarrative     = "narrative"
	GenreCodeArgumentative = "argumentative"
)

// Genre is a literary type essays are classified into.
type Genre struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;not null" json:"name"`
	Code        string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Description string    `gorm:"size:200" json:"description"`
	SortOrder   int       `gorm:"not null" json:"sort_order"`
	Active      bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Grade is a school grade. SortOrder holds the grade number (7, 8, 9).
type Grade struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Code      string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Level     string    `gorm:"size:20;not null" json:"level"`
	SortOrder int       `gorm:"not null;index" json:"sort_order"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
