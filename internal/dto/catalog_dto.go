package dto

import "github.com/noah-isme/gema-essay-api/internal/models"

// GenreResponse describes a catalog genre.
type GenreResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

// GradeResponse describes a catalog grade.
type GradeResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Level     string `json:"level"`
	SortOrder int    `json:"sort_order"`
}

func NewGenreResponse(genre models.Genre) GenreResponse {
	return GenreResponse{
		ID:          genre.ID,
		Name:        genre.Name,
		Code:        genre.Code,
		Description: genre.Description,
		SortOrder:   genre.SortOrder,
	}
}

func NewGradeResponse(grade models.Grade) GradeResponse {
	return GradeResponse{
		ID:        grade.ID,
		Name:      grade.Name,
		Code:      grade.Code,
		Level:     grade.Level,
		SortOrder: grade.SortOrder,
	}
}

func NewGenreResponses(genres []models.Genre) []GenreResponse {
	items := make([]GenreResponse, 0, len(genres))
	for _, genre := range genres {
		items = append(items, NewGenreResponse(genre))
	}
	return items
}

func NewGradeResponses(grades []models.Grade) []GradeResponse {
	items := make([]GradeResponse, 0, len(grades))
	for _, grade := range grades {
		items = append(items, NewGradeResponse(grade))
	}
	return items
}
