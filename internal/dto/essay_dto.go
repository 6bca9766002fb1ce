package dto

import "github.com/noah-isme/gema-essay-api/internal/models"

// EssayResponse exposes an ingested essay together with its batch context.
type EssayResponse struct {
	ID                uint                   `json:"id"`
	BatchID           uint                   `json:"batch_id"`
	StudentName       string                 `json:"student_name"`
	Title             string                 `json:"title"`
	Requirement       string                 `json:"requirement"`
	Content           string                 `json:"content"`
	WordCount         int                    `json:"word_count"`
	ScoreSystem       int                    `json:"score_system"`
	OriginalScore     *float64               `json:"original_score"`
	OriginalScoreData map[string]interface{} `json:"original_score_data,omitempty"`
}

func NewEssayResponse(essay models.Essay) EssayResponse {
	var original map[string]interface{}
	if essay.OriginalScoreData != nil {
		original = map[string]interface{}(essay.OriginalScoreData)
	}
	return EssayResponse{
		ID:                essay.ID,
		BatchID:           essay.BatchID,
		StudentName:       essay.StudentName,
		Title:             essay.Title(),
		Requirement:       essay.Requirement(),
		Content:           essay.Content,
		WordCount:         essay.WordCount,
		ScoreSystem:       essay.ScoreSystem,
		OriginalScore:     essay.OriginalScore,
		OriginalScoreData: original,
	}
}
