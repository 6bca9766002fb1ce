package dto

import (
	"time"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

// FeedbackPayload is implemented by every feedback request shape.
type FeedbackPayload interface {
	Target() (evaluationID uint, scoreID *uint)
	Kind() string
	Data() map[string]interface{}
}

// FeedbackTarget references the evaluation and optional score being annotated.
type FeedbackTarget struct {
	EvaluationID uint  `json:"evaluation_id" validate:"required,gt=0"`
	ScoreID      *uint `json:"score_id" validate:"omitempty,gt=0"`
}

func (t FeedbackTarget) Target() (uint, *uint) {
	return t.EvaluationID, t.ScoreID
}

// FeedbackComparisonRequest records which total the reviewer trusts more.
type FeedbackComparisonRequest struct {
	FeedbackTarget
	WhichAccurate string `json:"which_accurate" validate:"required,oneof=original ai"`
	Reason        string `json:"reason"`
}

func (r FeedbackComparisonRequest) Kind() string { return models.FeedbackKindComparison }

func (r FeedbackComparisonRequest) Data() map[string]interface{} {
	return map[string]interface{}{
		"which_accurate": r.WhichAccurate,
		"reason":         r.Reason,
	}
}

// FeedbackCustomScoreRequest carries the reviewer's own dimension scores.
type FeedbackCustomScoreRequest struct {
	FeedbackTarget
	CustomScores map[string]float64 `json:"custom_scores" validate:"required,min=1,dive,gte=0"`
	TotalScore   float64            `json:"total_score" validate:"gte=0"`
	Comment      string             `json:"comment"`
}

func (r FeedbackCustomScoreRequest) Kind() string { return models.FeedbackKindCustomScore }

func (r FeedbackCustomScoreRequest) Data() map[string]interface{} {
	scores := make(map[string]interface{}, len(r.CustomScores))
	for key, value := range r.CustomScores {
		scores[key] = value
	}
	return map[string]interface{}{
		"custom_scores": scores,
		"total_score":   r.TotalScore,
		"comment":       r.Comment,
	}
}

// FeedbackCommentRequest is a free-text remark.
type FeedbackCommentRequest struct {
	FeedbackTarget
	Comment     string `json:"comment" validate:"required"`
	CommentType string `json:"comment_type" validate:"omitempty,oneof=general suggestion praise"`
}

func (r FeedbackCommentRequest) Kind() string { return models.FeedbackKindComment }

func (r FeedbackCommentRequest) Data() map[string]interface{} {
	commentType := r.CommentType
	if commentType == "" {
		commentType = "general"
	}
	return map[string]interface{}{
		"comment":      r.Comment,
		"comment_type": commentType,
	}
}

// IssuePosition is a character range inside the essay.
type IssuePosition struct {
	Start int `json:"start" validate:"gte=0"`
	End   int `json:"end" validate:"gtefield=Start"`
}

// FeedbackIssueMarkRequest flags a problem at a position in the essay.
type FeedbackIssueMarkRequest struct {
	FeedbackTarget
	IssueType        string        `json:"issue_type" validate:"required,oneof=grammar logic expression structure"`
	IssuePosition    IssuePosition `json:"issue_position"`
	IssueDescription string        `json:"issue_description" validate:"required"`
	SuggestedFix     *string       `json:"suggested_fix"`
}

func (r FeedbackIssueMarkRequest) Kind() string { return models.FeedbackKindIssueMark }

func (r FeedbackIssueMarkRequest) Data() map[string]interface{} {
	var fix interface{}
	if r.SuggestedFix != nil {
		fix = *r.SuggestedFix
	}
	return map[string]interface{}{
		"issue_type": r.IssueType,
		"issue_position": map[string]interface{}{
			"start": r.IssuePosition.Start,
			"end":   r.IssuePosition.End,
		},
		"issue_description": r.IssueDescription,
		"suggested_fix":     fix,
	}
}

// FeedbackResponse is a stored feedback record.
type FeedbackResponse struct {
	ID           uint                   `json:"id"`
	EvaluationID uint                   `json:"evaluation_id"`
	ScoreID      *uint                  `json:"score_id"`
	AuthorID     string                 `json:"author_id"`
	Kind         string                 `json:"kind"`
	Data         map[string]interface{} `json:"data"`
	CreatedAt    time.Time              `json:"created_at"`
}

// FeedbackListResponse lists feedback in recording order.
type FeedbackListResponse struct {
	Items []FeedbackResponse `json:"items"`
}

func NewFeedbackResponse(feedback models.Feedback) FeedbackResponse {
	data := map[string]interface{}{}
	if feedback.Data != nil {
		data = map[string]interface{}(feedback.Data)
	}
	return FeedbackResponse{
		ID:           feedback.ID,
		EvaluationID: feedback.EvaluationID,
		ScoreID:      feedback.ScoreID,
		AuthorID:     feedback.AuthorID,
		Kind:         feedback.Kind,
		Data:         data,
		CreatedAt:    feedback.CreatedAt,
	}
}
