package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/models"
)

func TestFeedbackServiceRecordsAllShapes(t *testing.T) {
	f := newWorkflowFixture(t, newFakeModel(scoreReply89))
	ctx := context.Background()
	evaluationID := f.analyzed(t, f.essay.ID)
	score, err := f.scoring.Score(ctx, evaluationID, models.SystemScorer, dto.ScoreRequest{ScorePromptID: f.scorePrompt.ID})
	require.NoError(t, err)

	target := dto.FeedbackTarget{EvaluationID: evaluationID, ScoreID: &score.ID}
	fix := "the rain began"
	payloads := []dto.FeedbackPayload{
		dto.FeedbackComparisonRequest{FeedbackTarget: target, WhichAccurate: "ai", Reason: "closer to rubric"},
		dto.FeedbackCustomScoreRequest{FeedbackTarget: target, CustomScores: map[string]float64{"structure": 14}, TotalScore: 36},
		dto.FeedbackCommentRequest{FeedbackTarget: dto.FeedbackTarget{EvaluationID: evaluationID}, Comment: "Nice opening."},
		dto.FeedbackIssueMarkRequest{FeedbackTarget: target, IssueType: "grammar", IssuePosition: dto.IssuePosition{Start: 4, End: 11}, IssueDescription: "tense", SuggestedFix: &fix},
	}

	for _, payload := range payloads {
		recorded, err := f.feedback.Record(ctx, testReviewer, payload)
		require.NoError(t, err)
		require.Equal(t, payload.Kind(), recorded.Kind)
		require.Equal(t, testReviewer, recorded.AuthorID)
	}

	list, err := f.feedback.ListByEvaluation(ctx, evaluationID, nil)
	require.NoError(t, err)
	require.Len(t, list.Items, 4)
	require.Equal(t, models.FeedbackKindComparison, list.Items[0].Kind)
	require.Equal(t, "ai", list.Items[0].Data["which_accurate"])
	require.Equal(t, "general", list.Items[2].Data["comment_type"])
	require.Nil(t, list.Items[2].ScoreID)

	position, ok := list.Items[3].Data["issue_position"].(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, 4, position["start"])
	require.Equal(t, "the rain began", list.Items[3].Data["suggested_fix"])

	scoped, err := f.feedback.ListByEvaluation(ctx, evaluationID, &score.ID)
	require.NoError(t, err)
	require.Len(t, scoped.Items, 3)

	// Feedback never changes the annotated score.
	require.Equal(t, int64(1), countRows(t, f.db, &models.Score{}, "evaluation_id = ? AND is_default = ?", evaluationID, true))
	require.Contains(t, f.publisher.published(), "essay.workflow.feedback.recorded")
}

func TestFeedbackServiceRejectsBadReferences(t *testing.T) {
	f := newWorkflowFixture(t, newFakeModel(scoreReply89))
	ctx := context.Background()

	evaluationID := f.analyzed(t, f.essay.ID)
	score, err := f.scoring.Score(ctx, evaluationID, models.SystemScorer, dto.ScoreRequest{ScorePromptID: f.scorePrompt.ID})
	require.NoError(t, err)
	otherEvaluation := f.analyzed(t, f.createEssay(t, 40, nil).ID)

	missingScore := uint(999)
	cases := []struct {
		name    string
		payload dto.FeedbackPayload
		target  error
	}{
		{"missing evaluation", dto.FeedbackCommentRequest{FeedbackTarget: dto.FeedbackTarget{EvaluationID: 999}, Comment: "x"}, ErrEvaluationNotFound},
		{"missing score", dto.FeedbackCommentRequest{FeedbackTarget: dto.FeedbackTarget{EvaluationID: evaluationID, ScoreID: &missingScore}, Comment: "x"}, ErrScoreNotFound},
		{"score of other evaluation", dto.FeedbackCommentRequest{FeedbackTarget: dto.FeedbackTarget{EvaluationID: otherEvaluation, ScoreID: &score.ID}, Comment: "x"}, ErrFeedbackInvalid},
		{"unknown dimension", dto.FeedbackCustomScoreRequest{FeedbackTarget: dto.FeedbackTarget{EvaluationID: evaluationID}, CustomScores: map[string]float64{"spelling": 3}}, ErrFeedbackInvalid},
	}
	for _, tc := range cases {
		_, err := f.feedback.Record(ctx, testReviewer, tc.payload)
		require.ErrorIs(t, err, tc.target, tc.name)
	}

	_, err = f.feedback.Record(ctx, testReviewer, dto.FeedbackCommentRequest{FeedbackTarget: dto.FeedbackTarget{EvaluationID: evaluationID}})
	require.True(t, isValidationError(err))
	_, err = f.feedback.Record(ctx, testReviewer, dto.FeedbackIssueMarkRequest{
		FeedbackTarget:   dto.FeedbackTarget{EvaluationID: evaluationID},
		IssueType:        "grammar",
		IssuePosition:    dto.IssuePosition{Start: 10, End: 2},
		IssueDescription: "x",
	})
	require.True(t, isValidationError(err))

	require.Equal(t, int64(0), countRows(t, f.db, &models.Feedback{}, "1 = 1"))

	_, err = f.feedback.ListByEvaluation(ctx, 999, nil)
	require.ErrorIs(t, err, ErrEvaluationNotFound)
}
