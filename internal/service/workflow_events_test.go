package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkflowEventsPublishesJSON(t *testing.T) {
	publisher := &recordingPublisher{}
	events := NewWorkflowEvents(publisher, "essay:workflow", testLogger())

	events.Publish(context.Background(), WorkflowEvent{Type: EventScoreCreated, EvaluationID: 7, ScoreID: 3, ActorID: "system"})

	require.Equal(t, []string{"essay.workflow.score.created"}, publisher.published())

	var decoded WorkflowEvent
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &decoded))
	require.Equal(t, EventScoreCreated, decoded.Type)
	require.Equal(t, uint(7), decoded.EvaluationID)
	require.Equal(t, uint(3), decoded.ScoreID)
	require.NotEmpty(t, decoded.ID)
	require.False(t, decoded.OccurredAt.IsZero())
}

func TestWorkflowEventsToleratesMissingOrFailingBus(t *testing.T) {
	var nilEvents *WorkflowEvents
	require.NotPanics(t, func() {
		nilEvents.Publish(context.Background(), WorkflowEvent{Type: EventEvaluationCreated})
	})

	require.NotPanics(t, func() {
		NewWorkflowEvents(nil, "", testLogger()).Publish(context.Background(), WorkflowEvent{Type: EventEvaluationCreated})
	})

	failing := &recordingPublisher{err: errors.New("nats: connection closed")}
	events := NewWorkflowEvents(failing, "", testLogger())
	require.Equal(t, "essay.workflow.feedback.recorded", events.Subject(EventFeedbackRecorded))
	events.Publish(context.Background(), WorkflowEvent{Type: EventFeedbackRecorded})
	require.Len(t, failing.published(), 1)
}

func TestStageOutcomeClassification(t *testing.T) {
	require.Equal(t, "ok", stageOutcome(nil))
	require.Equal(t, "not_found", stageOutcome(ErrEssayNotFound))
	require.Equal(t, "validation", stageOutcome(ErrAnalysisPayloadInvalid))
	require.Equal(t, "unavailable", stageOutcome(errProviderDown))
	require.Equal(t, "error", stageOutcome(errors.New("boom")))
}
