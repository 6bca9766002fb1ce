package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Workflow event types published after each committed stage.
const (
	EventEvaluationCreated   = "evaluation.created"
	EventEvaluationDetected  = "evaluation.detected"
	EventEvaluationConfirmed = "evaluation.confirmed"
	EventScoreCreated        = "score.created"
	EventFeedbackRecorded    = "feedback.recorded"
)

// MessagePublisher is the subset of *nats.Conn used for workflow events.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// WorkflowEvent is the payload published for a committed workflow change.
type WorkflowEvent struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	EssayID      uint                   `json:"essay_id,omitempty"`
	EvaluationID uint                   `json:"evaluation_id,omitempty"`
	ScoreID      uint                   `json:"score_id,omitempty"`
	FeedbackID   uint                   `json:"feedback_id,omitempty"`
	ActorID      string                 `json:"actor_id,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// WorkflowEvents fans committed workflow changes out to the message bus.
// A nil publisher turns it into a no-op.
type WorkflowEvents struct {
	publisher MessagePublisher
	subject   string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewWorkflowEvents constructs the event publisher. subjectBase is prefixed to
// every event type, e.g. "essay.workflow" -> "essay.workflow.score.created".
func NewWorkflowEvents(publisher MessagePublisher, subjectBase string, logger zerolog.Logger) *WorkflowEvents {
	subject := strings.Trim(strings.ReplaceAll(strings.TrimSpace(subjectBase), ":", "."), ".")
	if subject == "" {
		subject = "essay.workflow"
	}
	return &WorkflowEvents{
		publisher: publisher,
		subject:   subject,
		logger:    logger.With().Str("component", "workflow_events").Logger(),
		now:       time.Now,
	}
}

// Publish sends the event. Delivery failures are logged and never fail the
// request that produced the event.
func (w *WorkflowEvents) Publish(ctx context.Context, event WorkflowEvent) {
	if w == nil || w.publisher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = w.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		w.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to encode workflow event")
		return
	}

	if err := w.publisher.Publish(w.subject+"."+event.Type, payload); err != nil {
		w.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish workflow event")
	}
}

// Subject returns the full subject an event type is published on.
func (w *WorkflowEvents) Subject(eventType string) string {
	return w.subject + "." + eventType
}
