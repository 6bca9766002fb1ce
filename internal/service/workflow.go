package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-essay-api/internal/observability"
	"github.com/noah-isme/gema-essay-api/pkg/ai"
	"github.com/noah-isme/gema-essay-api/pkg/scoring"
)

// Workflow stages.
const (
	StageAnalyze  = "analyze"
	StageDetect   = "detect"
	StageConfirm  = "confirm"
	StageScore    = "score"
	StageFeedback = "feedback"
)

// ErrModelUnavailable indicates no model client is configured.
var ErrModelUnavailable = errors.New("model client unavailable")

var workflowTracer = otel.Tracer("github.com/noah-isme/gema-essay-api/internal/service/workflow")

func startStage(ctx context.Context, stage string) (context.Context, trace.Span, func(error)) {
	ctx, span := workflowTracer.Start(ctx, "workflow."+stage)
	start := time.Now()

	return ctx, span, func(err error) {
		outcome := stageOutcome(err)
		observability.WorkflowStages().WithLabelValues(stage, outcome).Inc()
		observability.WorkflowStageDuration().WithLabelValues(stage).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}
}

func stageOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isNotFound(err):
		return "not_found"
	case errors.Is(err, scoring.ErrInvalidDimensions), errors.Is(err, ErrAnalysisPayloadInvalid), errors.Is(err, ErrFeedbackInvalid):
		return "validation"
	case errors.Is(err, ai.ErrModelResponseFormat):
		return "format"
	case errors.Is(err, ai.ErrModelUnavailable), errors.Is(err, ErrModelUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func isNotFound(err error) bool {
	for _, target := range []error{
		ErrEssayNotFound,
		ErrPromptNotFound,
		ErrEvaluationNotFound,
		ErrScoreNotFound,
		ErrGenreNotFound,
		ErrGradeNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
