package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/internal/repository"
	"github.com/noah-isme/gema-essay-api/pkg/scoring"
)

// ErrFeedbackInvalid indicates the feedback references do not line up.
var ErrFeedbackInvalid = errors.New("feedback invalid")

// FeedbackService is the append-only feedback log.
type FeedbackService interface {
	Record(ctx context.Context, authorID string, payload dto.FeedbackPayload) (dto.FeedbackResponse, error)
	ListByEvaluation(ctx context.Context, evaluationID uint, scoreID *uint) (dto.FeedbackListResponse, error)
}

type feedbackService struct {
	feedback    repository.FeedbackRepository
	evaluations repository.EvaluationRepository
	scores      repository.ScoreRepository
	events      *WorkflowEvents
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewFeedbackService constructs the feedback log.
func NewFeedbackService(
	feedback repository.FeedbackRepository,
	evaluations repository.EvaluationRepository,
	scores repository.ScoreRepository,
	events *WorkflowEvents,
	validate *validator.Validate,
	logger zerolog.Logger,
) FeedbackService {
	return &feedbackService{
		feedback:    feedback,
		evaluations: evaluations,
		scores:      scores,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "feedback_service").Logger(),
	}
}

func (s *feedbackService) Record(ctx context.Context, authorID string, payload dto.FeedbackPayload) (response dto.FeedbackResponse, err error) {
	ctx, _, finish := startStage(ctx, StageFeedback)
	defer func() { finish(err) }()

	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}
	if custom, ok := payload.(dto.FeedbackCustomScoreRequest); ok {
		if err := checkCustomScores(custom.CustomScores); err != nil {
			return dto.FeedbackResponse{}, err
		}
	}

	evaluationID, scoreID := payload.Target()
	evaluation, err := s.loadEvaluation(ctx, evaluationID)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}
	if scoreID != nil {
		score, err := s.scores.GetByID(ctx, *scoreID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.FeedbackResponse{}, fmt.Errorf("%w: id %d", ErrScoreNotFound, *scoreID)
			}
			return dto.FeedbackResponse{}, err
		}
		if score.EvaluationID != evaluation.ID {
			return dto.FeedbackResponse{}, fmt.Errorf("%w: score %d belongs to evaluation %d", ErrFeedbackInvalid, score.ID, score.EvaluationID)
		}
	}

	record := models.Feedback{
		EvaluationID: evaluation.ID,
		ScoreID:      scoreID,
		AuthorID:     authorID,
		Kind:         payload.Kind(),
		Data:         datatypes.JSONMap(payload.Data()),
	}
	if err := s.feedback.Create(ctx, &record); err != nil {
		return dto.FeedbackResponse{}, err
	}

	s.logger.Info().
		Uint("feedback_id", record.ID).
		Uint("evaluation_id", evaluation.ID).
		Str("kind", record.Kind).
		Str("author", authorID).
		Msg("feedback recorded")

	event := WorkflowEvent{
		Type:         EventFeedbackRecorded,
		EssayID:      evaluation.EssayID,
		EvaluationID: evaluation.ID,
		FeedbackID:   record.ID,
		ActorID:      authorID,
		Data:         map[string]interface{}{"kind": record.Kind},
	}
	if scoreID != nil {
		event.ScoreID = *scoreID
	}
	s.events.Publish(ctx, event)

	return dto.NewFeedbackResponse(record), nil
}

func (s *feedbackService) ListByEvaluation(ctx context.Context, evaluationID uint, scoreID *uint) (dto.FeedbackListResponse, error) {
	if _, err := s.loadEvaluation(ctx, evaluationID); err != nil {
		return dto.FeedbackListResponse{}, err
	}

	records, err := s.feedback.ListByEvaluation(ctx, evaluationID, scoreID)
	if err != nil {
		return dto.FeedbackListResponse{}, err
	}
	items := make([]dto.FeedbackResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewFeedbackResponse(record))
	}
	return dto.FeedbackListResponse{Items: items}, nil
}

func (s *feedbackService) loadEvaluation(ctx context.Context, id uint) (models.Evaluation, error) {
	evaluation, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Evaluation{}, fmt.Errorf("%w: id %d", ErrEvaluationNotFound, id)
		}
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

// checkCustomScores only rejects unknown dimension keys; values are kept as sent.
func checkCustomScores(scores map[string]float64) error {
	known := make(map[string]struct{}, len(scoring.Specs))
	for _, spec := range scoring.Specs {
		known[spec.Key] = struct{}{}
	}
	for key := range scores {
		if _, ok := known[key]; !ok {
			return fmt.Errorf("%w: unknown dimension %q", ErrFeedbackInvalid, key)
		}
	}
	return nil
}
