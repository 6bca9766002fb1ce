package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/internal/repository"
	"github.com/noah-isme/gema-essay-api/pkg/ai"
	"github.com/noah-isme/gema-essay-api/pkg/scoring"
)

const scoreTemperature = 0.7

var (
	// ErrScoreNotFound indicates the score does not exist or is inactive.
	ErrScoreNotFound = errors.New("score not found")
	// ErrAnalysisPayloadInvalid indicates the stored analysis cannot feed the scoring prompt.
	ErrAnalysisPayloadInvalid = errors.New("analysis payload invalid")
)

// ScoringService runs the scoring stage and owns the default-score swap.
type ScoringService interface {
	Score(ctx context.Context, evaluationID uint, scorerID string, req dto.ScoreRequest) (dto.ScoreResponse, error)
	Get(ctx context.Context, id uint) (dto.ScoreResponse, error)
	ListByEvaluation(ctx context.Context, evaluationID uint) (dto.ScoreListResponse, error)
}

type scoringService struct {
	scores      repository.ScoreRepository
	evaluations repository.EvaluationRepository
	prompts     PromptService
	model       ai.ModelClient
	events      *WorkflowEvents
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewScoringService wires the scoring stage.
func NewScoringService(
	scores repository.ScoreRepository,
	evaluations repository.EvaluationRepository,
	prompts PromptService,
	model ai.ModelClient,
	events *WorkflowEvents,
	validate *validator.Validate,
	logger zerolog.Logger,
) ScoringService {
	return &scoringService{
		scores:      scores,
		evaluations: evaluations,
		prompts:     prompts,
		model:       model,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "scoring_service").Logger(),
	}
}

func (s *scoringService) Score(ctx context.Context, evaluationID uint, scorerID string, req dto.ScoreRequest) (response dto.ScoreResponse, err error) {
	ctx, span, finish := startStage(ctx, StageScore)
	defer func() { finish(err) }()

	if err := s.validator.Struct(req); err != nil {
		return dto.ScoreResponse{}, err
	}

	evaluation, err := s.evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoreResponse{}, fmt.Errorf("%w: id %d", ErrEvaluationNotFound, evaluationID)
		}
		return dto.ScoreResponse{}, err
	}
	prompt, err := s.prompts.Resolve(ctx, req.ScorePromptID, models.PromptKindScore)
	if err != nil {
		return dto.ScoreResponse{}, err
	}

	analysis, err := analysisPayload(evaluation)
	if err != nil {
		return dto.ScoreResponse{}, err
	}
	if s.model == nil {
		return dto.ScoreResponse{}, ErrModelUnavailable
	}

	essay := evaluation.Essay
	scale := scoring.ResolveScale(essay.ScoreSystem, essay.OriginalScore)

	completion, err := s.model.Complete(ctx, ai.CompletionRequest{
		Operation:    StageScore,
		SystemPrompt: prompt.Content,
		UserPrompt:   scoringInput(essay, analysis, scale),
		Temperature:  scoreTemperature,
		JSONResponse: true,
	})
	if err != nil {
		return dto.ScoreResponse{}, fmt.Errorf("score evaluation %d: %w", evaluation.ID, err)
	}

	payload, err := ai.DecodeObject(completion.Content)
	if err != nil {
		s.logger.Warn().Err(err).Uint("evaluation_id", evaluation.ID).Msg("scoring response rejected")
		return dto.ScoreResponse{}, err
	}
	dimensions, err := scoring.ParseDimensions(payload)
	if err != nil {
		var validationErr *scoring.ValidationError
		if errors.As(err, &validationErr) {
			validationErr.Raw = completion.Content
		}
		s.logger.Warn().Err(err).Uint("evaluation_id", evaluation.ID).Msg("scoring dimensions rejected")
		return dto.ScoreResponse{}, err
	}

	sum := dimensions.Sum()
	score := models.Score{
		EvaluationID:       evaluation.ID,
		ScorerID:           scorerID,
		ScorePromptID:      prompt.ID,
		Kind:               scoreKind(req.ScoreType, scorerID),
		ScoreSystem:        int(scale),
		TotalScore:         float64(scoring.Normalize(sum, scale)),
		DimensionSum:       sum,
		ThemeAndIntent:     dimensions.ThemeAndIntent,
		LanguageExpression: dimensions.LanguageExpression,
		Structure:          dimensions.Structure,
		ContentSelection:   dimensions.ContentSelection,
		EmotionAndContent:  dimensions.EmotionAndContent,
		RawResponse:        completion.Content,
	}
	if err := s.scores.CreateDefault(ctx, &score); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoreResponse{}, fmt.Errorf("%w: id %d", ErrEvaluationNotFound, evaluation.ID)
		}
		return dto.ScoreResponse{}, err
	}
	span.AddEvent("score.created")

	s.logger.Info().
		Uint("score_id", score.ID).
		Uint("evaluation_id", evaluation.ID).
		Float64("dimension_sum", sum).
		Float64("total", score.TotalScore).
		Int("scale", int(scale)).
		Msg("evaluation scored")

	s.events.Publish(ctx, WorkflowEvent{
		Type:         EventScoreCreated,
		EssayID:      evaluation.EssayID,
		EvaluationID: evaluation.ID,
		ScoreID:      score.ID,
		ActorID:      scorerID,
		Data: map[string]interface{}{
			"kind":         score.Kind,
			"total_score":  score.TotalScore,
			"score_system": score.ScoreSystem,
		},
	})

	return s.Get(ctx, score.ID)
}

func (s *scoringService) Get(ctx context.Context, id uint) (dto.ScoreResponse, error) {
	score, err := s.scores.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoreResponse{}, fmt.Errorf("%w: id %d", ErrScoreNotFound, id)
		}
		return dto.ScoreResponse{}, err
	}
	return dto.NewScoreResponse(score), nil
}

func (s *scoringService) ListByEvaluation(ctx context.Context, evaluationID uint) (dto.ScoreListResponse, error) {
	if _, err := s.evaluations.GetByID(ctx, evaluationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoreListResponse{}, fmt.Errorf("%w: id %d", ErrEvaluationNotFound, evaluationID)
		}
		return dto.ScoreListResponse{}, err
	}

	scores, err := s.scores.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return dto.ScoreListResponse{}, err
	}
	items := make([]dto.ScoreResponse, 0, len(scores))
	for _, score := range scores {
		items = append(items, dto.NewScoreResponse(score))
	}
	return dto.ScoreListResponse{Items: items}, nil
}

// analysisPayload renders the stored analysis for the scoring prompt. An
// empty or unencodable payload aborts scoring.
func analysisPayload(evaluation models.Evaluation) (string, error) {
	if len(evaluation.Result) == 0 {
		return "", fmt.Errorf("%w: evaluation %d has no analysis result", ErrAnalysisPayloadInvalid, evaluation.ID)
	}
	encoded, err := json.MarshalIndent(map[string]interface{}(evaluation.Result), "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnalysisPayloadInvalid, err)
	}
	return string(encoded), nil
}

func scoringInput(essay models.Essay, analysis string, scale scoring.Scale) string {
	keys := make([]string, 0, len(scoring.Specs))
	for _, spec := range scoring.Specs {
		keys = append(keys, fmt.Sprintf("%s (0-%g)", spec.Key, spec.Max))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Essay title: %s\n\n", essay.Title())
	fmt.Fprintf(&b, "Essay requirement: %s\n\n", essay.Requirement())
	fmt.Fprintf(&b, "Analysis result:\n%s\n\n", analysis)
	fmt.Fprintf(&b, "Student essay:\n%s\n\n", essay.Content)
	fmt.Fprintf(&b, "The final total is reported on a %d-point scale.\n", int(scale))
	fmt.Fprintf(&b, "Return one JSON object with these numeric keys: %s.", strings.Join(keys, ", "))
	return b.String()
}

func scoreKind(requested, scorerID string) string {
	if requested != "" {
		return requested
	}
	if scorerID == models.SystemScorer {
		return models.ScoreKindAI
	}
	return models.ScoreKindUser
}
