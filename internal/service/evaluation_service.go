package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/internal/repository"
	"github.com/noah-isme/gema-essay-api/pkg/ai"
)

const analyzeTemperature = 0.7

var (
	// ErrEssayNotFound indicates the essay does not exist or is inactive.
	ErrEssayNotFound = errors.New("essay not found")
	// ErrEvaluationNotFound indicates the evaluation does not exist or is inactive.
	ErrEvaluationNotFound = errors.New("evaluation not found")
)

// EvaluationService runs the analysis and confirmation stages.
type EvaluationService interface {
	Analyze(ctx context.Context, reviewerID string, req dto.AnalyzeRequest) (dto.EvaluationResponse, error)
	Detect(ctx context.Context, evaluationID uint) (dto.DetectionResponse, error)
	DetectText(ctx context.Context, req dto.DetectGenreRequest) (dto.DetectionResponse, error)
	Confirm(ctx context.Context, evaluationID uint, reviewerID string, req dto.ConfirmRequest) (dto.EvaluationResponse, error)
	Get(ctx context.Context, id uint) (dto.EvaluationResponse, error)
	ListByEssay(ctx context.Context, essayID uint, req dto.EvaluationListRequest) (dto.EvaluationListResponse, error)
	Essay(ctx context.Context, id uint) (dto.EssayResponse, error)
}

type evaluationService struct {
	evaluations repository.EvaluationRepository
	essays      repository.EssayRepository
	prompts     PromptService
	catalog     CatalogService
	detector    GenreGradeDetector
	model       ai.ModelClient
	events      *WorkflowEvents
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEvaluationService wires the analysis stage. model may be nil, in which
// case analysis fails with ErrModelUnavailable.
func NewEvaluationService(
	evaluations repository.EvaluationRepository,
	essays repository.EssayRepository,
	prompts PromptService,
	catalog CatalogService,
	detector GenreGradeDetector,
	model ai.ModelClient,
	events *WorkflowEvents,
	validate *validator.Validate,
	logger zerolog.Logger,
) EvaluationService {
	return &evaluationService{
		evaluations: evaluations,
		essays:      essays,
		prompts:     prompts,
		catalog:     catalog,
		detector:    detector,
		model:       model,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		now:         time.Now,
	}
}

func (s *evaluationService) Analyze(ctx context.Context, reviewerID string, req dto.AnalyzeRequest) (response dto.EvaluationResponse, err error) {
	ctx, span, finish := startStage(ctx, StageAnalyze)
	defer func() { finish(err) }()

	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluationResponse{}, err
	}

	essay, err := s.loadEssay(ctx, req.EssayID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	prompt, err := s.prompts.Resolve(ctx, req.AnalyzePromptID, models.PromptKindAnalyze)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	if s.model == nil {
		return dto.EvaluationResponse{}, ErrModelUnavailable
	}

	completion, err := s.model.Complete(ctx, ai.CompletionRequest{
		Operation:    StageAnalyze,
		SystemPrompt: prompt.Content,
		UserPrompt:   analysisInput(essay),
		Temperature:  analyzeTemperature,
		JSONResponse: true,
	})
	if err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("analyze essay %d: %w", essay.ID, err)
	}

	result, err := ai.DecodeObject(completion.Content)
	if err != nil {
		s.logger.Warn().Err(err).Uint("essay_id", essay.ID).Msg("analysis response rejected")
		return dto.EvaluationResponse{}, err
	}

	evaluation := models.Evaluation{
		EssayID:         essay.ID,
		ReviewerID:      reviewerID,
		AnalyzePromptID: prompt.ID,
		Result:          datatypes.JSONMap(result),
	}
	if err := s.evaluations.CreateLatest(ctx, &evaluation); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, fmt.Errorf("%w: id %d", ErrEssayNotFound, essay.ID)
		}
		return dto.EvaluationResponse{}, err
	}
	span.AddEvent("evaluation.created")

	s.logger.Info().
		Uint("evaluation_id", evaluation.ID).
		Uint("essay_id", essay.ID).
		Uint("prompt_id", prompt.ID).
		Str("reviewer", reviewerID).
		Int("prompt_tokens", completion.PromptTokens).
		Int("completion_tokens", completion.CompletionTokens).
		Msg("essay analyzed")

	s.events.Publish(ctx, WorkflowEvent{
		Type:         EventEvaluationCreated,
		EssayID:      essay.ID,
		EvaluationID: evaluation.ID,
		ActorID:      reviewerID,
		Data:         map[string]interface{}{"analyze_prompt_id": prompt.ID},
	})

	return s.Get(ctx, evaluation.ID)
}

// Detect classifies the evaluation's essay and stores the proposal on it.
func (s *evaluationService) Detect(ctx context.Context, evaluationID uint) (response dto.DetectionResponse, err error) {
	ctx, _, finish := startStage(ctx, StageDetect)
	defer func() { finish(err) }()

	evaluation, err := s.load(ctx, evaluationID)
	if err != nil {
		return dto.DetectionResponse{}, err
	}

	detection, err := s.detector.Detect(ctx, evaluation.Essay.Content, evaluation.Essay.Requirement())
	if err != nil {
		return dto.DetectionResponse{}, err
	}

	if err := s.evaluations.SaveDetection(ctx, evaluation.ID, repository.Detection{
		GenreID:    detection.Genre.ID,
		GradeID:    detection.Grade.ID,
		Confidence: detection.Confidence,
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DetectionResponse{}, fmt.Errorf("%w: id %d", ErrEvaluationNotFound, evaluationID)
		}
		return dto.DetectionResponse{}, err
	}

	s.events.Publish(ctx, WorkflowEvent{
		Type:         EventEvaluationDetected,
		EssayID:      evaluation.EssayID,
		EvaluationID: evaluation.ID,
		Data: map[string]interface{}{
			"genre_id":   detection.Genre.ID,
			"grade_id":   detection.Grade.ID,
			"confidence": detection.Confidence,
			"fallback":   detection.Fallback,
		},
	})

	return newDetectionResponse(detection), nil
}

// DetectText classifies raw text without touching stored evaluations.
func (s *evaluationService) DetectText(ctx context.Context, req dto.DetectGenreRequest) (response dto.DetectionResponse, err error) {
	ctx, _, finish := startStage(ctx, StageDetect)
	defer func() { finish(err) }()

	if err := s.validator.Struct(req); err != nil {
		return dto.DetectionResponse{}, err
	}
	detection, err := s.detector.Detect(ctx, req.Content, req.Requirement)
	if err != nil {
		return dto.DetectionResponse{}, err
	}
	return newDetectionResponse(detection), nil
}

// Confirm overwrites the confirmed genre and grade. Repeated calls overwrite again.
func (s *evaluationService) Confirm(ctx context.Context, evaluationID uint, reviewerID string, req dto.ConfirmRequest) (response dto.EvaluationResponse, err error) {
	ctx, _, finish := startStage(ctx, StageConfirm)
	defer func() { finish(err) }()

	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluationResponse{}, err
	}
	evaluation, err := s.load(ctx, evaluationID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	if _, err := s.catalog.GetGenre(ctx, req.GenreID); err != nil {
		return dto.EvaluationResponse{}, err
	}
	if _, err := s.catalog.GetGrade(ctx, req.GradeID); err != nil {
		return dto.EvaluationResponse{}, err
	}

	if evaluation.IsConfirmed() {
		s.logger.Warn().
			Uint("evaluation_id", evaluation.ID).
			Uint("previous_genre", *evaluation.ConfirmedGenreID).
			Uint("previous_grade", *evaluation.ConfirmedGradeID).
			Msg("overwriting confirmed genre and grade")
	}

	if err := s.evaluations.Confirm(ctx, evaluation.ID, req.GenreID, req.GradeID, s.now().UTC()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, fmt.Errorf("%w: id %d", ErrEvaluationNotFound, evaluationID)
		}
		return dto.EvaluationResponse{}, err
	}

	s.events.Publish(ctx, WorkflowEvent{
		Type:         EventEvaluationConfirmed,
		EssayID:      evaluation.EssayID,
		EvaluationID: evaluation.ID,
		ActorID:      reviewerID,
		Data:         map[string]interface{}{"genre_id": req.GenreID, "grade_id": req.GradeID},
	})

	return s.Get(ctx, evaluation.ID)
}

func (s *evaluationService) Get(ctx context.Context, id uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.load(ctx, id)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) ListByEssay(ctx context.Context, essayID uint, req dto.EvaluationListRequest) (dto.EvaluationListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluationListResponse{}, err
	}
	if _, err := s.loadEssay(ctx, essayID); err != nil {
		return dto.EvaluationListResponse{}, err
	}
	page, pageSize := clampPage(req.Page, req.PageSize)

	evaluations, total, err := s.evaluations.ListByEssay(ctx, essayID, repository.Page{Page: page, PageSize: pageSize})
	if err != nil {
		return dto.EvaluationListResponse{}, err
	}

	items := make([]dto.EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		items = append(items, dto.NewEvaluationResponse(evaluation))
	}
	return dto.EvaluationListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *evaluationService) Essay(ctx context.Context, id uint) (dto.EssayResponse, error) {
	essay, err := s.loadEssay(ctx, id)
	if err != nil {
		return dto.EssayResponse{}, err
	}
	return dto.NewEssayResponse(essay), nil
}

func (s *evaluationService) load(ctx context.Context, id uint) (models.Evaluation, error) {
	evaluation, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Evaluation{}, fmt.Errorf("%w: id %d", ErrEvaluationNotFound, id)
		}
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (s *evaluationService) loadEssay(ctx context.Context, id uint) (models.Essay, error) {
	essay, err := s.essays.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Essay{}, fmt.Errorf("%w: id %d", ErrEssayNotFound, id)
		}
		return models.Essay{}, err
	}
	return essay, nil
}

func analysisInput(essay models.Essay) string {
	return fmt.Sprintf("Essay title: %s\n\nEssay requirement: %s\n\nStudent essay:\n%s",
		essay.Title(), essay.Requirement(), essay.Content)
}

func newDetectionResponse(detection GenreGradeDetection) dto.DetectionResponse {
	return dto.DetectionResponse{
		GenreID:    detection.Genre.ID,
		GenreCode:  detection.Genre.Code,
		GenreName:  detection.Genre.Name,
		GradeID:    detection.Grade.ID,
		GradeLevel: detection.Grade.SortOrder,
		GradeName:  detection.Grade.Name,
		Confidence: detection.Confidence,
		Fallback:   detection.Fallback,
	}
}
