package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/internal/observability"
	"github.com/noah-isme/gema-essay-api/internal/repository"
)

// ErrPromptNotFound indicates the prompt does not exist, is inactive or has the wrong kind.
var ErrPromptNotFound = errors.New("prompt not found")

// PromptService is the versioned prompt registry.
type PromptService interface {
	GetDefault(ctx context.Context, req dto.PromptDefaultRequest) (dto.PromptResponse, error)
	Get(ctx context.Context, id uint) (dto.PromptResponse, error)
	List(ctx context.Context, req dto.PromptListRequest) (dto.PromptListResponse, error)
	Create(ctx context.Context, req dto.PromptCreateRequest, actorID string) (dto.PromptResponse, error)
	Update(ctx context.Context, id uint, req dto.PromptUpdateRequest) (dto.PromptResponse, error)
	Delete(ctx context.Context, id uint) error
	Resolve(ctx context.Context, id uint, kind string) (models.Prompt, error)
}

type promptService struct {
	repo      repository.PromptRepository
	catalog   CatalogService
	cache     *redis.Client
	ttl       time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPromptService constructs the prompt registry. cache may be nil.
func NewPromptService(repo repository.PromptRepository, catalog CatalogService, cache *redis.Client, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) PromptService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &promptService{
		repo:      repo,
		catalog:   catalog,
		cache:     cache,
		ttl:       ttl,
		validator: validate,
		logger:    logger.With().Str("component", "prompt_service").Logger(),
	}
}

func (s *promptService) GetDefault(ctx context.Context, req dto.PromptDefaultRequest) (dto.PromptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PromptResponse{}, err
	}

	if cached, ok := s.fetchCache(ctx, req.GradeID, req.GenreID, req.Kind); ok {
		observability.PromptCache().WithLabelValues("hit").Inc()
		return cached, nil
	}
	observability.PromptCache().WithLabelValues("miss").Inc()
	generation := s.cacheGeneration(ctx, req.GradeID, req.GenreID, req.Kind)

	prompt, err := s.repo.GetDefault(ctx, req.GradeID, req.GenreID, req.Kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PromptResponse{}, fmt.Errorf("%w: no default for grade %d genre %d kind %s", ErrPromptNotFound, req.GradeID, req.GenreID, req.Kind)
		}
		return dto.PromptResponse{}, err
	}

	response := dto.NewPromptResponse(prompt)
	s.storeCache(ctx, response, generation)
	return response, nil
}

func (s *promptService) Get(ctx context.Context, id uint) (dto.PromptResponse, error) {
	prompt, err := s.load(ctx, id)
	if err != nil {
		return dto.PromptResponse{}, err
	}
	return dto.NewPromptResponse(prompt), nil
}

// Resolve loads an active prompt and checks it has the expected kind.
func (s *promptService) Resolve(ctx context.Context, id uint, kind string) (models.Prompt, error) {
	prompt, err := s.load(ctx, id)
	if err != nil {
		return models.Prompt{}, err
	}
	if prompt.Kind != kind {
		return models.Prompt{}, fmt.Errorf("%w: prompt %d is %s, want %s", ErrPromptNotFound, id, prompt.Kind, kind)
	}
	return prompt, nil
}

func (s *promptService) List(ctx context.Context, req dto.PromptListRequest) (dto.PromptListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PromptListResponse{}, err
	}
	page, pageSize := clampPage(req.Page, req.PageSize)

	prompts, total, err := s.repo.List(ctx, repository.PromptFilter{
		GradeID: req.GradeID,
		GenreID: req.GenreID,
		Kind:    req.Kind,
		Page:    repository.Page{Page: page, PageSize: pageSize},
	})
	if err != nil {
		return dto.PromptListResponse{}, err
	}

	items := make([]dto.PromptResponse, 0, len(prompts))
	for _, prompt := range prompts {
		items = append(items, dto.NewPromptResponse(prompt))
	}
	return dto.PromptListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *promptService) Create(ctx context.Context, req dto.PromptCreateRequest, actorID string) (dto.PromptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PromptResponse{}, err
	}
	if _, err := s.catalog.GetGrade(ctx, req.GradeID); err != nil {
		return dto.PromptResponse{}, err
	}
	if _, err := s.catalog.GetGenre(ctx, req.GenreID); err != nil {
		return dto.PromptResponse{}, err
	}

	prompt := models.Prompt{
		GradeID:     req.GradeID,
		GenreID:     req.GenreID,
		Kind:        req.Kind,
		VersionName: req.VersionName,
		Content:     req.Content,
		IsDefault:   req.IsDefault,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, &prompt); err != nil {
		return dto.PromptResponse{}, err
	}
	if prompt.IsDefault {
		s.invalidate(ctx, prompt.GradeID, prompt.GenreID, prompt.Kind)
	}

	s.logger.Info().
		Uint("prompt_id", prompt.ID).
		Str("kind", prompt.Kind).
		Bool("default", prompt.IsDefault).
		Str("actor", actorID).
		Msg("prompt created")

	return s.Get(ctx, prompt.ID)
}

func (s *promptService) Update(ctx context.Context, id uint, req dto.PromptUpdateRequest) (dto.PromptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PromptResponse{}, err
	}

	prompt, err := s.repo.Update(ctx, id, repository.PromptUpdate{
		VersionName: req.VersionName,
		Content:     req.Content,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PromptResponse{}, fmt.Errorf("%w: id %d", ErrPromptNotFound, id)
		}
		return dto.PromptResponse{}, err
	}
	s.invalidate(ctx, prompt.GradeID, prompt.GenreID, prompt.Kind)

	s.logger.Info().Uint("prompt_id", id).Bool("default", prompt.IsDefault).Msg("prompt updated")
	return dto.NewPromptResponse(prompt), nil
}

func (s *promptService) Delete(ctx context.Context, id uint) error {
	prompt, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrPromptNotFound, id)
		}
		return err
	}
	s.invalidate(ctx, prompt.GradeID, prompt.GenreID, prompt.Kind)

	s.logger.Info().Uint("prompt_id", id).Msg("prompt deactivated")
	return nil
}

func (s *promptService) load(ctx context.Context, id uint) (models.Prompt, error) {
	prompt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Prompt{}, fmt.Errorf("%w: id %d", ErrPromptNotFound, id)
		}
		return models.Prompt{}, err
	}
	return prompt, nil
}

func (s *promptService) fetchCache(ctx context.Context, gradeID, genreID uint, kind string) (dto.PromptResponse, bool) {
	if s.cache == nil {
		return dto.PromptResponse{}, false
	}
	payload, err := s.cache.Get(ctx, promptCacheKey(gradeID, genreID, kind)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read prompt cache")
		}
		return dto.PromptResponse{}, false
	}

	var response dto.PromptResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode prompt cache")
		return dto.PromptResponse{}, false
	}
	return response, true
}

// cacheGeneration reads the invalidation counter for a default slot. A read
// that started before a write must not repopulate the slot after it.
func (s *promptService) cacheGeneration(ctx context.Context, gradeID, genreID uint, kind string) int64 {
	if s.cache == nil {
		return 0
	}
	generation, err := s.cache.Get(ctx, promptGenerationKey(gradeID, genreID, kind)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("failed to read prompt cache generation")
	}
	return generation
}

func (s *promptService) storeCache(ctx context.Context, response dto.PromptResponse, generation int64) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode prompt cache")
		return
	}
	key := promptCacheKey(response.GradeID, response.GenreID, response.Kind)
	generationKey := promptGenerationKey(response.GradeID, response.GenreID, response.Kind)

	err = s.cache.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, generationKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		s.logger.Warn().Err(err).Msg("failed to store prompt cache")
	}
}

func (s *promptService) invalidate(ctx context.Context, gradeID, genreID uint, kind string) {
	if s.cache == nil {
		return
	}
	_, err := s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, promptGenerationKey(gradeID, genreID, kind))
		pipe.Del(ctx, promptCacheKey(gradeID, genreID, kind))
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate prompt cache")
	}
}

func promptCacheKey(gradeID, genreID uint, kind string) string {
	return fmt.Sprintf("essay:prompt:default:%d:%d:%s", gradeID, genreID, kind)
}

func promptGenerationKey(gradeID, genreID uint, kind string) string {
	return fmt.Sprintf("essay:prompt:generation:%d:%d:%s", gradeID, genreID, kind)
}

func clampPage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
