package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/internal/repository"
)

var (
	// ErrGenreNotFound indicates the genre does not exist or is inactive.
	ErrGenreNotFound = errors.New("genre not found")
	// ErrGradeNotFound indicates the grade does not exist or is inactive.
	ErrGradeNotFound = errors.New("grade not found")
)

// CatalogService exposes the genre and grade catalog.
type CatalogService interface {
	ListGenres(ctx context.Context) ([]models.Genre, error)
	ListGrades(ctx context.Context) ([]models.Grade, error)
	GetGenre(ctx context.Context, id uint) (models.Genre, error)
	GetGrade(ctx context.Context, id uint) (models.Grade, error)
	GenreByCode(ctx context.Context, code string) (models.Genre, error)
	GradeByLevel(ctx context.Context, level int) (models.Grade, error)
	Seed(ctx context.Context) (int64, error)
}

type catalogService struct {
	repo   repository.CatalogRepository
	logger zerolog.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo repository.CatalogRepository, logger zerolog.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		logger: logger.With().Str("component", "catalog_service").Logger(),
	}
}

func (s *catalogService) ListGenres(ctx context.Context) ([]models.Genre, error) {
	return s.repo.ListGenres(ctx)
}

func (s *catalogService) ListGrades(ctx context.Context) ([]models.Grade, error) {
	return s.repo.ListGrades(ctx)
}

func (s *catalogService) GetGenre(ctx context.Context, id uint) (models.Genre, error) {
	genre, err := s.repo.GetGenre(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Genre{}, fmt.Errorf("%w: id %d", ErrGenreNotFound, id)
		}
		return models.Genre{}, err
	}
	return genre, nil
}

func (s *catalogService) GetGrade(ctx context.Context, id uint) (models.Grade, error) {
	grade, err := s.repo.GetGrade(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Grade{}, fmt.Errorf("%w: id %d", ErrGradeNotFound, id)
		}
		return models.Grade{}, err
	}
	return grade, nil
}

func (s *catalogService) GenreByCode(ctx context.Context, code string) (models.Genre, error) {
	genre, err := s.repo.GenreByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Genre{}, fmt.Errorf("%w: code %q", ErrGenreNotFound, code)
		}
		return models.Genre{}, err
	}
	return genre, nil
}

func (s *catalogService) GradeByLevel(ctx context.Context, level int) (models.Grade, error) {
	grade, err := s.repo.GradeByLevel(ctx, level)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Grade{}, fmt.Errorf("%w: level %d", ErrGradeNotFound, level)
		}
		return models.Grade{}, err
	}
	return grade, nil
}

// Seed upserts the built-in genres and grades. It is safe to run on every start.
func (s *catalogService) Seed(ctx context.Context) (int64, error) {
	genres, err := s.repo.UpsertGenres(ctx, DefaultGenres())
	if err != nil {
		return 0, fmt.Errorf("seed genres: %w", err)
	}
	grades, err := s.repo.UpsertGrades(ctx, DefaultGrades())
	if err != nil {
		return genres, fmt.Errorf("seed grades: %w", err)
	}
	s.logger.Info().Int64("genres", genres).Int64("grades", grades).Msg("catalog seeded")
	return genres + grades, nil
}

// DefaultGenres returns the genres every deployment starts with.
func DefaultGenres() []models.Genre {
	return []models.Genre{
		{Name: "Narrative", Code: models.GenreCodeNarrative, Description: "Story-driven essays built around events and characters", SortOrder: 1, Active: true},
		{Name: "Argumentative", Code: models.GenreCodeArgumentative, Description: "Essays that defend a position with reasons and evidence", SortOrder: 2, Active: true},
	}
}

// DefaultGrades returns the middle school grades 7 to 9.
func DefaultGrades() []models.Grade {
	grades := make([]models.Grade, 0, 3)
	for number := 7; number <= 9; number++ {
		grades = append(grades, models.Grade{
			Name:      fmt.Sprintf("Grade %d", number),
			Code:      fmt.Sprintf("grade_%d", number),
			Level:     "middle",
			SortOrder: number,
			Active:    true,
		})
	}
	return grades
}
