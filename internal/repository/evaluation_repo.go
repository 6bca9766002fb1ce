package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

// Detection holds the AI-proposed classification stored on an evaluation.
type Detection struct {
	GenreID    uint
	GradeID    uint
	Confidence float64
}

// EvaluationRepository persists evaluations and owns the is_latest swap.
type EvaluationRepository interface {
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
	ListByEssay(ctx context.Context, essayID uint, page Page) ([]models.Evaluation, int64, error)
	CreateLatest(ctx context.Context, evaluation *models.Evaluation) error
	SaveDetection(ctx context.Context, id uint, detection Detection) error
	Confirm(ctx context.Context, id uint, genreID, gradeID uint, confirmedAt time.Time) error
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs the evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	err := r.db.WithContext(ctx).
		Preload("Essay").
		Preload("Essay.Batch").
		Preload("AnalyzePrompt").
		Where("id = ? AND active = ?", id, true).
		First(&evaluation).Error
	if err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) ListByEssay(ctx context.Context, essayID uint, page Page) ([]models.Evaluation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("essay_id = ? AND active = ?", essayID, true)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var evaluations []models.Evaluation
	if err := page.apply(query).
		Preload("AnalyzePrompt").
		Order("created_at DESC, id DESC").
		Find(&evaluations).Error; err != nil {
		return nil, 0, err
	}

	return evaluations, total, nil
}

// CreateLatest demotes every evaluation of the essay and inserts the new one
// as latest, in one transaction. The essay row lock serialises concurrent
// analyses of the same essay.
func (r *evaluationRepository) CreateLatest(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var essay models.Essay
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", evaluation.EssayID).
			First(&essay).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Evaluation{}).
			Where("essay_id = ? AND is_latest = ?", evaluation.EssayID, true).
			Update("is_latest", false).Error; err != nil {
			return err
		}

		evaluation.IsLatest = true
		evaluation.Active = true
		return tx.Omit(clause.Associations).Create(evaluation).Error
	})
}

func (r *evaluationRepository) SaveDetection(ctx context.Context, id uint, detection Detection) error {
	result := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]interface{}{
			"detected_genre_id": detection.GenreID,
			"detected_grade_id": detection.GradeID,
			"genre_confidence":  detection.Confidence,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *evaluationRepository) Confirm(ctx context.Context, id uint, genreID, gradeID uint, confirmedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]interface{}{
			"confirmed_genre_id": genreID,
			"confirmed_grade_id": gradeID,
			"confirmed_at":       confirmedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
