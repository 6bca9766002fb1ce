package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

// ScoreRepository persists scores and owns the is_default swap.
type ScoreRepository interface {
	GetByID(ctx context.Context, id uint) (models.Score, error)
	ListByEvaluation(ctx context.Context, evaluationID uint) ([]models.Score, error)
	CreateDefault(ctx context.Context, score *models.Score) error
}

type scoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository constructs the score repository.
func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

func (r *scoreRepository) GetByID(ctx context.Context, id uint) (models.Score, error) {
	var score models.Score
	err := r.db.WithContext(ctx).
		Preload("ScorePrompt").
		Where("id = ? AND active = ?", id, true).
		First(&score).Error
	if err != nil {
		return models.Score{}, err
	}
	return score, nil
}

func (r *scoreRepository) ListByEvaluation(ctx context.Context, evaluationID uint) ([]models.Score, error) {
	var scores []models.Score
	if err := r.db.WithContext(ctx).
		Preload("ScorePrompt").
		Where("evaluation_id = ? AND active = ?", evaluationID, true).
		Order("created_at DESC, id DESC").
		Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

// CreateDefault demotes the evaluation's current default score and inserts the
// new one as default, in one transaction under the evaluation row lock.
func (r *scoreRepository) CreateDefault(ctx context.Context, score *models.Score) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var evaluation models.Evaluation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", score.EvaluationID).
			First(&evaluation).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Score{}).
			Where("evaluation_id = ? AND is_default = ?", score.EvaluationID, true).
			Update("is_default", false).Error; err != nil {
			return err
		}

		score.IsDefault = true
		score.Active = true
		return tx.Omit(clause.Associations).Create(score).Error
	})
}
