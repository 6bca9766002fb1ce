package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

// FeedbackRepository is the append-only feedback log.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	ListByEvaluation(ctx context.Context, evaluationID uint, scoreID *uint) ([]models.Feedback, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository constructs the feedback repository.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	feedback.Active = true
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(feedback).Error
}

func (r *feedbackRepository) ListByEvaluation(ctx context.Context, evaluationID uint, scoreID *uint) ([]models.Feedback, error) {
	query := r.db.WithContext(ctx).Where("evaluation_id = ? AND active = ?", evaluationID, true)
	if scoreID != nil {
		query = query.Where("score_id = ?", *scoreID)
	}

	var items []models.Feedback
	if err := query.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
