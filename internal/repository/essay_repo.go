package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

// EssayRepository is the read side of ingested essays.
type EssayRepository interface {
	GetByID(ctx context.Context, id uint) (models.Essay, error)
}

type essayRepository struct {
	db *gorm.DB
}

// NewEssayRepository constructs the essay repository.
func NewEssayRepository(db *gorm.DB) EssayRepository {
	return &essayRepository{db: db}
}

func (r *essayRepository) GetByID(ctx context.Context, id uint) (models.Essay, error) {
	var essay models.Essay
	err := r.db.WithContext(ctx).
		Preload("Batch").
		Where("id = ? AND active = ?", id, true).
		First(&essay).Error
	if err != nil {
		return models.Essay{}, err
	}
	return essay, nil
}
