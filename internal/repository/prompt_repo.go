package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

// PromptFilter narrows prompt listings. Zero values are ignored.
type PromptFilter struct {
	GradeID uint
	GenreID uint
	Kind    string
	Page
}

// PromptUpdate carries the mutable prompt fields. Nil fields are left untouched.
type PromptUpdate struct {
	VersionName *string
	Content     *string
	IsDefault   *bool
}

// PromptRepository persists versioned prompts and owns the is_default swap.
type PromptRepository interface {
	GetByID(ctx context.Context, id uint) (models.Prompt, error)
	GetDefault(ctx context.Context, gradeID, genreID uint, kind string) (models.Prompt, error)
	List(ctx context.Context, filter PromptFilter) ([]models.Prompt, int64, error)
	Create(ctx context.Context, prompt *models.Prompt) error
	Update(ctx context.Context, id uint, update PromptUpdate) (models.Prompt, error)
	SoftDelete(ctx context.Context, id uint) (models.Prompt, error)
}

type promptRepository struct {
	db *gorm.DB
}

// NewPromptRepository constructs the prompt repository.
func NewPromptRepository(db *gorm.DB) PromptRepository {
	return &promptRepository{db: db}
}

func (r *promptRepository) GetByID(ctx context.Context, id uint) (models.Prompt, error) {
	var prompt models.Prompt
	err := r.db.WithContext(ctx).
		Preload("Grade").
		Preload("Genre").
		Where("id = ? AND active = ?", id, true).
		First(&prompt).Error
	if err != nil {
		return models.Prompt{}, err
	}
	return prompt, nil
}

func (r *promptRepository) GetDefault(ctx context.Context, gradeID, genreID uint, kind string) (models.Prompt, error) {
	var prompt models.Prompt
	err := r.db.WithContext(ctx).
		Preload("Grade").
		Preload("Genre").
		Where("grade_id = ? AND genre_id = ? AND kind = ? AND is_default = ? AND active = ?", gradeID, genreID, kind, true, true).
		Order("updated_at DESC, id DESC").
		First(&prompt).Error
	if err != nil {
		return models.Prompt{}, err
	}
	return prompt, nil
}

func (r *promptRepository) List(ctx context.Context, filter PromptFilter) ([]models.Prompt, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Prompt{}).Where("active = ?", true)
	if filter.GradeID != 0 {
		query = query.Where("grade_id = ?", filter.GradeID)
	}
	if filter.GenreID != 0 {
		query = query.Where("genre_id = ?", filter.GenreID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var prompts []models.Prompt
	if err := filter.Page.apply(query).
		Preload("Grade").
		Preload("Genre").
		Order("created_at DESC, id DESC").
		Find(&prompts).Error; err != nil {
		return nil, 0, err
	}

	return prompts, total, nil
}

// Create inserts the prompt. When it is flagged default, every other active
// prompt sharing (grade, genre, kind) is demoted in the same transaction.
func (r *promptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prompt.IsDefault {
			if err := lockGrade(tx, prompt.GradeID); err != nil {
				return err
			}
			if err := demotePrompts(tx, prompt.GradeID, prompt.GenreID, prompt.Kind, 0); err != nil {
				return err
			}
		}

		prompt.Active = true
		return tx.Omit(clause.Associations).Create(prompt).Error
	})
}

func (r *promptRepository) Update(ctx context.Context, id uint, update PromptUpdate) (models.Prompt, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Prompt
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND active = ?", id, true).
			First(&current).Error; err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if update.VersionName != nil {
			changes["version_name"] = *update.VersionName
		}
		if update.Content != nil {
			changes["content"] = *update.Content
		}
		if update.IsDefault != nil {
			if *update.IsDefault {
				if err := lockGrade(tx, current.GradeID); err != nil {
					return err
				}
				if err := demotePrompts(tx, current.GradeID, current.GenreID, current.Kind, current.ID); err != nil {
					return err
				}
			}
			changes["is_default"] = *update.IsDefault
		}
		if len(changes) == 0 {
			return nil
		}

		return tx.Model(&models.Prompt{}).Where("id = ?", current.ID).Updates(changes).Error
	})
	if err != nil {
		return models.Prompt{}, err
	}

	return r.GetByID(ctx, id)
}

// SoftDelete marks the prompt inactive. The row stays for the evaluations and
// scores that reference it.
func (r *promptRepository) SoftDelete(ctx context.Context, id uint) (models.Prompt, error) {
	var prompt models.Prompt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND active = ?", id, true).
			First(&prompt).Error; err != nil {
			return err
		}
		return tx.Model(&models.Prompt{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"active": false, "is_default": false}).Error
	})
	if err != nil {
		return models.Prompt{}, err
	}
	prompt.Active = false
	prompt.IsDefault = false
	return prompt, nil
}

// lockGrade serialises default swaps for every prompt key under one grade.
func lockGrade(tx *gorm.DB, gradeID uint) error {
	var grade models.Grade
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", gradeID).
		First(&grade).Error
}

func demotePrompts(tx *gorm.DB, gradeID, genreID uint, kind string, exceptID uint) error {
	query := tx.Model(&models.Prompt{}).
		Where("grade_id = ? AND genre_id = ? AND kind = ? AND is_default = ?", gradeID, genreID, kind, true)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	return query.Update("is_default", false).Error
}
