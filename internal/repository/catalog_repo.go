package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

// CatalogRepository exposes the genre and grade catalog.
type CatalogRepository interface {
	ListGenres(ctx context.Context) ([]models.Genre, error)
	ListGrades(ctx context.Context) ([]models.Grade, error)
	GetGenre(ctx context.Context, id uint) (models.Genre, error)
	GetGrade(ctx context.Context, id uint) (models.Grade, error)
	GenreByCode(ctx context.Context, code string) (models.Genre, error)
	GradeByLevel(ctx context.Context, level int) (models.Grade, error)
	UpsertGenres(ctx context.Context, genres []models.Genre) (int64, error)
	UpsertGrades(ctx context.Context, grades []models.Grade) (int64, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository constructs the catalog repository.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListGenres(ctx context.Context) ([]models.Genre, error) {
	var genres []models.Genre
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&genres).Error; err != nil {
		return nil, err
	}
	return genres, nil
}

func (r *catalogRepository) ListGrades(ctx context.Context) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&grades).Error; err != nil {
		return nil, err
	}
	return grades, nil
}

func (r *catalogRepository) GetGenre(ctx context.Context, id uint) (models.Genre, error) {
	var genre models.Genre
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&genre).Error
	return genre, err
}

func (r *catalogRepository) GetGrade(ctx context.Context, id uint) (models.Grade, error) {
	var grade models.Grade
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&grade).Error
	return grade, err
}

func (r *catalogRepository) GenreByCode(ctx context.Context, code string) (models.Genre, error) {
	var genre models.Genre
	err := r.db.WithContext(ctx).Where("code = ? AND active = ?", code, true).First(&genre).Error
	return genre, err
}

func (r *catalogRepository) GradeByLevel(ctx context.Context, level int) (models.Grade, error) {
	var grade models.Grade
	err := r.db.WithContext(ctx).Where("sort_order = ? AND active = ?", level, true).First(&grade).Error
	return grade, err
}

func (r *catalogRepository) UpsertGenres(ctx context.Context, genres []models.Genre) (int64, error) {
	if len(genres) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "sort_order", "updated_at"}),
	}).Create(&genres)
	return tx.RowsAffected, tx.Error
}

func (r *catalogRepository) UpsertGrades(ctx context.Context, grades []models.Grade) (int64, error) {
	if len(grades) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "level", "sort_order", "updated_at"}),
	}).Create(&grades)
	return tx.RowsAffected, tx.Error
}
