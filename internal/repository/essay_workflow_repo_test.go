package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/models"
)

func setupWorkflowTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// setupConcurrentTestDB opens a file database with several connections.
// sqlite drops FOR UPDATE, so writers are serialised by immediate
// transactions instead; on postgres the essay and evaluation row locks do it.
func setupConcurrentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

type workflowFixture struct {
	genre  models.Genre
	grade  models.Grade
	essay  models.Essay
	prompt models.Prompt
}

func seedWorkflowFixture(t *testing.T, db *gorm.DB) workflowFixture {
	t.Helper()
	genre := models.Genre{Name: "Narrative", Code: models.GenreCodeNarrative, SortOrder: 1, Active: true}
	grade := models.Grade{Name: "Grade 7", Code: "grade_7", Level: "junior", SortOrder: 7, Active: true}
	require.NoError(t, db.Create(&genre).Error)
	require.NoError(t, db.Create(&grade).Error)

	batch := models.Batch{DirectoryName: "batch-" + uuid.NewString(), EssayTitle: "My Summer", EssayRequirement: "At least 600 words", Active: true}
	require.NoError(t, db.Create(&batch).Error)

	essay := models.Essay{BatchID: batch.ID, StudentName: "Li", Content: "It was a hot day.", WordCount: 5, ScoreSystem: 40, Active: true}
	require.NoError(t, db.Create(&essay).Error)

	prompt := models.Prompt{GradeID: grade.ID, GenreID: genre.ID, Kind: models.PromptKindAnalyze, VersionName: "v1", Content: "Analyse.", Active: true}
	require.NoError(t, db.Create(&prompt).Error)

	return workflowFixture{genre: genre, grade: grade, essay: essay, prompt: prompt}
}

func newEvaluation(fixture workflowFixture) *models.Evaluation {
	return &models.Evaluation{
		EssayID:         fixture.essay.ID,
		ReviewerID:      "13800000000",
		AnalyzePromptID: fixture.prompt.ID,
		Result:          datatypes.JSONMap{"summary": "fine"},
	}
}

func countLatest(t *testing.T, db *gorm.DB, essayID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Evaluation{}).Where("essay_id = ? AND is_latest = ?", essayID, true).Count(&count).Error)
	return count
}

func TestEvaluationRepositoryCreateLatestKeepsSingleLatest(t *testing.T) {
	db := setupWorkflowTestDB(t)
	fixture := seedWorkflowFixture(t, db)
	repo := NewEvaluationRepository(db)
	ctx := context.Background()

	var lastID uint
	for i := 0; i < 4; i++ {
		evaluation := newEvaluation(fixture)
		require.NoError(t, repo.CreateLatest(ctx, evaluation))
		require.True(t, evaluation.IsLatest)
		lastID = evaluation.ID
		require.Equal(t, int64(1), countLatest(t, db, fixture.essay.ID))
	}

	var latest models.Evaluation
	require.NoError(t, db.Where("essay_id = ? AND is_latest = ?", fixture.essay.ID, true).First(&latest).Error)
	require.Equal(t, lastID, latest.ID)

	items, total, err := repo.ListByEssay(ctx, fixture.essay.ID, Page{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(4), total)
	require.Len(t, items, 2)
	require.Equal(t, lastID, items[0].ID)
}

func TestEvaluationRepositoryCreateLatestMissingEssay(t *testing.T) {
	db := setupWorkflowTestDB(t)
	fixture := seedWorkflowFixture(t, db)
	repo := NewEvaluationRepository(db)

	evaluation := newEvaluation(fixture)
	evaluation.EssayID = 999
	err := repo.CreateLatest(context.Background(), evaluation)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Evaluation{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEvaluationRepositoryConcurrentCreateLatest(t *testing.T) {
	db := setupConcurrentTestDB(t)
	fixture := seedWorkflowFixture(t, db)
	repo := NewEvaluationRepository(db)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.CreateLatest(context.Background(), newEvaluation(fixture))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), countLatest(t, db, fixture.essay.ID))
}

func TestEvaluationRepositoryConfirmAndDetection(t *testing.T) {
	db := setupWorkflowTestDB(t)
	fixture := seedWorkflowFixture(t, db)
	repo := NewEvaluationRepository(db)
	ctx := context.Background()

	evaluation := newEvaluation(fixture)
	require.NoError(t, repo.CreateLatest(ctx, evaluation))

	stored, err := repo.GetByID(ctx, evaluation.ID)
	require.NoError(t, err)
	require.False(t, stored.IsConfirmed())
	require.Equal(t, "My Summer", stored.Essay.Title())

	require.NoError(t, repo.SaveDetection(ctx, evaluation.ID, Detection{GenreID: fixture.genre.ID, GradeID: fixture.grade.ID, Confidence: 0.9}))
	require.NoError(t, repo.Confirm(ctx, evaluation.ID, fixture.genre.ID, fixture.grade.ID, stored.CreatedAt))

	stored, err = repo.GetByID(ctx, evaluation.ID)
	require.NoError(t, err)
	require.True(t, stored.IsConfirmed())
	require.NotNil(t, stored.GenreConfidence)
	require.InDelta(t, 0.9, *stored.GenreConfidence, 1e-9)

	require.ErrorIs(t, repo.Confirm(ctx, 999, 1, 1, stored.CreatedAt), gorm.ErrRecordNotFound)
}

func TestScoreRepositoryCreateDefaultKeepsSingleDefault(t *testing.T) {
	db := setupWorkflowTestDB(t)
	fixture := seedWorkflowFixture(t, db)
	evaluations := NewEvaluationRepository(db)
	scores := NewScoreRepository(db)
	ctx := context.Background()

	evaluation := newEvaluation(fixture)
	require.NoError(t, evaluations.CreateLatest(ctx, evaluation))

	var lastID uint
	for i := 0; i < 3; i++ {
		score := &models.Score{
			EvaluationID:  evaluation.ID,
			ScorerID:      models.SystemScorer,
			ScorePromptID: fixture.prompt.ID,
			Kind:          models.ScoreKindAI,
			ScoreSystem:   40,
			TotalScore:    float64(30 + i),
		}
		require.NoError(t, scores.CreateDefault(ctx, score))
		lastID = score.ID
	}

	items, err := scores.ListByEvaluation(ctx, evaluation.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	defaults := 0
	for _, item := range items {
		if item.IsDefault {
			defaults++
			require.Equal(t, lastID, item.ID)
		}
	}
	require.Equal(t, 1, defaults)
	require.Equal(t, lastID, items[0].ID)
}

func TestScoreRepositoryConcurrentCreateDefault(t *testing.T) {
	db := setupConcurrentTestDB(t)
	fixture := seedWorkflowFixture(t, db)
	evaluation := newEvaluation(fixture)
	require.NoError(t, NewEvaluationRepository(db).CreateLatest(context.Background(), evaluation))
	scores := NewScoreRepository(db)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(total float64) {
			defer wg.Done()
			errs <- scores.CreateDefault(context.Background(), &models.Score{
				EvaluationID:  evaluation.ID,
				ScorerID:      models.SystemScorer,
				ScorePromptID: fixture.prompt.ID,
				Kind:          models.ScoreKindAI,
				ScoreSystem:   40,
				TotalScore:    total,
			})
		}(float64(20 + i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	var defaults int64
	require.NoError(t, db.Model(&models.Score{}).Where("evaluation_id = ? AND is_default = ?", evaluation.ID, true).Count(&defaults).Error)
	require.Equal(t, int64(1), defaults)
}

func TestPromptRepositoryCreateDefaultDemotesPrevious(t *testing.T) {
	db := setupWorkflowTestDB(t)
	fixture := seedWorkflowFixture(t, db)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	first := &models.Prompt{GradeID: fixture.grade.ID, GenreID: fixture.genre.ID, Kind: models.PromptKindScore, VersionName: "v1", Content: "Score it.", IsDefault: true}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.Prompt{GradeID: fixture.grade.ID, GenreID: fixture.genre.ID, Kind: models.PromptKindScore, VersionName: "v2", Content: "Score it better.", IsDefault: true}
	require.NoError(t, repo.Create(ctx, second))

	reloaded, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsDefault)

	current, err := repo.GetDefault(ctx, fixture.grade.ID, fixture.genre.ID, models.PromptKindScore)
	require.NoError(t, err)
	require.Equal(t, second.ID, current.ID)

	var defaults int64
	require.NoError(t, db.Model(&models.Prompt{}).
		Where("grade_id = ? AND genre_id = ? AND kind = ? AND is_default = ?", fixture.grade.ID, fixture.genre.ID, models.PromptKindScore, true).
		Count(&defaults).Error)
	require.Equal(t, int64(1), defaults)

	// the analyze prompt for the same grade and genre is a different key
	analyze, err := repo.GetByID(ctx, fixture.prompt.ID)
	require.NoError(t, err)
	require.Equal(t, models.PromptKindAnalyze, analyze.Kind)
}

func TestPromptRepositoryUpdateAndSoftDelete(t *testing.T) {
	db := setupWorkflowTestDB(t)
	fixture := seedWorkflowFixture(t, db)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	first := &models.Prompt{GradeID: fixture.grade.ID, GenreID: fixture.genre.ID, Kind: models.PromptKindScore, VersionName: "v1", Content: "a", IsDefault: true}
	second := &models.Prompt{GradeID: fixture.grade.ID, GenreID: fixture.genre.ID, Kind: models.PromptKindScore, VersionName: "v2", Content: "b"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	isDefault := true
	content := "b2"
	updated, err := repo.Update(ctx, second.ID, PromptUpdate{IsDefault: &isDefault, Content: &content})
	require.NoError(t, err)
	require.True(t, updated.IsDefault)
	require.Equal(t, "b2", updated.Content)

	reloaded, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsDefault)

	deleted, err := repo.SoftDelete(ctx, second.ID)
	require.NoError(t, err)
	require.False(t, deleted.Active)

	_, err = repo.GetByID(ctx, second.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var raw models.Prompt
	require.NoError(t, db.First(&raw, second.ID).Error)
	require.False(t, raw.Active)

	_, err = repo.SoftDelete(ctx, second.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	items, total, err := repo.List(ctx, PromptFilter{Kind: models.PromptKindScore})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, first.ID, items[0].ID)
}

func TestCatalogRepositoryUpsertAndLookup(t *testing.T) {
	db := setupWorkflowTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	_, err := repo.UpsertGrades(ctx, []models.Grade{
		{Name: "Grade 7", Code: "grade_7", Level: "junior", SortOrder: 7, Active: true},
		{Name: "Grade 8", Code: "grade_8", Level: "junior", SortOrder: 8, Active: true},
	})
	require.NoError(t, err)
	_, err = repo.UpsertGrades(ctx, []models.Grade{{Name: "Grade Eight", Code: "grade_8", Level: "junior", SortOrder: 8, Active: true}})
	require.NoError(t, err)

	grades, err := repo.ListGrades(ctx)
	require.NoError(t, err)
	require.Len(t, grades, 2)

	grade, err := repo.GradeByLevel(ctx, 8)
	require.NoError(t, err)
	require.Equal(t, "Grade Eight", grade.Name)

	_, err = repo.GenreByCode(ctx, "poetry")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFeedbackRepositoryFiltersByScore(t *testing.T) {
	db := setupWorkflowTestDB(t)
	fixture := seedWorkflowFixture(t, db)
	evaluations := NewEvaluationRepository(db)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()

	evaluation := newEvaluation(fixture)
	require.NoError(t, evaluations.CreateLatest(ctx, evaluation))

	scoreID := uint(7)
	require.NoError(t, repo.Create(ctx, &models.Feedback{EvaluationID: evaluation.ID, AuthorID: "1", Kind: models.FeedbackKindComment, Data: datatypes.JSONMap{"comment": "nice"}}))
	require.NoError(t, repo.Create(ctx, &models.Feedback{EvaluationID: evaluation.ID, ScoreID: &scoreID, AuthorID: "1", Kind: models.FeedbackKindComparison, Data: datatypes.JSONMap{"which_accurate": "ai"}}))

	all, err := repo.ListByEvaluation(ctx, evaluation.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := repo.ListByEvaluation(ctx, evaluation.ID, &scoreID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "ai", scoped[0].Data["which_accurate"])
}
