package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/internal/repository"
	"github.com/noah-isme/gema-essay-api/pkg/ai"
)

const (
	testReviewer = "13800000001"
	scoreReply89 = `{"theme_and_intent": 18, "language_expression": 23, "structure": 13, "content_selection": 13, "emotion_and_content": 22, "comment": "solid"}`
)

type fakeModel struct {
	mu       sync.Mutex
	replies  []fakeReply
	fallback fakeReply
	requests []ai.CompletionRequest
}

type fakeReply struct {
	content string
	err     error
}

// newFakeModel answers every call with content unless replies are queued.
func newFakeModel(content string) *fakeModel {
	return &fakeModel{fallback: fakeReply{content: content}}
}

func (m *fakeModel) queue(content string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, fakeReply{content: content, err: err})
}

func (m *fakeModel) Complete(_ context.Context, req ai.CompletionRequest) (ai.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	reply := m.fallback
	if len(m.replies) > 0 {
		reply = m.replies[0]
		m.replies = m.replies[1:]
	}
	if reply.err != nil {
		return ai.Completion{}, reply.err
	}
	return ai.Completion{Content: reply.content, Model: "fake"}, nil
}

func (m *fakeModel) calls() []ai.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.CompletionRequest(nil), m.requests...)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return p.err
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

type workflowFixture struct {
	db            *gorm.DB
	model         *fakeModel
	publisher     *recordingPublisher
	catalog       CatalogService
	prompts       PromptService
	evaluations   EvaluationService
	scoring       ScoringService
	feedback      FeedbackService
	narrative     models.Genre
	argumentative models.Genre
	grade7        models.Grade
	grade8        models.Grade
	essay         models.Essay
	analyzePrompt models.Prompt
	scorePrompt   models.Prompt
}

func setupWorkflowDB(t *testing.T) *gorm.DB {
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

func newWorkflowFixture(t *testing.T, model *fakeModel) *workflowFixture {
	t.Helper()

	db := setupWorkflowDB(t)
	logger := zerolog.Nop()
	validate := validator.New()
	ctx := context.Background()

	catalog := NewCatalogService(repository.NewCatalogRepository(db), logger)
	_, err := catalog.Seed(ctx)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	events := NewWorkflowEvents(publisher, "essay.workflow", logger)

	evaluationRepo := repository.NewEvaluationRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	prompts := NewPromptService(repository.NewPromptRepository(db), catalog, nil, time.Minute, validate, logger)

	var client ai.ModelClient
	if model != nil {
		client = model
	}
	detector := NewGenreGradeDetector(client, catalog, 0, logger)

	f := &workflowFixture{
		db:          db,
		model:       model,
		publisher:   publisher,
		catalog:     catalog,
		prompts:     prompts,
		evaluations: NewEvaluationService(evaluationRepo, repository.NewEssayRepository(db), prompts, catalog, detector, client, events, validate, logger),
		scoring:     NewScoringService(scoreRepo, evaluationRepo, prompts, client, events, validate, logger),
		feedback:    NewFeedbackService(repository.NewFeedbackRepository(db), evaluationRepo, scoreRepo, events, validate, logger),
	}

	f.narrative, err = catalog.GenreByCode(ctx, models.GenreCodeNarrative)
	require.NoError(t, err)
	f.argumentative, err = catalog.GenreByCode(ctx, models.GenreCodeArgumentative)
	require.NoError(t, err)
	f.grade7, err = catalog.GradeByLevel(ctx, 7)
	require.NoError(t, err)
	f.grade8, err = catalog.GradeByLevel(ctx, 8)
	require.NoError(t, err)

	f.essay = f.createEssay(t, 40, nil)

	f.analyzePrompt = models.Prompt{GradeID: f.grade7.ID, GenreID: f.narrative.ID, Kind: models.PromptKindAnalyze, VersionName: "v1", Content: "Analyze the essay.", IsDefault: true}
	require.NoError(t, db.Create(&f.analyzePrompt).Error)
	f.scorePrompt = models.Prompt{GradeID: f.grade7.ID, GenreID: f.narrative.ID, Kind: models.PromptKindScore, VersionName: "v1", Content: "Score the essay.", IsDefault: true}
	require.NoError(t, db.Create(&f.scorePrompt).Error)

	return f
}

func (f *workflowFixture) createEssay(t *testing.T, scoreSystem int, original *float64) models.Essay {
	t.Helper()

	batch := models.Batch{
		DirectoryName:    uuid.NewString(),
		EssayTitle:       "A Memorable Day",
		EssayRequirement: "Write about a day you will never forget.",
		GradeID:          &f.grade7.ID,
		EssayCount:       1,
		Active:           true,
	}
	require.NoError(t, f.db.Create(&batch).Error)

	essay := models.Essay{
		BatchID:       batch.ID,
		StudentName:   "Student",
		Content:       "The morning of the school trip began with rain.",
		WordCount:     9,
		ScoreSystem:   scoreSystem,
		OriginalScore: original,
		Active:        true,
	}
	require.NoError(t, f.db.Create(&essay).Error)
	return essay
}

// analyzed runs a successful analysis and returns the evaluation id.
func (f *workflowFixture) analyzed(t *testing.T, essayID uint) uint {
	t.Helper()

	f.model.queue(`{"summary": "clear narrative", "strengths": ["pacing"]}`, nil)
	evaluation, err := f.evaluations.Analyze(context.Background(), testReviewer, analyzeRequest(essayID, f.analyzePrompt.ID))
	require.NoError(t, err)
	return evaluation.ID
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&count).Error)
	return count
}

var errProviderDown = fmt.Errorf("%w: connection refused", ai.ErrModelUnavailable)

func isValidationError(err error) bool {
	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
