package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/config"
	"github.com/noah-isme/gema-essay-api/internal/handler"
	"github.com/noah-isme/gema-essay-api/internal/middleware"
	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/internal/repository"
	"github.com/noah-isme/gema-essay-api/internal/router"
	"github.com/noah-isme/gema-essay-api/internal/service"
	"github.com/noah-isme/gema-essay-api/pkg/ai"
)

const (
	testSecret   = "handler-test-secret"
	reviewer     = "13800000001"
	analysisJSON = `{"summary": "clear narrative", "strengths": ["pacing"]}`
	scoreJSON    = `{"theme_and_intent": 18, "language_expression": 23, "structure": 13, "content_selection": 13, "emotion_and_content": 22, "comment": "solid"}`
)

type scriptedModel struct {
	mu      sync.Mutex
	replies []scriptedReply
}

type scriptedReply struct {
	content string
	err     error
}

func (m *scriptedModel) push(content string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, scriptedReply{content: content, err: err})
}

func (m *scriptedModel) Complete(context.Context, ai.CompletionRequest) (ai.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return ai.Completion{}, fmt.Errorf("%w: no scripted reply", ai.ErrModelUnavailable)
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	if reply.err != nil {
		return ai.Completion{}, reply.err
	}
	return ai.Completion{Content: reply.content, Model: "scripted"}, nil
}

type apiFixture struct {
	app           *fiber.App
	db            *gorm.DB
	model         *scriptedModel
	narrative     models.Genre
	grade7        models.Grade
	essay         models.Essay
	analyzePrompt models.Prompt
	scorePrompt   models.Prompt
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	logger := zerolog.Nop()
	validate := validator.New()
	model := &scriptedModel{}
	ctx := context.Background()

	catalog := service.NewCatalogService(repository.NewCatalogRepository(db), logger)
	_, err = catalog.Seed(ctx)
	require.NoError(t, err)

	events := service.NewWorkflowEvents(nil, "", logger)
	evaluationRepo := repository.NewEvaluationRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	prompts := service.NewPromptService(repository.NewPromptRepository(db), catalog, nil, time.Minute, validate, logger)
	detector := service.NewGenreGradeDetector(model, catalog, 0, logger)
	evaluations := service.NewEvaluationService(evaluationRepo, repository.NewEssayRepository(db), prompts, catalog, detector, model, events, validate, logger)
	scores := service.NewScoringService(scoreRepo, evaluationRepo, prompts, model, events, validate, logger)
	feedback := service.NewFeedbackService(repository.NewFeedbackRepository(db), evaluationRepo, scoreRepo, events, validate, logger)

	app := fiber.New()
	cfg := config.Config{AppName: "essay-test", AppEnv: "test"}
	router.Register(app, cfg, router.Dependencies{
		CatalogHandler:    handler.NewCatalogHandler(catalog, logger),
		EssayHandler:      handler.NewEssayHandler(evaluations, logger),
		EvaluationHandler: handler.NewEvaluationHandler(evaluations, validate, logger),
		ScoreHandler:      handler.NewScoreHandler(scores, evaluations, validate, logger),
		FeedbackHandler:   handler.NewFeedbackHandler(feedback, validate, logger),
		PromptHandler:     handler.NewPromptHandler(prompts, validate, logger),
		JWTMiddleware:     middleware.JWTProtected(testSecret),
		PromptWriteGuard:  middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTeacher),
		AdminGuard:        middleware.RequireRole(middleware.RoleAdmin),
	})

	f := &apiFixture{app: app, db: db, model: model}

	f.narrative, err = catalog.GenreByCode(ctx, models.GenreCodeNarrative)
	require.NoError(t, err)
	f.grade7, err = catalog.GradeByLevel(ctx, 7)
	require.NoError(t, err)

	batch := models.Batch{
		DirectoryName:    uuid.NewString(),
		EssayTitle:       "A Memorable Day",
		EssayRequirement: "Write about a day you will never forget.",
		GradeID:          &f.grade7.ID,
		EssayCount:       1,
		Active:           true,
	}
	require.NoError(t, db.Create(&batch).Error)
	f.essay = models.Essay{
		BatchID:     batch.ID,
		StudentName: "Student",
		Content:     "The morning of the school trip began with rain.",
		WordCount:   9,
		ScoreSystem: 40,
		Active:      true,
	}
	require.NoError(t, db.Create(&f.essay).Error)

	f.analyzePrompt = models.Prompt{GradeID: f.grade7.ID, GenreID: f.narrative.ID, Kind: models.PromptKindAnalyze, VersionName: "v1", Content: "Analyze the essay.", IsDefault: true, Active: true}
	require.NoError(t, db.Create(&f.analyzePrompt).Error)
	f.scorePrompt = models.Prompt{GradeID: f.grade7.ID, GenreID: f.narrative.ID, Kind: models.PromptKindScore, VersionName: "v1", Content: "Score the essay.", IsDefault: true, Active: true}
	require.NoError(t, db.Create(&f.scorePrompt).Error)

	return f
}

func token(t *testing.T, role string) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  reviewer,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// call performs an authenticated request as a reviewer.
func (f *apiFixture) call(t *testing.T, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	return f.callAs(t, middleware.RoleReviewer, method, path, body)
}

func (f *apiFixture) callAs(t *testing.T, role, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if role != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, role))
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	var payload envelope
	decodeResponse(t, resp, &payload)
	return resp, payload
}

// analyze runs a successful analysis over HTTP and returns the evaluation id.
func (f *apiFixture) analyze(t *testing.T) uint {
	t.Helper()

	f.model.push(analysisJSON, nil)
	resp, body := f.call(t, http.MethodPost, "/api/v1/evaluations/analyze", map[string]uint{
		"essay_id":          f.essay.ID,
		"analyze_prompt_id": f.analyzePrompt.ID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body.Message)

	var evaluation struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &evaluation))
	return evaluation.ID
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
