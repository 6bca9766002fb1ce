package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/pkg/ai"
)

const (
	defaultDetectPrefixRunes = 1000
	detectTemperature        = 0.3
	detectMaxTokens          = 500
)

const detectInstruction = `You classify student essays. Decide the essay's genre and the school grade it fits.
Reply with one JSON object and nothing else:
{"genre_code": "narrative" or "argumentative", "genre_name": string, "confidence": number between 0 and 1, "grade_level": 7, 8 or 9, "reasoning": string}`

// GenreGradeDetection is a model proposal resolved against the catalog.
type GenreGradeDetection struct {
	Genre         models.Genre
	Grade         models.Grade
	Confidence    float64
	ProposedGenre string
	ProposedGrade int
	// Fallback is set when either proposal was absent from the catalog.
	Fallback bool
}

// GenreGradeDetector proposes a genre and grade for essay text.
type GenreGradeDetector interface {
	Detect(ctx context.Context, content, requirement string) (GenreGradeDetection, error)
}

type genreGradeDetector struct {
	model       ai.ModelClient
	catalog     CatalogService
	prefixRunes int
	logger      zerolog.Logger
}

// NewGenreGradeDetector constructs the detector. prefixRunes bounds how much
// essay text is sent to the model.
func NewGenreGradeDetector(model ai.ModelClient, catalog CatalogService, prefixRunes int, logger zerolog.Logger) GenreGradeDetector {
	if prefixRunes <= 0 {
		prefixRunes = defaultDetectPrefixRunes
	}
	return &genreGradeDetector{
		model:       model,
		catalog:     catalog,
		prefixRunes: prefixRunes,
		logger:      logger.With().Str("component", "genre_detector").Logger(),
	}
}

func (d *genreGradeDetector) Detect(ctx context.Context, content, requirement string) (GenreGradeDetection, error) {
	if d.model == nil {
		return GenreGradeDetection{}, ErrModelUnavailable
	}

	completion, err := d.model.Complete(ctx, ai.CompletionRequest{
		Operation:    StageDetect,
		SystemPrompt: detectInstruction,
		UserPrompt:   fmt.Sprintf("Essay requirement:\n%s\n\nEssay content:\n%s", requirement, truncateRunes(content, d.prefixRunes)),
		Temperature:  detectTemperature,
		MaxTokens:    detectMaxTokens,
		JSONResponse: true,
	})
	if err != nil {
		return GenreGradeDetection{}, err
	}

	proposal, err := parseDetection(completion.Content)
	if err != nil {
		return GenreGradeDetection{}, err
	}

	detection, err := d.resolve(ctx, proposal)
	if err != nil {
		return GenreGradeDetection{}, err
	}

	d.logger.Info().
		Str("genre", detection.Genre.Code).
		Int("grade", detection.Grade.SortOrder).
		Float64("confidence", detection.Confidence).
		Bool("fallback", detection.Fallback).
		Msg("genre detected")

	return detection, nil
}

type detectionProposal struct {
	genreCode  string
	gradeLevel int
	confidence float64
}

// parseDetection is strict: any missing or mistyped field is a format error.
func parseDetection(content string) (detectionProposal, error) {
	payload, err := ai.DecodeObject(content)
	if err != nil {
		return detectionProposal{}, err
	}

	fail := func(reason string) (detectionProposal, error) {
		return detectionProposal{}, &ai.ResponseError{Reason: reason, Raw: content}
	}

	code, ok := payload["genre_code"].(string)
	if !ok || strings.TrimSpace(code) == "" {
		return fail("genre_code must be a non-empty string")
	}

	level, ok := numberValue(payload["grade_level"])
	if !ok || level != math.Trunc(level) {
		return fail("grade_level must be an integer")
	}

	confidence, ok := numberValue(payload["confidence"])
	if !ok {
		return fail("confidence must be a number")
	}
	if confidence < 0 || confidence > 1 {
		return fail("confidence must be within [0, 1]")
	}

	return detectionProposal{
		genreCode:  strings.ToLower(strings.TrimSpace(code)),
		gradeLevel: int(level),
		confidence: confidence,
	}, nil
}

// resolve maps the proposal to catalog rows. Unknown codes fall back to the
// narrative genre and the middle active grade; they never fail the request.
func (d *genreGradeDetector) resolve(ctx context.Context, proposal detectionProposal) (GenreGradeDetection, error) {
	detection := GenreGradeDetection{
		Confidence:    proposal.confidence,
		ProposedGenre: proposal.genreCode,
		ProposedGrade: proposal.gradeLevel,
	}

	genre, err := d.catalog.GenreByCode(ctx, proposal.genreCode)
	if err != nil {
		if !errors.Is(err, ErrGenreNotFound) {
			return GenreGradeDetection{}, err
		}
		genre, err = d.catalog.GenreByCode(ctx, models.GenreCodeNarrative)
		if err != nil {
			return GenreGradeDetection{}, fmt.Errorf("fallback genre: %w", err)
		}
		detection.Fallback = true
	}
	detection.Genre = genre

	grade, err := d.catalog.GradeByLevel(ctx, proposal.gradeLevel)
	if err != nil {
		if !errors.Is(err, ErrGradeNotFound) {
			return GenreGradeDetection{}, err
		}
		grade, err = d.middleGrade(ctx)
		if err != nil {
			return GenreGradeDetection{}, err
		}
		detection.Fallback = true
	}
	detection.Grade = grade

	if detection.Fallback {
		d.logger.Warn().
			Str("proposed_genre", proposal.genreCode).
			Int("proposed_grade", proposal.gradeLevel).
			Msg("detection outside catalog, using fallback")
	}

	return detection, nil
}

func (d *genreGradeDetector) middleGrade(ctx context.Context) (models.Grade, error) {
	grades, err := d.catalog.ListGrades(ctx)
	if err != nil {
		return models.Grade{}, err
	}
	if len(grades) == 0 {
		return models.Grade{}, fmt.Errorf("%w: catalog has no active grades", ErrGradeNotFound)
	}
	return grades[len(grades)/2], nil
}

func numberValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func truncateRunes(content string, limit int) string {
	if limit <= 0 {
		return content
	}
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}
