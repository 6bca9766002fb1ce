package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/internal/service"
	"github.com/noah-isme/gema-essay-api/internal/utils"
)

// ScoreHandler exposes the scoring stage.
type ScoreHandler struct {
	scores      service.ScoringService
	evaluations service.EvaluationService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewScoreHandler constructs the handler.
func NewScoreHandler(scores service.ScoringService, evaluations service.EvaluationService, validator *validator.Validate, logger zerolog.Logger) *ScoreHandler {
	return &ScoreHandler{
		scores:      scores,
		evaluations: evaluations,
		validator:   validator,
		logger:      logger.With().Str("component", "score_handler").Logger(),
	}
}

// Register wires score routes relative to the API root.
func (h *ScoreHandler) Register(router fiber.Router, modelGuards ...fiber.Handler) {
	router.Post("/evaluations/:id/scores", chain(modelGuards, h.create)...)
	router.Get("/evaluations/:id/scores", h.list)
	router.Get("/scores/:id", h.get)
}

func (h *ScoreHandler) create(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if (payload.ConfirmedGenreID == nil) != (payload.ConfirmedGradeID == nil) {
		return utils.SendError(c, fiber.StatusBadRequest, "confirmed_genre_id and confirmed_grade_id must be sent together")
	}

	reviewer := reviewerFromContext(c)
	if reviewer == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if payload.ConfirmedGenreID != nil {
		confirm := dto.ConfirmRequest{GenreID: *payload.ConfirmedGenreID, GradeID: *payload.ConfirmedGradeID}
		if _, err := h.evaluations.Confirm(c.UserContext(), id, reviewer, confirm); err != nil {
			return respondError(c, h.logger, err)
		}
	}

	scorer := reviewer
	if payload.ScoreType == models.ScoreKindAI {
		scorer = models.SystemScorer
	}

	response, err := h.scores.Score(c.UserContext(), id, scorer, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluation scored", response)
}

func (h *ScoreHandler) list(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.scores.ListByEvaluation(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "scores retrieved", response)
}

func (h *ScoreHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.scores.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "score retrieved", response)
}
