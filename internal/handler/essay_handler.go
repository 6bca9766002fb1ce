package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/service"
	"github.com/noah-isme/gema-essay-api/internal/utils"
)

// EssayHandler is the read side for ingested essays and their evaluation history.
type EssayHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

func NewEssayHandler(service service.EvaluationService, logger zerolog.Logger) *EssayHandler {
	return &EssayHandler{
		service: service,
		logger:  logger.With().Str("component", "essay_handler").Logger(),
	}
}

func (h *EssayHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Get("/:id/evaluations", h.evaluations)
}

func (h *EssayHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Essay(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "essay retrieved", response)
}

func (h *EssayHandler) evaluations(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var query dto.EvaluationListRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.ListByEssay(c.UserContext(), id, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluations retrieved", response)
}
