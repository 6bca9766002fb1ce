package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/service"
	"github.com/noah-isme/gema-essay-api/internal/utils"
)

// EvaluationHandler exposes the analysis, detection and confirmation stages.
type EvaluationHandler struct {
	service   service.EvaluationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(service service.EvaluationService, validator *validator.Validate, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires the evaluation routes. modelGuards run in front of every
// route that calls the model.
func (h *EvaluationHandler) Register(router fiber.Router, modelGuards ...fiber.Handler) {
	router.Post("/analyze", chain(modelGuards, h.analyze)...)
	router.Post("/detect-genre", chain(modelGuards, h.detectText)...)
	router.Get("/:id", h.get)
	router.Post("/:id/detect", chain(modelGuards, h.detect)...)
	router.Post("/:id/confirm", h.confirm)
}

func (h *EvaluationHandler) analyze(c *fiber.Ctx) error {
	var payload dto.AnalyzeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	reviewer := reviewerFromContext(c)
	if reviewer == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Analyze(c.UserContext(), reviewer, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "essay analyzed", response)
}

func (h *EvaluationHandler) detectText(c *fiber.Ctx) error {
	var payload dto.DetectGenreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.DetectText(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "genre detected", response)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "evaluation retrieved", response)
}

func (h *EvaluationHandler) detect(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Detect(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "genre detected", response)
}

func (h *EvaluationHandler) confirm(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ConfirmRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Confirm(c.UserContext(), id, reviewerFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "evaluation confirmed", response)
}

func chain(guards []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guards)+1)
	for _, guard := range guards {
		if guard != nil {
			handlers = append(handlers, guard)
		}
	}
	return append(handlers, handler)
}
