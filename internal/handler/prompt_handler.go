package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/service"
	"github.com/noah-isme/gema-essay-api/internal/utils"
)

// PromptHandler exposes prompt registry management.
type PromptHandler struct {
	service   service.PromptService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPromptHandler constructs the handler.
func NewPromptHandler(service service.PromptService, validator *validator.Validate, logger zerolog.Logger) *PromptHandler {
	return &PromptHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "prompt_handler").Logger(),
	}
}

// Register wires prompt routes. writeGuards protect create, update and delete.
func (h *PromptHandler) Register(router fiber.Router, writeGuards ...fiber.Handler) {
	router.Get("", h.list)
	router.Get("/default", h.getDefault)
	router.Get("/:id", h.get)
	router.Post("", chain(writeGuards, h.create)...)
	router.Put("/:id", chain(writeGuards, h.update)...)
	router.Delete("/:id", chain(writeGuards, h.delete)...)
}

func (h *PromptHandler) list(c *fiber.Ctx) error {
	var query dto.PromptListRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "prompts retrieved", response)
}

func (h *PromptHandler) getDefault(c *fiber.Ctx) error {
	var query dto.PromptDefaultRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.GetDefault(c.UserContext(), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "default prompt retrieved", response)
}

func (h *PromptHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "prompt retrieved", response)
}

func (h *PromptHandler) create(c *fiber.Ctx) error {
	var payload dto.PromptCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Create(c.UserContext(), payload, reviewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "prompt created", response)
}

func (h *PromptHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PromptUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Update(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "prompt updated", response)
}

func (h *PromptHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "prompt deactivated", nil)
}
