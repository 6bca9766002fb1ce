package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/service"
	"github.com/noah-isme/gema-essay-api/internal/utils"
)

// FeedbackHandler exposes the append-only reviewer feedback log.
type FeedbackHandler struct {
	service   service.FeedbackService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(service service.FeedbackService, validator *validator.Validate, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "feedback_handler").Logger(),
	}
}

// Register wires feedback routes relative to the API root.
func (h *FeedbackHandler) Register(router fiber.Router) {
	router.Post("/feedback/comparison", record[dto.FeedbackComparisonRequest](h))
	router.Post("/feedback/custom-score", record[dto.FeedbackCustomScoreRequest](h))
	router.Post("/feedback/comment", record[dto.FeedbackCommentRequest](h))
	router.Post("/feedback/issue-mark", record[dto.FeedbackIssueMarkRequest](h))
	router.Get("/evaluations/:id/feedback", h.list)
}

func record[T dto.FeedbackPayload](h *FeedbackHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload T
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
		if err := h.validator.Struct(payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		author := reviewerFromContext(c)
		if author == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
		}

		response, err := h.service.Record(c.UserContext(), author, payload)
		if err != nil {
			return respondError(c, h.logger, err)
		}

		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "feedback recorded", response)
	}
}

func (h *FeedbackHandler) list(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	scoreID, err := parseOptionalUintQuery(c, "score_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid score_id")
	}

	response, err := h.service.ListByEvaluation(c.UserContext(), id, scoreID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "feedback retrieved", response)
}
