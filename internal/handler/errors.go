package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-essay-api/internal/service"
	"github.com/noah-isme/gema-essay-api/internal/utils"
	"github.com/noah-isme/gema-essay-api/pkg/ai"
	"github.com/noah-isme/gema-essay-api/pkg/scoring"
)

// ModelErrorDetail is returned with rejected model output so reviewers can
// see what the model actually said.
type ModelErrorDetail struct {
	Dimension   string      `json:"dimension,omitempty"`
	Value       interface{} `json:"value,omitempty"`
	Max         float64     `json:"max,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	RawResponse string      `json:"raw_response"`
}

var notFoundErrors = []error{
	service.ErrEssayNotFound,
	service.ErrPromptNotFound,
	service.ErrEvaluationNotFound,
	service.ErrScoreNotFound,
	service.ErrGenreNotFound,
	service.ErrGradeNotFound,
}

// respondError maps workflow errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var (
		validationErrors validator.ValidationErrors
		dimensionErr     *scoring.ValidationError
		responseErr      *ai.ResponseError
	)

	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
	}

	switch {
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.As(err, &dimensionErr):
		return utils.SendErrorWithData(c, fiber.StatusUnprocessableEntity, "model returned invalid dimension scores", ModelErrorDetail{
			Dimension:   dimensionErr.Dimension,
			Value:       dimensionErr.Value,
			Max:         dimensionErr.Max,
			Reason:      dimensionErr.Reason,
			RawResponse: dimensionErr.Raw,
		})
	case errors.Is(err, service.ErrAnalysisPayloadInvalid), errors.Is(err, service.ErrFeedbackInvalid):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &responseErr):
		return utils.SendErrorWithData(c, fiber.StatusBadGateway, "model response could not be parsed", ModelErrorDetail{
			Reason:      responseErr.Reason,
			RawResponse: responseErr.Raw,
		})
	case errors.Is(err, ai.ErrModelRequest):
		requestLogger(logger, c).Error().Err(err).Msg("model rejected request")
		return utils.SendError(c, fiber.StatusBadGateway, "model rejected request")
	case errors.Is(err, ai.ErrModelUnavailable), errors.Is(err, service.ErrModelUnavailable):
		requestLogger(logger, c).Warn().Err(err).Msg("model unavailable")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "model unavailable, retry later")
	default:
		requestLogger(logger, c).Error().Err(err).Msg("request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
