package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-essay-api/internal/dto"
	"github.com/noah-isme/gema-essay-api/internal/service"
	"github.com/noah-isme/gema-essay-api/internal/utils"
)

// CatalogHandler lists genres and grades.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// Register wires catalog routes. seedGuards protect the seeding endpoint.
func (h *CatalogHandler) Register(router fiber.Router, seedGuards ...fiber.Handler) {
	router.Get("/genres", h.genres)
	router.Get("/grades", h.grades)
	router.Post("/seed", chain(seedGuards, h.seed)...)
}

func (h *CatalogHandler) genres(c *fiber.Ctx) error {
	genres, err := h.service.ListGenres(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "genres retrieved", dto.NewGenreResponses(genres))
}

func (h *CatalogHandler) grades(c *fiber.Ctx) error {
	grades, err := h.service.ListGrades(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grades retrieved", dto.NewGradeResponses(grades))
}

func (h *CatalogHandler) seed(c *fiber.Ctx) error {
	created, err := h.service.Seed(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Int64("created", created).Str("actor", reviewerFromContext(c)).Msg("catalog seeded")
	return utils.SendSuccess(c, "catalog seeded", fiber.Map{"affected": created})
}
