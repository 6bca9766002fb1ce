package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-essay-api/internal/config"
	"github.com/noah-isme/gema-essay-api/internal/handler"
	"github.com/noah-isme/gema-essay-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CatalogHandler    *handler.CatalogHandler
	EssayHandler      *handler.EssayHandler
	EvaluationHandler *handler.EvaluationHandler
	ScoreHandler      *handler.ScoreHandler
	FeedbackHandler   *handler.FeedbackHandler
	PromptHandler     *handler.PromptHandler
	JWTMiddleware     fiber.Handler
	// ModelGuard runs in front of every route that calls the model.
	ModelGuard       fiber.Handler
	PromptWriteGuard fiber.Handler
	AdminGuard       fiber.Handler
	HealthProbes     map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	secured := api.Group("", jwtMiddleware)

	if deps.CatalogHandler != nil {
		deps.CatalogHandler.Register(secured.Group("/catalog"), deps.AdminGuard)
	}

	if deps.EssayHandler != nil {
		deps.EssayHandler.Register(secured.Group("/essays"))
	}

	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(secured.Group("/evaluations"), deps.ModelGuard)
	}

	if deps.ScoreHandler != nil {
		deps.ScoreHandler.Register(secured, deps.ModelGuard)
	}

	if deps.FeedbackHandler != nil {
		deps.FeedbackHandler.Register(secured)
	}

	if deps.PromptHandler != nil {
		deps.PromptHandler.Register(secured.Group("/prompts"), deps.PromptWriteGuard)
	}
}
