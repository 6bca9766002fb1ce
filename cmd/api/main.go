package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-essay-api/internal/config"
	"github.com/noah-isme/gema-essay-api/internal/database"
	"github.com/noah-isme/gema-essay-api/internal/handler"
	"github.com/noah-isme/gema-essay-api/internal/middleware"
	"github.com/noah-isme/gema-essay-api/internal/models"
	"github.com/noah-isme/gema-essay-api/internal/observability"
	"github.com/noah-isme/gema-essay-api/internal/repository"
	"github.com/noah-isme/gema-essay-api/internal/router"
	"github.com/noah-isme/gema-essay-api/internal/service"
	"github.com/noah-isme/gema-essay-api/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	observability.RegisterMetrics()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, prompt cache disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var publisher service.MessagePublisher
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, workflow events disabled")
		} else {
			publisher = natsConn
			defer natsConn.Drain()
		}
	}

	model, err := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.OpenAIModel,
		MaxTokens: cfg.OpenAIMaxTokens,
		Timeout:   cfg.OpenAITimeout,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create model client")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	catalogRepo := repository.NewCatalogRepository(db)
	essayRepo := repository.NewEssayRepository(db)
	promptRepo := repository.NewPromptRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	events := service.NewWorkflowEvents(publisher, cfg.NATSSubject, logger)
	catalogService := service.NewCatalogService(catalogRepo, logger)
	if cfg.SeedCatalog {
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err := catalogService.Seed(seedCtx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to seed catalog")
		}
	}

	promptService := service.NewPromptService(promptRepo, catalogService, redisClient, cfg.PromptCacheTTL, validate, logger)
	detector := service.NewGenreGradeDetector(model, catalogService, cfg.DetectorPrefix, logger)
	evaluationService := service.NewEvaluationService(evaluationRepo, essayRepo, promptService, catalogService, detector, model, events, validate, logger)
	scoringService := service.NewScoringService(scoreRepo, evaluationRepo, promptService, model, events, validate, logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, evaluationRepo, scoreRepo, events, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.OpenAITimeout + 30*time.Second,
	})

	middleware.Register(app, middleware.Config{
		Logger:       logger,
		AllowOrigins: cfg.AllowOrigins,
		AccessLog:    !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		CatalogHandler:    handler.NewCatalogHandler(catalogService, logger),
		EssayHandler:      handler.NewEssayHandler(evaluationService, logger),
		EvaluationHandler: handler.NewEvaluationHandler(evaluationService, validate, logger),
		ScoreHandler:      handler.NewScoreHandler(scoringService, evaluationService, validate, logger),
		FeedbackHandler:   handler.NewFeedbackHandler(feedbackService, validate, logger),
		PromptHandler:     handler.NewPromptHandler(promptService, validate, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		ModelGuard:        middleware.RateLimit("ai", cfg.AIRateLimitPerMin, time.Minute),
		PromptWriteGuard:  middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTeacher),
		AdminGuard:        middleware.RequireRole(middleware.RoleAdmin),
		HealthProbes:      healthProbes(db, redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return probes
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
