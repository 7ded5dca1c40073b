package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pcos-screening-api/internal/config"
	"github.com/noah-isme/pcos-screening-api/internal/database"
	"github.com/noah-isme/pcos-screening-api/internal/events"
	"github.com/noah-isme/pcos-screening-api/internal/handler"
	"github.com/noah-isme/pcos-screening-api/internal/middleware"
	"github.com/noah-isme/pcos-screening-api/internal/observability"
	"github.com/noah-isme/pcos-screening-api/internal/repository"
	"github.com/noah-isme/pcos-screening-api/internal/router"
	"github.com/noah-isme/pcos-screening-api/internal/service"
	"github.com/noah-isme/pcos-screening-api/pkg/ai"
	cloud "github.com/noah-isme/pcos-screening-api/pkg/cloudinary"
	"github.com/noah-isme/pcos-screening-api/pkg/inference"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	observability.RegisterMetrics()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, report cache disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = events.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events go to redis only")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	var storage service.ImageStorage
	if cfg.CloudinaryConfigured() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary not configured, image screening disabled")
	}

	var generator ai.TextGenerator
	generator, err = ai.NewGenerator(ai.ProviderConfig{
		Provider: cfg.AIProvider,
		APIKey:   cfg.AIAPIKey,
		BaseURL:  cfg.AIBaseURL,
		Model:    cfg.AIModel,
	})
	if err != nil {
		if !errors.Is(err, ai.ErrMissingAPIKey) {
			log.Fatalf("failed to configure language model: %v", err)
		}
		logger.Warn().Msg("language model key missing, narratives use the fallback text")
		generator = nil
	}

	if cfg.MLServiceURL == "" {
		logger.Warn().Msg("ML_SERVICE_URL not set, predictions will fail until configured")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	predictor := inference.New(inference.Config{BaseURL: cfg.MLServiceURL, Timeout: cfg.MLTimeout, Logger: logger})
	narrator := ai.NewNarrator(generator, logger)
	publisher := events.NewPublisher(natsConn, redisClient, cfg.NATSSubject, logger)

	screeningRepo := repository.NewScreeningRepository(db)

	screeningService := service.NewScreeningService(screeningRepo, predictor, narrator, publisher, validate, logger)
	imageService := service.NewImageScreeningService(storage, screeningRepo, predictor, publisher, cfg.UploadMaxSizeMB, logger)
	reportService := service.NewReportService(screeningRepo, redisClient, cfg.ReportCacheTTL, logger)
	chatbotService := service.NewChatbotService(generator, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		ScreeningHandler:      handler.NewScreeningHandler(screeningService, reportService, logger),
		ImageScreeningHandler: handler.NewImageScreeningHandler(imageService, logger),
		AdminScreeningHandler: handler.NewAdminScreeningHandler(screeningService, logger),
		ChatbotHandler:        handler.NewChatbotHandler(chatbotService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
