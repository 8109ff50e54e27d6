package main

import (
	"context"
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

	"github.com/noah-isme/exampilot-api/internal/config"
	"github.com/noah-isme/exampilot-api/internal/database"
	"github.com/noah-isme/exampilot-api/internal/handler"
	"github.com/noah-isme/exampilot-api/internal/middleware"
	"github.com/noah-isme/exampilot-api/internal/repository"
	"github.com/noah-isme/exampilot-api/internal/router"
	"github.com/noah-isme/exampilot-api/internal/service"
	"github.com/noah-isme/exampilot-api/pkg/ai"
	cloud "github.com/noah-isme/exampilot-api/pkg/cloudinary"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" && cfg.OCRCacheTTL > 0 {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, logger)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	store, err := newObjectStore(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create object store: %v", err)
	}

	gateway, err := ai.NewOpenAIGateway(ai.OpenAIConfig{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMGatewayEndpoint,
		Model:       cfg.LLMModel,
		VisionModel: cfg.LLMVisionModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("failed to create llm gateway: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	materialRepo := repository.NewResourceMaterialRepository(db)
	contentRepo := repository.NewGeneratedContentRepository(db)
	mockPaperRepo := repository.NewMockPaperRepository(db)

	evaluationService := service.NewAnswerSheetEvaluationService(
		submissionRepo, materialRepo, store, gateway, gateway, redisClient, validate, logger,
		service.PipelineConfig{
			MaxPageImages: cfg.MaxPageImages,
			OCRCacheTTL:   cfg.OCRCacheTTL,
			PDFTextLayer:  cfg.PDFTextLayer,
		},
	)

	var dispatcher service.EvaluationDispatcher
	if natsConn != nil {
		dispatcher = service.NewNATSEvaluationDispatcher(natsConn, cfg.ChannelBase, logger)
	}

	submissionService := service.NewSubmissionService(submissionRepo, store, dispatcher, validate, cfg.UploadMaxSizeMB, logger)
	materialService := service.NewMaterialService(materialRepo, store, validate, cfg.UploadMaxSizeMB, logger)
	studyContentService := service.NewStudyContentService(materialRepo, contentRepo, store, gateway, logger)
	mockPaperService := service.NewMockPaperService(contentRepo, mockPaperRepo, gateway, validate, logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if natsConn != nil {
		worker := service.NewEvaluationWorker(natsConn, cfg.ChannelBase, evaluationService, logger)
		drain, err := worker.Start(workerCtx)
		if err != nil {
			log.Fatalf("failed to start evaluation worker: %v", err)
		}
		defer drain()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB*2 + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler:   handler.NewEvaluationHandler(evaluationService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		StudyContentHandler: handler.NewStudyContentHandler(studyContentService, logger),
		MaterialHandler:     handler.NewMaterialHandler(materialService, logger),
		MockPaperHandler:    handler.NewMockPaperHandler(mockPaperService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		LLMRateLimit:        middleware.RateLimit("llm", cfg.LLMRateLimit, cfg.LLMRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func newObjectStore(cfg config.Config, logger zerolog.Logger) (storage.ObjectStore, error) {
	if cfg.StorageProvider == config.StorageProviderCloudinary {
		store, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	access, secret, err := cfg.StorageKeys()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: access,
		SecretKey: secret,
		UseSSL:    cfg.StorageUseSSL,
	}, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBuckets(ctx, storage.Buckets()...); err != nil {
		return nil, err
	}
	return store, nil
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
