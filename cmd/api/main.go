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

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/config"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/database"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/grading"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/handler"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/middleware"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/providers"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/router"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/service"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/ai"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/embedding"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/nlp"
)

const gradeEventChannel = "grader"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}

	backend, err := providers.NewEmbedder(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure embedding backend")
	}
	if cfg.EmbeddingProvider == "hash" {
		logger.Warn().Msg("hash embeddings carry no meaning; concept coverage is not semantic")
	} else if err := providers.CheckEmbedder(ctx, backend, 10*time.Second); err != nil {
		logger.Error().Err(err).
			Str("embedding_provider", cfg.EmbeddingProvider).
			Msg("embedding backend unreachable; rubric grading will answer 503 until it is available")
	}
	embeddings := embedding.NewService(backend, embedding.ServiceConfig{
		CacheSize:      cfg.EmbeddingCacheSize,
		CacheTTL:       cfg.EmbeddingCacheTTL,
		Serialize:      cfg.EmbeddingSerialize,
		ComputeTimeout: cfg.LLMTimeout,
		Logger:         logger,
	})
	defer embeddings.Close()

	lemmatizer, err := nlp.NewEnglishLemmatizer()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load lemmatizer")
	}
	engine := grading.NewEngine(nlp.NewNormalizer(lemmatizer), embeddings, cfg.CoverageConcurrency, logger)

	generator, err := providers.NewGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("ai evaluation unavailable, using simulated scores")
		generator = nil
	}
	evaluator := ai.NewEvaluator(generator, ai.EvaluatorConfig{Timeout: cfg.LLMTimeout, Logger: logger})

	validate := validator.New(validator.WithRequiredStructEnabled())

	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	progressService := service.NewProgressService(submissionRepo, redisClient, cfg.ProgressCacheTTL, logger)
	gradeEvents := service.NewGradeEventService(redisClient, natsConn, gradeEventChannel, logger)
	gradeEvents.Start(ctx)

	recorder := service.NewGradeRecorder(submissionRepo, progressService, gradeEvents, activityService, logger)

	gradingService := service.NewGradingService(engine, questionRepo, submissionRepo, recorder, redisClient, validate, service.GradingServiceConfig{
		CacheTTL:  cfg.GradeCacheTTL,
		ModelName: embeddings.ModelName(),
	}, logger)
	evaluationService := service.NewEvaluationService(evaluator, questionRepo, submissionRepo, recorder, validate, logger)
	questionService := service.NewQuestionService(questionRepo, activityService, validate, cfg.ImportMaxUploadBytes, logger)
	submissionService := service.NewSubmissionService(service.SubmissionServiceDeps{
		Submissions: submissionRepo,
		Questions:   questionRepo,
		Overrides:   overrideRepo,
		Recorder:    recorder,
		Progress:    progressService,
		Activity:    activityService,
	}, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.ImportMaxUploadBytes) + 1<<20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler:    handler.NewGradingHandler(gradingService, logger),
		EvaluationHandler: handler.NewEvaluationHandler(evaluationService, logger),
		QuestionHandler:   handler.NewQuestionHandler(questionService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		ProgressHandler:   handler.NewProgressHandler(progressService, logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		GradeFeedHandler:  handler.NewGradeFeedHandler(gradeEvents, logger),
		EmbeddingModel:    embeddings.ModelName(),
		LLMModel:          evaluator.Model(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	logger.Info().
		Str("address", cfg.HTTPAddress()).
		Str("embedding_model", embeddings.ModelName()).
		Str("llm_model", evaluator.Model()).
		Msg("grader started")

	waitForShutdown(app, cancel, logger)
}

func waitForShutdown(app *fiber.App, cancel context.CancelFunc, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, timeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeout()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
