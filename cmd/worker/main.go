package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mcq-worker/internal/adapter"
	"mcq-worker/internal/adapter/extract"
	"mcq-worker/internal/adapter/llm"
	"mcq-worker/internal/adapter/quizgen"
	"mcq-worker/internal/adapter/registry"
	"mcq-worker/internal/adapter/source"
	"mcq-worker/internal/adapter/transport"
	"mcq-worker/internal/cache"
	"mcq-worker/internal/config"
	"mcq-worker/internal/database"
	"mcq-worker/internal/domain"
	"mcq-worker/internal/handler"
	"mcq-worker/internal/logger"
	"mcq-worker/internal/middleware"
	"mcq-worker/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.Get().Debug("HTTP Request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
		return err
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get().With(zap.String("worker_id", cfg.Worker.ID))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error("Worker exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) error {
	var (
		redisClient *redis.Client
		cacheStore  domain.Cache
		claimer     *service.JobClaimer
		progress    *service.ProgressStore
	)
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		appLogger.Info("Successfully connected to Redis")

		redisClient = client
		cacheStore = adapter.NewRedisCacheAdapter(client)
		claimer = service.NewJobClaimer(cacheStore, cfg.Worker.ClaimTTL, appLogger)
		progress = service.NewProgressStore(cacheStore, cfg.Progress.TTL)
	}

	jobTransport, err := transport.Open(ctx, cfg.Transport, redisClient)
	if err != nil {
		return fmt.Errorf("failed to open %s transport: %w", cfg.Transport.Kind, err)
	}
	defer jobTransport.Close()
	appLogger.Info("Job transport ready", zap.String("kind", cfg.Transport.Kind))

	documents, err := buildSource(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	jobRegistry, closeRegistry, err := buildRegistry(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeRegistry()

	generator, err := buildGenerator(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	reporter := service.NewProgressReporter(jobRegistry, progress, appLogger)
	pipeline := service.NewPipeline(service.PipelineDeps{
		Source:       documents,
		Extractor:    extract.NewPDFExtractor(),
		Preprocessor: service.NewTextPreprocessor(cfg.Preprocess.MaxChars, cfg.Preprocess.Window),
		Generator:    generator,
		Validator:    service.NewMCQValidator(appLogger),
		Registry:     jobRegistry,
		Progress:     reporter,
		Logger:       appLogger,
	})
	worker := service.NewWorker(service.WorkerDeps{
		Transport:   jobTransport,
		Processor:   pipeline,
		Claimer:     claimer,
		Registry:    jobRegistry,
		Progress:    reporter,
		Concurrency: cfg.Worker.Concurrency,
		Logger:      appLogger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The health server follows the worker down.
		defer cancel()
		return worker.Run(gctx)
	})

	if cfg.Health.Port > 0 {
		var pinger handler.Pinger
		var reader handler.ProgressReader
		if cacheStore != nil {
			pinger = cacheStore
			reader = progress
		}
		app := fiber.New(fiber.Config{
			ErrorHandler:          middleware.ErrorHandler(),
			DisableStartupMessage: true,
		})
		app.Use(recover.New())
		app.Use(requestLogger())
		handler.NewHealthHandler(cfg.Worker.ID, pinger, reader).Register(app)

		g.Go(func() error {
			addr := ":" + strconv.Itoa(cfg.Health.Port)
			appLogger.Info("Health server listening", zap.String("addr", addr))
			return app.Listen(addr)
		})
		g.Go(func() error {
			<-gctx.Done()
			return app.ShutdownWithTimeout(5 * time.Second)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildSource(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (domain.DocumentSource, error) {
	httpSource := source.NewHTTPSource(cfg.Source, appLogger)
	if cfg.Source.S3.Bucket == "" {
		return source.NewRouter(httpSource, nil), nil
	}
	s3Client, err := source.NewS3Client(ctx, cfg.Source.S3)
	if err != nil {
		return nil, err
	}
	appLogger.Info("Object storage source enabled", zap.String("bucket", cfg.Source.S3.Bucket))
	return source.NewRouter(httpSource, source.NewS3Source(s3Client, cfg.Source.S3.Bucket, cfg.Source.MaxBytes)), nil
}

func buildRegistry(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (domain.JobRegistry, func(), error) {
	switch cfg.Registry.Kind {
	case "sql":
		db, err := database.NewSQLXOracleDB(ctx, cfg.GetDSN())
		if err != nil {
			return nil, nil, err
		}
		appLogger.Info("Successfully connected to Oracle database")
		return registry.NewSQLRegistry(db), func() { db.Close() }, nil
	default:
		auth, err := registry.NewAuthenticator(ctx, cfg.Registry, cfg.Worker.ID)
		if err != nil {
			return nil, nil, err
		}
		appLogger.Info("Reporting to backend", zap.String("base_url", cfg.Registry.BaseURL), zap.String("auth", cfg.Registry.Auth))
		return registry.NewHTTPRegistry(cfg.Registry, auth, appLogger), func() {}, nil
	}
}

func buildGenerator(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (domain.QuestionGenerator, error) {
	fallback := service.NewFallbackQuizGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))

	model, err := llm.NewModel(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	var completer domain.Completer
	if model != nil {
		completer = llm.NewCompleter(model, llm.NewLimiter(cfg.LLM.RequestsPerMinute), appLogger)
		appLogger.Info("LLM client initialized",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model),
		)
	} else {
		appLogger.Warn("No LLM provider configured, all questions come from the fallback generator")
	}

	return quizgen.NewLLMQuizGenerator(completer, fallback, quizgen.Config{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, appLogger), nil
}
