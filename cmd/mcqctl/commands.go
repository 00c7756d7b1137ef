package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mcq-worker/internal/adapter"
	"mcq-worker/internal/adapter/extract"
	"mcq-worker/internal/adapter/registry"
	"mcq-worker/internal/adapter/transport"
	"mcq-worker/internal/cache"
	"mcq-worker/internal/config"
	"mcq-worker/internal/database"
	"mcq-worker/internal/domain"
	"mcq-worker/internal/logger"
	"mcq-worker/internal/service"
	"mcq-worker/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	enqueueCount      int
	enqueueDifficulty string
	enqueueFocus      []string
	enqueueFileID     string
	enqueueUserID     string

	textMaxChars int
	textWindow   int

	fallbackCount      int
	fallbackDifficulty string
	fallbackSeed       int64

	schemaApply bool
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <document-ref>",
	Short: "Publish a job for a document URL or storage key",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnqueue,
}

var preprocessCmd = &cobra.Command{
	Use:   "preprocess <file>",
	Short: "Print the preprocessed text of a PDF or text file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreprocess,
}

var fallbackCmd = &cobra.Command{
	Use:   "fallback <file>",
	Short: "Print fallback questions for a PDF or text file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runFallback,
}

var progressCmd = &cobra.Command{
	Use:   "progress <job-id>",
	Short: "Show the latest progress snapshot of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgress,
}

var releaseCmd = &cobra.Command{
	Use:   "release <job-id>",
	Short: "Drop a job claim so the job can run again",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelease,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print or apply the tables used by the sql registry",
	RunE:  runSchema,
}

func init() {
	enqueueCmd.Flags().IntVar(&enqueueCount, "count", domain.DefaultQuestionCount, "number of questions")
	enqueueCmd.Flags().StringVar(&enqueueDifficulty, "difficulty", "medium", "easy, medium or hard")
	enqueueCmd.Flags().StringSliceVar(&enqueueFocus, "focus", nil, "focus areas (repeatable)")
	enqueueCmd.Flags().StringVar(&enqueueFileID, "file-id", "", "backend file id")
	enqueueCmd.Flags().StringVar(&enqueueUserID, "user-id", "", "backend user id")

	for _, cmd := range []*cobra.Command{preprocessCmd, fallbackCmd} {
		cmd.Flags().IntVar(&textMaxChars, "max-chars", service.DefaultMaxChars, "preprocessing budget in characters")
		cmd.Flags().IntVar(&textWindow, "window", service.DefaultWindow, "head/tail window kept when truncating")
	}

	fallbackCmd.Flags().IntVar(&fallbackCount, "count", domain.DefaultQuestionCount, "number of questions")
	fallbackCmd.Flags().StringVar(&fallbackDifficulty, "difficulty", "medium", "easy, medium or hard")
	fallbackCmd.Flags().Int64Var(&fallbackSeed, "seed", 0, "random seed, 0 picks one from the clock")

	schemaCmd.Flags().BoolVar(&schemaApply, "apply", false, "execute the statements against db.*")
}

// loadConfig reads the worker configuration and initializes the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return nil, err
	}
	return cfg, nil
}

func connectRedis(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled() {
		return nil, errors.New("redis is not configured")
	}
	return cache.NewRedisClient(cfg.Redis)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	count := enqueueCount
	payload := &domain.JobPayload{
		JobID:         uuid.NewString(),
		FileID:        enqueueFileID,
		UserID:        enqueueUserID,
		QuestionCount: &count,
		Difficulty:    enqueueDifficulty,
		FocusAreas:    enqueueFocus,
	}
	ref := strings.TrimSpace(args[0])
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		payload.FileURL = ref
	} else {
		payload.StorageKey = ref
	}
	job, err := validation.NewValidator().BuildJob(payload)
	if err != nil {
		return err
	}

	var client *redis.Client
	if cfg.Transport.Kind != "sqs" {
		if client, err = connectRedis(cfg); err != nil {
			return err
		}
		defer client.Close()
	}
	publisher, err := transport.OpenPublisher(ctx, cfg.Transport, client)
	if err != nil {
		return err
	}
	if err := publisher.Publish(ctx, job); err != nil {
		return err
	}

	logger.Get().Info("Job enqueued",
		zap.String("job_id", job.ID),
		zap.String("transport", cfg.Transport.Kind),
	)
	fmt.Fprintln(cmd.OutOrStdout(), job.ID)
	return nil
}

// readText returns the raw text of a PDF or plain text file.
func readText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extract.NewPDFExtractor().Extract(ctx, data)
	}
	return string(data), nil
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), service.NewTextPreprocessor(textMaxChars, textWindow).Process(text))
	return nil
}

func runFallback(cmd *cobra.Command, args []string) error {
	difficulty, err := domain.ParseDifficulty(fallbackDifficulty)
	if err != nil {
		return err
	}
	text, err := readText(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	seed := fallbackSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := service.NewFallbackQuizGenerator(rand.New(rand.NewSource(seed)))
	questions := gen.Questions(service.NewTextPreprocessor(textMaxChars, textWindow).Process(text), fallbackCount, difficulty)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(questions)
}

func runProgress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := connectRedis(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	store := service.NewProgressStore(adapter.NewRedisCacheAdapter(client), cfg.Progress.TTL)
	update, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d%%\t%s\t%s\t%s\n",
		args[0], update.Percent, update.Status, update.Message, update.UpdatedAt.Format(time.RFC3339))
	return nil
}

func runRelease(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := connectRedis(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	claimer := service.NewJobClaimer(adapter.NewRedisCacheAdapter(client), cfg.Worker.ClaimTTL, logger.Get())
	if err := claimer.Release(cmd.Context(), args[0]); err != nil {
		return err
	}
	logger.Get().Info("Job claim released", zap.String("job_id", args[0]))
	return nil
}

func runSchema(cmd *cobra.Command, _ []string) error {
	if !schemaApply {
		for _, stmt := range registry.SchemaStatements {
			fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.NewSQLXOracleDB(cmd.Context(), cfg.GetDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.ApplySchema(cmd.Context(), db, registry.SchemaStatements); err != nil {
		return err
	}
	logger.Get().Info("Schema applied", zap.Int("statements", len(registry.SchemaStatements)))
	return nil
}
