package quizgen

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"mcq-worker/internal/adapter/llm"
	"mcq-worker/internal/domain"

	"go.uber.org/zap"
)

// MinTextLength is the shortest trimmed input worth sending to the model.
const MinTextLength = 20

// Config tunes the completion request.
type Config struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultConfig matches the worker's default llm settings.
func DefaultConfig() Config {
	return Config{Temperature: 0.3, MaxTokens: 2000, Timeout: 45 * time.Second}
}

// LLMQuizGenerator asks a completion API for questions and hands the job to
// the fallback generator on any failure. It never returns an error.
type LLMQuizGenerator struct {
	completer domain.Completer
	fallback  domain.QuestionGenerator
	cfg       Config
	log       *zap.Logger
}

// NewLLMQuizGenerator accepts a nil completer, in which case every request
// is served by fallback.
func NewLLMQuizGenerator(completer domain.Completer, fallback domain.QuestionGenerator, cfg Config, log *zap.Logger) *LLMQuizGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &LLMQuizGenerator{completer: completer, fallback: fallback, cfg: cfg, log: log}
}

func (g *LLMQuizGenerator) Generate(ctx context.Context, req domain.GenerationRequest) domain.Generation {
	trimmed := strings.TrimSpace(req.Text)
	if utf8.RuneCountInString(trimmed) < MinTextLength {
		g.log.Info("Text too short for LLM generation, using fallback",
			zap.Int("characters", utf8.RuneCountInString(trimmed)))
		return g.fallback.Generate(ctx, req)
	}
	if g.completer == nil {
		return g.fallback.Generate(ctx, req)
	}

	raw, err := g.completer.Complete(ctx, SystemPrompt,
		BuildUserPrompt(trimmed, req.Count, req.Difficulty, req.FocusAreas),
		domain.CompletionOptions{
			Temperature: g.cfg.Temperature,
			MaxTokens:   g.cfg.MaxTokens,
			JSONMode:    true,
			Timeout:     g.cfg.Timeout,
		})
	if err != nil {
		g.log.Warn("LLM generation failed, using fallback",
			zap.String("kind", string(llm.KindOf(err))),
			zap.Error(err),
		)
		return g.fallback.Generate(ctx, req)
	}

	questions, rejected, err := parseQuestions(raw, req.Difficulty)
	if err != nil {
		g.log.Warn("Unusable LLM response, using fallback",
			zap.Error(err),
			zap.Int("response_length", len(raw)),
		)
		return g.fallback.Generate(ctx, req)
	}
	for _, r := range rejected {
		g.log.Warn("Dropping malformed LLM question",
			zap.Int("index", r.Index),
			zap.String("reason", r.Reason),
		)
	}
	if len(questions) == 0 {
		g.log.Warn("LLM response contained no valid questions, using fallback")
		return g.fallback.Generate(ctx, req)
	}

	if req.Count > 0 && len(questions) > req.Count {
		questions = questions[:req.Count]
	}
	g.log.Info("Questions generated by LLM",
		zap.Int("requested", req.Count),
		zap.Int("returned", len(questions)),
		zap.Int("dropped", len(rejected)),
	)
	return domain.Generation{Questions: questions, Source: domain.SourceLLM}
}
