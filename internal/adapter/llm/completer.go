package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mcq-worker/internal/config"
	"mcq-worker/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Completer implements domain.Completer on a langchaingo model. Calls are
// single-shot: no retry happens here.
type Completer struct {
	model   llms.Model
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewCompleter accepts a nil limiter for unthrottled use.
func NewCompleter(model llms.Model, limiter *rate.Limiter, log *zap.Logger) *Completer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Completer{model: model, limiter: limiter, log: log}
}

// NewLimiter converts a requests-per-minute budget into a token bucket.
// Non-positive budgets disable limiting.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// NewModel builds the langchaingo client for the configured provider. The
// "none" provider returns a nil model. The googleai client keeps its own
// transport, so its errors are classified without a status code.
func NewModel(ctx context.Context, cfg config.LLMConfig) (llms.Model, error) {
	httpClient := NewHTTPClient(nil)

	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, domain.NewLLMServiceError(fmt.Errorf("failed to create openai client: %w", err))
		}
		return model, nil
	case "ollama":
		model, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, domain.NewLLMServiceError(fmt.Errorf("failed to create ollama client: %w", err))
		}
		return model, nil
	case "googleai":
		model, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
		if err != nil {
			return nil, domain.NewLLMServiceError(fmt.Errorf("failed to create googleai client: %w", err))
		}
		return model, nil
	case "none":
		return nil, nil
	default:
		return nil, domain.NewConfigError("unsupported llm provider: " + cfg.Provider)
	}
}

// Complete sends one system/user message pair and returns the text of the
// first choice.
func (c *Completer) Complete(ctx context.Context, systemPrompt, userPrompt string, opts domain.CompletionOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &APIError{Kind: KindRateLimited, Err: fmt.Errorf("local rate limit: %w", err)}
		}
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	ctx, holder := withStatusHolder(ctx)
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}, callOpts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		apiErr := classify(err, holder.status())
		c.log.Warn("Completion request failed",
			zap.String("kind", string(apiErr.Kind)),
			zap.Int("status", apiErr.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", apiErr
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", &APIError{Kind: KindEmptyResponse, StatusCode: holder.status(), Err: errors.New("no choices returned")}
	}

	c.log.Debug("Completion received",
		zap.Int("characters", len(resp.Choices[0].Content)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Choices[0].Content, nil
}
