package domain

import (
	"context"
	"time"
)

// GenerationRequest carries the preprocessed text and job parameters handed
// to a QuestionGenerator.
type GenerationRequest struct {
	Text       string
	Count      int
	Difficulty Difficulty
	FocusAreas []string
}

// Generation is the outcome of a QuestionGenerator call.
type Generation struct {
	Questions []Question
	Source    GenerationSource
}

// QuestionGenerator turns text into multiple-choice questions. Implementations
// never fail outward; an empty Questions slice signals that nothing usable
// was produced.
type QuestionGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) Generation
}

// CompletionOptions tunes a single completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	JSONMode    bool
	Timeout     time.Duration
}

// Completer is a chat-style completion API: one system prompt, one user
// prompt, one text answer.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error)
}
