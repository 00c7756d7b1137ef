package service

import (
	"strings"

	"mcq-worker/internal/domain"

	"go.uber.org/zap"
)

// NoExplanation replaces an empty explanation on a validated question.
const NoExplanation = "No explanation provided"

// MCQValidator filters generated questions down to the ones that satisfy
// the question invariants and normalises what it keeps.
type MCQValidator struct {
	log *zap.Logger
}

func NewMCQValidator(log *zap.Logger) *MCQValidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &MCQValidator{log: log}
}

// Validate never fails. Invalid entries are dropped and logged by index; a
// result shorter than expected is logged as a warning.
func (v *MCQValidator) Validate(questions []domain.Question, expected int, difficulty domain.Difficulty) []domain.Question {
	valid := make([]domain.Question, 0, len(questions))

	for i, q := range questions {
		normalized := normalizeQuestion(q, difficulty)
		if err := normalized.Validate(); err != nil {
			v.log.Warn("Dropping invalid question",
				zap.Int("index", i),
				zap.String("reason", err.Error()),
			)
			continue
		}
		valid = append(valid, normalized)
	}

	if len(valid) < expected {
		v.log.Warn("Question shortfall after validation",
			zap.Int("expected", expected),
			zap.Int("got", len(valid)),
		)
	}
	return valid
}

func normalizeQuestion(q domain.Question, difficulty domain.Difficulty) domain.Question {
	out := domain.Question{
		Question:      strings.TrimSpace(q.Question),
		CorrectIndex:  q.CorrectIndex,
		Explanation:   strings.TrimSpace(q.Explanation),
		SourceSnippet: strings.TrimSpace(q.SourceSnippet),
		Difficulty:    q.Difficulty,
	}
	if out.Explanation == "" {
		out.Explanation = NoExplanation
	}
	if out.Difficulty == "" {
		out.Difficulty = difficulty
	}
	if q.Options != nil {
		out.Options = make([]string, len(q.Options))
		for i, opt := range q.Options {
			out.Options[i] = strings.TrimSpace(opt)
		}
	}
	return out
}
