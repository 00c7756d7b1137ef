package domain

import (
	"fmt"
	"strings"
)

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// Difficulty is the requested difficulty of a job's questions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalises a wire value. Empty input maps to medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DifficultyMedium, nil
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// IsHard reports whether d selects the hard option set. Medium and unknown
// difficulties share the easy set.
func (d Difficulty) IsHard() bool {
	return d == DifficultyHard
}

// Question is a single multiple-choice question.
type Question struct {
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectIndex  int        `json:"correct_index"`
	Explanation   string     `json:"explanation"`
	SourceSnippet string     `json:"source_snippet,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
}

// Validate checks the structural invariants of a question.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return NewValidationError("question text is required")
	}
	if len(q.Options) != OptionCount {
		return NewValidationError(fmt.Sprintf("expected %d options, got %d", OptionCount, len(q.Options)))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
		return NewValidationError(fmt.Sprintf("correct index %d out of range", q.CorrectIndex))
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// NewFieldError builds a ValidationError bound to a payload field.
func NewFieldError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// ValidationErrors collects every field failure of a payload.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for i := range v {
		parts = append(parts, v[i].Error())
	}
	return strings.Join(parts, "; ")
}
