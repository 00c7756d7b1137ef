package validation

import (
	"fmt"
	"strings"

	"mcq-worker/internal/domain"
)

const (
	MinQuestionCount = 1
	MaxQuestionCount = 50
	maxFocusAreas    = 10
	maxJobIDLength   = 128
)

// Validator checks job payloads before they enter the pipeline.
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateJobPayload returns every field failure of p.
func (v *Validator) ValidateJobPayload(p *domain.JobPayload) domain.ValidationErrors {
	var errs domain.ValidationErrors

	id := strings.TrimSpace(p.JobID)
	switch {
	case id == "":
		errs = append(errs, domain.NewFieldError("jobId", "is required"))
	case len(id) > maxJobIDLength:
		errs = append(errs, domain.NewFieldError("jobId", fmt.Sprintf("must be at most %d bytes", maxJobIDLength)))
	}

	if strings.TrimSpace(p.DocumentRef()) == "" {
		errs = append(errs, domain.NewFieldError("fileUrl", "fileUrl or storageKey is required"))
	}

	if p.QuestionCount != nil {
		if n := *p.QuestionCount; n < MinQuestionCount || n > MaxQuestionCount {
			errs = append(errs, domain.NewFieldError("questionCount",
				fmt.Sprintf("must be between %d and %d, got %d", MinQuestionCount, MaxQuestionCount, n)))
		}
	}

	if _, err := domain.ParseDifficulty(p.Difficulty); err != nil {
		errs = append(errs, domain.NewFieldError("difficulty", err.Error()))
	}

	if len(p.FocusAreas) > maxFocusAreas {
		errs = append(errs, domain.NewFieldError("focusAreas", fmt.Sprintf("at most %d entries allowed", maxFocusAreas)))
	}

	return errs
}

// BuildJob validates p and converts it into a domain.Job with defaults
// applied. Blank focus areas are dropped.
func (v *Validator) BuildJob(p *domain.JobPayload) (*domain.Job, error) {
	if errs := v.ValidateJobPayload(p); len(errs) > 0 {
		return nil, errs
	}

	difficulty, _ := domain.ParseDifficulty(p.Difficulty)
	count := domain.DefaultQuestionCount
	if p.QuestionCount != nil {
		count = *p.QuestionCount
	}

	var focus []string
	for _, area := range p.FocusAreas {
		if area = strings.TrimSpace(area); area != "" {
			focus = append(focus, area)
		}
	}

	return &domain.Job{
		ID:            strings.TrimSpace(p.JobID),
		FileID:        p.FileID,
		UserID:        p.UserID,
		DocumentRef:   strings.TrimSpace(p.DocumentRef()),
		QuestionCount: count,
		Difficulty:    difficulty,
		FocusAreas:    focus,
	}, nil
}
