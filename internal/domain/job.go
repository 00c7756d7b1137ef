package domain

import (
	"encoding/json"
	"time"
)

// DefaultQuestionCount is used when a payload omits questionCount.
const DefaultQuestionCount = 5

// Job is one unit of work: turn one document into a bounded set of MCQs.
type Job struct {
	ID            string
	FileID        string
	UserID        string
	DocumentRef   string
	QuestionCount int
	Difficulty    Difficulty
	FocusAreas    []string
}

// JobPayload is the wire form published by the backend.
type JobPayload struct {
	JobID         string   `json:"jobId"`
	FileID        string   `json:"fileId,omitempty"`
	UserID        string   `json:"userId,omitempty"`
	FileURL       string   `json:"fileUrl,omitempty"`
	StorageKey    string   `json:"storageKey,omitempty"`
	QuestionCount *int     `json:"questionCount,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	FocusAreas    []string `json:"focusAreas,omitempty"`
}

// DecodeJobPayload parses a raw transport message.
func DecodeJobPayload(body []byte) (*JobPayload, error) {
	var p JobPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// EncodeJob renders a job in the wire form understood by DecodeJobPayload.
func EncodeJob(j *Job) ([]byte, error) {
	count := j.QuestionCount
	p := JobPayload{
		JobID:         j.ID,
		FileID:        j.FileID,
		UserID:        j.UserID,
		FileURL:       j.DocumentRef,
		QuestionCount: &count,
		Difficulty:    string(j.Difficulty),
		FocusAreas:    j.FocusAreas,
	}
	return json.Marshal(p)
}

// DocumentRef returns fileUrl when set, storageKey otherwise.
func (p *JobPayload) DocumentRef() string {
	if p.FileURL != "" {
		return p.FileURL
	}
	return p.StorageKey
}

// ResultStatus is the terminal state of a job.
type ResultStatus string

const (
	StatusCompleted ResultStatus = "completed"
	StatusFailed    ResultStatus = "failed"
)

// GenerationSource names which generator produced a result's questions.
type GenerationSource string

const (
	SourceLLM      GenerationSource = "llm"
	SourceFallback GenerationSource = "fallback"
)

// Result is the terminal artifact of a job.
type Result struct {
	JobID          string           `json:"job_id"`
	Status         ResultStatus     `json:"status"`
	MCQs           []Question       `json:"mcqs,omitempty"`
	TotalQuestions int              `json:"total_questions,omitempty"`
	TextLength     int              `json:"text_length,omitempty"`
	Generator      GenerationSource `json:"generator,omitempty"`
	ProcessedAt    *time.Time       `json:"processed_at,omitempty"`
	Error          string           `json:"error,omitempty"`
	FailedAt       *time.Time       `json:"failed_at,omitempty"`
}

// NewCompletedResult builds the success artifact for a job.
func NewCompletedResult(jobID string, questions []Question, textLength int, source GenerationSource, at time.Time) *Result {
	return &Result{
		JobID:          jobID,
		Status:         StatusCompleted,
		MCQs:           questions,
		TotalQuestions: len(questions),
		TextLength:     textLength,
		Generator:      source,
		ProcessedAt:    &at,
	}
}

// NewFailedResult builds the failure artifact for a job.
func NewFailedResult(jobID string, reason string, at time.Time) *Result {
	return &Result{
		JobID:    jobID,
		Status:   StatusFailed,
		Error:    reason,
		FailedAt: &at,
	}
}

// Progress status labels.
const (
	ProgressProcessing = "processing"
	ProgressCompleted  = "completed"
	ProgressFailed     = "failed"
)

// ProgressUpdate is a fire-and-forget progress milestone for a job.
type ProgressUpdate struct {
	JobID     string    `json:"-"`
	Percent   int       `json:"progress"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"-"`
}
