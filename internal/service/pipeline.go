package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"mcq-worker/internal/domain"

	"go.uber.org/zap"
)

// Progress milestones of a job run.
const (
	ProgressDownloading = 10
	ProgressExtracting  = 30
	ProgressGenerating  = 60
	ProgressSaving      = 90
	ProgressDone        = 100
	ProgressAborted     = 0
)

var (
	errEmptyDocument = errors.New("document is empty")
	errEmptyText     = errors.New("no text could be extracted")
	errNoQuestions   = errors.New("no valid questions produced")
)

// JobProcessor runs a single job to a terminal Result.
type JobProcessor interface {
	Process(ctx context.Context, job *domain.Job) *domain.Result
}

// PipelineDeps lists the collaborators of a Pipeline.
type PipelineDeps struct {
	Source       domain.DocumentSource
	Extractor    domain.TextExtractor
	Preprocessor *TextPreprocessor
	Generator    domain.QuestionGenerator
	Validator    *MCQValidator
	Registry     domain.JobRegistry
	Progress     *ProgressReporter
	Logger       *zap.Logger
}

// Pipeline turns one document into a validated question set and reports
// exactly one terminal result for it.
type Pipeline struct {
	source       domain.DocumentSource
	extractor    domain.TextExtractor
	preprocessor *TextPreprocessor
	generator    domain.QuestionGenerator
	validator    *MCQValidator
	registry     domain.JobRegistry
	progress     *ProgressReporter
	log          *zap.Logger
	now          func() time.Time
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	pre := deps.Preprocessor
	if pre == nil {
		pre = NewTextPreprocessor(DefaultMaxChars, DefaultWindow)
	}
	validator := deps.Validator
	if validator == nil {
		validator = NewMCQValidator(log)
	}
	progress := deps.Progress
	if progress == nil {
		progress = NewProgressReporter(deps.Registry, nil, log)
	}
	return &Pipeline{
		source:       deps.Source,
		extractor:    deps.Extractor,
		preprocessor: pre,
		generator:    deps.Generator,
		validator:    validator,
		registry:     deps.Registry,
		progress:     progress,
		log:          log,
		now:          time.Now,
	}
}

// Process never returns an error. Every path ends with one result submitted
// to the registry; a failed submission of a completed result turns the job
// into a failure.
func (p *Pipeline) Process(ctx context.Context, job *domain.Job) *domain.Result {
	log := p.log.With(zap.String("job_id", job.ID))
	start := p.now()
	log.Info("Processing job",
		zap.String("document", job.DocumentRef),
		zap.Int("question_count", job.QuestionCount),
		zap.String("difficulty", string(job.Difficulty)),
	)

	p.progress.Report(ctx, job.ID, ProgressDownloading, domain.ProgressProcessing, "Downloading file")
	document, err := p.source.Fetch(ctx, job.DocumentRef)
	if err == nil && len(document) == 0 {
		err = errEmptyDocument
	}
	if err != nil {
		return p.fail(ctx, log, job, domain.NewRetrievalError(err))
	}
	log.Debug("Document retrieved", zap.Int("bytes", len(document)))

	p.progress.Report(ctx, job.ID, ProgressExtracting, domain.ProgressProcessing, "Extracting text from PDF")
	text, err := p.extractor.Extract(ctx, document)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyText
	}
	if err != nil {
		return p.fail(ctx, log, job, domain.NewExtractionError(err))
	}
	textLength := utf8.RuneCountInString(text)
	log.Debug("Text extracted", zap.Int("characters", textLength))

	p.progress.Report(ctx, job.ID, ProgressGenerating, domain.ProgressProcessing, "Generating questions")
	generation := p.generator.Generate(ctx, domain.GenerationRequest{
		Text:       p.preprocessor.Process(text),
		Count:      job.QuestionCount,
		Difficulty: job.Difficulty,
		FocusAreas: job.FocusAreas,
	})
	questions := p.validator.Validate(generation.Questions, job.QuestionCount, job.Difficulty)
	if len(questions) == 0 {
		return p.fail(ctx, log, job, domain.NewGenerationError(errNoQuestions))
	}

	p.progress.Report(ctx, job.ID, ProgressSaving, domain.ProgressProcessing, "Saving results")
	result := domain.NewCompletedResult(job.ID, questions, textLength, generation.Source, p.now().UTC())
	if err := p.registry.ReportResult(ctx, result); err != nil {
		return p.fail(ctx, log, job, domain.NewSubmissionError(err))
	}

	p.progress.Report(ctx, job.ID, ProgressDone, domain.ProgressCompleted,
		fmt.Sprintf("Generated %d questions", len(questions)))
	log.Info("Job completed",
		zap.Int("questions", len(questions)),
		zap.String("generator", string(generation.Source)),
		zap.Duration("elapsed", p.now().Sub(start)),
	)
	return result
}

func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, job *domain.Job, cause error) *domain.Result {
	reason := cause.Error()
	log.Error("Job failed",
		zap.String("code", string(domain.CodeOf(cause))),
		zap.Error(cause),
	)

	result := domain.NewFailedResult(job.ID, reason, p.now().UTC())
	if err := p.registry.ReportResult(ctx, result); err != nil {
		log.Error("Failed to submit failure result", zap.Error(err))
	}
	p.progress.Report(ctx, job.ID, ProgressAborted, domain.ProgressFailed, reason)
	return result
}
