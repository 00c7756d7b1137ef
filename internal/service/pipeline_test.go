package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"mcq-worker/internal/adapter/quizgen"
	"mcq-worker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const sampleText = "Photosynthesis converts light energy into chemical energy. Chlorophyll absorbs light in the chloroplast."

type pipelineFixture struct {
	source    *MockDocumentSource
	extractor *MockTextExtractor
	registry  *MockJobRegistry
}

func newFixture() *pipelineFixture {
	return &pipelineFixture{
		source:    new(MockDocumentSource),
		extractor: new(MockTextExtractor),
		registry:  new(MockJobRegistry),
	}
}

func (f *pipelineFixture) pipeline(gen domain.QuestionGenerator, log *zap.Logger) *Pipeline {
	p := NewPipeline(PipelineDeps{
		Source:    f.source,
		Extractor: f.extractor,
		Generator: gen,
		Registry:  f.registry,
		Logger:    log,
	})
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

func testJob() *domain.Job {
	return &domain.Job{
		ID:            "job-1",
		DocumentRef:   "https://files.example.com/doc.pdf",
		QuestionCount: 5,
		Difficulty:    domain.DifficultyMedium,
	}
}

func percents(updates []domain.ProgressUpdate) []int {
	out := make([]int, 0, len(updates))
	for _, u := range updates {
		out = append(out, u.Percent)
	}
	return out
}

func TestPipeline_LLMTimeoutFallsBackAndCompletes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.source.On("Fetch", mock.Anything, "https://files.example.com/doc.pdf").Return([]byte("%PDF-1.4"), nil)
	f.extractor.On("Extract", mock.Anything, []byte("%PDF-1.4")).Return(sampleText, nil)
	f.registry.On("ReportProgress", mock.Anything, mock.Anything).Return(nil)
	f.registry.On("ReportResult", mock.Anything, mock.Anything).Return(nil)

	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", context.DeadlineExceeded).Once()

	fallback := NewFallbackQuizGenerator(nil)
	gen := quizgen.NewLLMQuizGenerator(completer, fallback, quizgen.Config{}, nil)

	result := f.pipeline(gen, nil).Process(ctx, testJob())

	assert.Equal(t, domain.StatusCompleted, result.Status)
	require.Len(t, result.MCQs, 5)
	assert.Equal(t, 5, result.TotalQuestions)
	assert.Equal(t, domain.SourceFallback, result.Generator)
	assert.Equal(t, len(sampleText), result.TextLength)
	for _, q := range result.MCQs {
		assert.Equal(t, 0, q.CorrectIndex)
	}

	updates := f.registry.progressUpdates()
	assert.Equal(t, []int{10, 30, 60, 90, 100}, percents(updates))
	assert.Equal(t, domain.ProgressCompleted, updates[len(updates)-1].Status)

	results := f.registry.results()
	require.Len(t, results, 1)
	assert.Same(t, result, results[0])
	completer.AssertExpectations(t)
}

func TestPipeline_RetrievalFailureStopsEarly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.source.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	f.registry.On("ReportProgress", mock.Anything, mock.Anything).Return(nil)
	f.registry.On("ReportResult", mock.Anything, mock.Anything).Return(nil)
	gen := new(MockQuestionGenerator)

	result := f.pipeline(gen, nil).Process(ctx, testJob())

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "retrieval")
	require.NotNil(t, result.FailedAt)

	results := f.registry.results()
	require.Len(t, results, 1)
	assert.Equal(t, domain.StatusFailed, results[0].Status)

	updates := f.registry.progressUpdates()
	var zero []domain.ProgressUpdate
	for _, u := range updates {
		if u.Percent == 0 {
			zero = append(zero, u)
		}
	}
	require.Len(t, zero, 1)
	assert.Equal(t, domain.ProgressFailed, zero[0].Status)
	assert.Contains(t, zero[0].Message, "retrieval")
	assert.Equal(t, []int{10, 0}, percents(updates))

	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestPipeline_EmptyDocumentIsRetrievalFailure(t *testing.T) {
	f := newFixture()
	f.source.On("Fetch", mock.Anything, mock.Anything).Return([]byte{}, nil)
	f.registry.On("ReportProgress", mock.Anything, mock.Anything).Return(nil)
	f.registry.On("ReportResult", mock.Anything, mock.Anything).Return(nil)

	result := f.pipeline(new(MockQuestionGenerator), nil).Process(context.Background(), testJob())

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "retrieval failed")
}

func TestPipeline_ExtractionFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
	}{
		{name: "extractor error", err: errors.New("malformed xref")},
		{name: "blank text", text: "  \n\t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.source.On("Fetch", mock.Anything, mock.Anything).Return([]byte("pdf"), nil)
			f.extractor.On("Extract", mock.Anything, mock.Anything).Return(tt.text, tt.err)
			f.registry.On("ReportProgress", mock.Anything, mock.Anything).Return(nil)
			f.registry.On("ReportResult", mock.Anything, mock.Anything).Return(nil)
			gen := new(MockQuestionGenerator)

			result := f.pipeline(gen, nil).Process(context.Background(), testJob())

			assert.Equal(t, domain.StatusFailed, result.Status)
			assert.Contains(t, result.Error, "extraction failed")
			assert.Equal(t, []int{10, 30, 0}, percents(f.registry.progressUpdates()))
			gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		})
	}
}

func TestPipeline_ShortfallStillCompletes(t *testing.T) {
	f := newFixture()
	core, logs := observer.New(zapcore.InfoLevel)

	f.source.On("Fetch", mock.Anything, mock.Anything).Return([]byte("pdf"), nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(sampleText, nil)
	f.registry.On("ReportProgress", mock.Anything, mock.Anything).Return(nil)
	f.registry.On("ReportResult", mock.Anything, mock.Anything).Return(nil)

	valid := func(i int) string {
		return fmt.Sprintf(`{"question":"Q%d?","options":["a","b","c","d"],"correct_index":%d,"explanation":"e"}`, i, i%4)
	}
	response := `{"mcqs":[` + strings.Join([]string{
		valid(1),
		`{"question":"Three options?","options":["a","b","c"],"correct_index":0}`,
		valid(2),
		`{"question":"Bad index?","options":["a","b","c","d"],"correct_index":7}`,
		valid(3),
	}, ",") + `]}`

	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(response, nil)
	fallback := new(MockQuestionGenerator)
	gen := quizgen.NewLLMQuizGenerator(completer, fallback, quizgen.Config{}, zap.New(core))

	result := f.pipeline(gen, zap.New(core)).Process(context.Background(), testJob())

	assert.Equal(t, domain.StatusCompleted, result.Status)
	require.Len(t, result.MCQs, 3)
	assert.Equal(t, domain.SourceLLM, result.Generator)
	assert.Equal(t, []string{"Q1?", "Q2?", "Q3?"}, []string{result.MCQs[0].Question, result.MCQs[1].Question, result.MCQs[2].Question})
	assert.Equal(t, 1, logs.FilterMessage("Question shortfall after validation").Len())
	fallback.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	updates := f.registry.progressUpdates()
	assert.Equal(t, 100, updates[len(updates)-1].Percent)
}

func TestPipeline_NoQuestionsIsGenerationFailure(t *testing.T) {
	f := newFixture()
	f.source.On("Fetch", mock.Anything, mock.Anything).Return([]byte("pdf"), nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(sampleText, nil)
	f.registry.On("ReportProgress", mock.Anything, mock.Anything).Return(nil)
	f.registry.On("ReportResult", mock.Anything, mock.Anything).Return(nil)

	gen := new(MockQuestionGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(domain.Generation{Source: domain.SourceLLM})

	result := f.pipeline(gen, nil).Process(context.Background(), testJob())

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "generation failed")
	assert.Equal(t, []int{10, 30, 60, 0}, percents(f.registry.progressUpdates()))
}

func TestPipeline_PassesPreprocessedTextAndJobParameters(t *testing.T) {
	f := newFixture()
	long := strings.Repeat("alpha   beta ", 1000)
	f.source.On("Fetch", mock.Anything, mock.Anything).Return([]byte("pdf"), nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(long, nil)
	f.registry.On("ReportProgress", mock.Anything, mock.Anything).Return(nil)
	f.registry.On("ReportResult", mock.Anything, mock.Anything).Return(nil)

	job := testJob()
	job.Difficulty = domain.DifficultyHard
	job.FocusAreas = []string{"alpha"}

	gen := new(MockQuestionGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req domain.GenerationRequest) bool {
		return strings.Contains(req.Text, ElisionMarker) &&
			!strings.Contains(req.Text, "   ") &&
			req.Count == 5 &&
			req.Difficulty == domain.DifficultyHard &&
			len(req.FocusAreas) == 1
	})).Return(domain.Generation{
		Questions: []domain.Question{validQuestion("Q?")},
		Source:    domain.SourceLLM,
	})

	result := f.pipeline(gen, nil).Process(context.Background(), job)

	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Equal(t, len(long), result.TextLength)
	assert.Equal(t, domain.DifficultyHard, result.MCQs[0].Difficulty)
	gen.AssertExpectations(t)
}

func TestPipeline_SubmissionFailureBecomesJobFailure(t *testing.T) {
	f := newFixture()
	f.source.On("Fetch", mock.Anything, mock.Anything).Return([]byte("pdf"), nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(sampleText, nil)
	f.registry.On("ReportProgress", mock.Anything, mock.Anything).Return(nil)
	f.registry.On("ReportResult", mock.Anything, mock.MatchedBy(func(r *domain.Result) bool {
		return r.Status == domain.StatusCompleted
	})).Return(errors.New("503 service unavailable"))
	f.registry.On("ReportResult", mock.Anything, mock.MatchedBy(func(r *domain.Result) bool {
		return r.Status == domain.StatusFailed
	})).Return(nil)

	gen := new(MockQuestionGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(domain.Generation{
		Questions: []domain.Question{validQuestion("Q?")},
		Source:    domain.SourceLLM,
	})

	result := f.pipeline(gen, nil).Process(context.Background(), testJob())

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "submission failed")
	assert.Equal(t, []int{10, 30, 60, 90, 0}, percents(f.registry.progressUpdates()))
}

func TestPipeline_ProgressErrorsAreIgnored(t *testing.T) {
	f := newFixture()
	f.source.On("Fetch", mock.Anything, mock.Anything).Return([]byte("pdf"), nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(sampleText, nil)
	f.registry.On("ReportProgress", mock.Anything, mock.Anything).Return(errors.New("timeout"))
	f.registry.On("ReportResult", mock.Anything, mock.Anything).Return(nil)

	result := f.pipeline(NewFallbackQuizGenerator(nil), nil).Process(context.Background(), testJob())

	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Len(t, result.MCQs, 5)
}
