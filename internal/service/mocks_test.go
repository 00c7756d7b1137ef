package service

import (
	"context"
	"time"

	"mcq-worker/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockDocumentSource ---
type MockDocumentSource struct {
	mock.Mock
}

func (m *MockDocumentSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// --- MockTextExtractor ---
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(ctx context.Context, document []byte) (string, error) {
	args := m.Called(ctx, document)
	return args.String(0), args.Error(1)
}

// --- MockQuestionGenerator ---
type MockQuestionGenerator struct {
	mock.Mock
}

func (m *MockQuestionGenerator) Generate(ctx context.Context, req domain.GenerationRequest) domain.Generation {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Generation)
}

// --- MockCompleter ---
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, opts domain.CompletionOptions) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt, opts)
	return args.String(0), args.Error(1)
}

// --- MockJobRegistry ---
type MockJobRegistry struct {
	mock.Mock
}

func (m *MockJobRegistry) ReportProgress(ctx context.Context, update domain.ProgressUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *MockJobRegistry) ReportResult(ctx context.Context, result *domain.Result) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockJobRegistry) progressUpdates() []domain.ProgressUpdate {
	var updates []domain.ProgressUpdate
	for _, call := range m.Calls {
		if call.Method == "ReportProgress" {
			updates = append(updates, call.Arguments.Get(1).(domain.ProgressUpdate))
		}
	}
	return updates
}

func (m *MockJobRegistry) results() []*domain.Result {
	var results []*domain.Result
	for _, call := range m.Calls {
		if call.Method == "ReportResult" {
			results = append(results, call.Arguments.Get(1).(*domain.Result))
		}
	}
	return results
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockCache) HSet(ctx context.Context, key string, values map[string]string) error {
	args := m.Called(ctx, key, values)
	return args.Error(0)
}

func (m *MockCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	args := m.Called(ctx, key, expiration)
	return args.Error(0)
}

// --- MockJobProcessor ---
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) Process(ctx context.Context, job *domain.Job) *domain.Result {
	args := m.Called(ctx, job)
	return args.Get(0).(*domain.Result)
}
