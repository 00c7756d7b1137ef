package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mcq-worker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const progressKey = "mcqworker:worker:job:job-1:progress"

func TestProgressStore_Save(t *testing.T) {
	cache := new(MockCache)
	store := NewProgressStore(cache, 24*time.Hour)
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	cache.On("HSet", mock.Anything, progressKey, map[string]string{
		"progress":   "30",
		"status":     "processing",
		"message":    "Extracting text from PDF",
		"updated_at": "2026-05-01T10:00:00Z",
	}).Return(nil)
	cache.On("Expire", mock.Anything, progressKey, 24*time.Hour).Return(nil)

	err := store.Save(context.Background(), domain.ProgressUpdate{
		JobID: "job-1", Percent: 30, Status: "processing", Message: "Extracting text from PDF", UpdatedAt: at,
	})
	require.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestProgressStore_Get(t *testing.T) {
	cache := new(MockCache)
	store := NewProgressStore(cache, time.Hour)

	cache.On("HGetAll", mock.Anything, progressKey).Return(map[string]string{
		"progress":   "60",
		"status":     "processing",
		"message":    "Generating questions",
		"updated_at": "2026-05-01T10:00:00Z",
	}, nil)

	update, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, 60, update.Percent)
	assert.Equal(t, "Generating questions", update.Message)
	assert.Equal(t, 2026, update.UpdatedAt.Year())
}

func TestProgressStore_GetMissing(t *testing.T) {
	cache := new(MockCache)
	store := NewProgressStore(cache, time.Hour)
	cache.On("HGetAll", mock.Anything, progressKey).Return(nil, domain.ErrCacheMiss)

	_, err := store.Get(context.Background(), "job-1")
	assert.Equal(t, domain.ErrNotFound, domain.CodeOf(err))
}

func TestProgressReporter_IgnoresFailures(t *testing.T) {
	cache := new(MockCache)
	registry := new(MockJobRegistry)
	cache.On("HSet", mock.Anything, progressKey, mock.Anything).Return(errors.New("redis down"))
	registry.On("ReportProgress", mock.Anything, mock.Anything).Return(errors.New("backend down"))

	r := NewProgressReporter(registry, NewProgressStore(cache, time.Hour), nil)
	assert.NotPanics(t, func() {
		r.Report(context.Background(), "job-1", 10, domain.ProgressProcessing, "Downloading file")
	})

	updates := registry.progressUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, "job-1", updates[0].JobID)
	assert.Equal(t, 10, updates[0].Percent)
	cache.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything, mock.Anything)
}

func TestJobClaimer(t *testing.T) {
	cache := new(MockCache)
	claimer := NewJobClaimer(cache, time.Minute, nil)
	key := "mcqworker:worker:job:job-9:claim"

	cache.On("SetNX", mock.Anything, key, mock.AnythingOfType("string"), time.Minute).Return(true, nil).Once()
	runID, ok, err := claimer.Claim(context.Background(), "job-9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, runID, 26)

	cache.On("Delete", mock.Anything, key).Return(nil)
	assert.NoError(t, claimer.Release(context.Background(), "job-9"))
	cache.AssertExpectations(t)
}
