package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"mcq-worker/internal/cache"
	"mcq-worker/internal/domain"

	"go.uber.org/zap"
)

const (
	fieldProgress  = "progress"
	fieldStatus    = "status"
	fieldMessage   = "message"
	fieldUpdatedAt = "updated_at"
)

// ProgressStore keeps the latest progress milestone of each job in the
// shared cache so it can be served locally while the job runs.
type ProgressStore struct {
	cache domain.Cache
	ttl   time.Duration
}

func NewProgressStore(c domain.Cache, ttl time.Duration) *ProgressStore {
	return &ProgressStore{cache: c, ttl: ttl}
}

func (s *ProgressStore) Save(ctx context.Context, update domain.ProgressUpdate) error {
	key := cache.JobProgressKey(update.JobID)
	err := s.cache.HSet(ctx, key, map[string]string{
		fieldProgress:  strconv.Itoa(update.Percent),
		fieldStatus:    update.Status,
		fieldMessage:   update.Message,
		fieldUpdatedAt: update.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	if s.ttl > 0 {
		return s.cache.Expire(ctx, key, s.ttl)
	}
	return nil
}

// Get returns a NOT_FOUND domain error when no snapshot exists.
func (s *ProgressStore) Get(ctx context.Context, jobID string) (*domain.ProgressUpdate, error) {
	fields, err := s.cache.HGetAll(ctx, cache.JobProgressKey(jobID))
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, domain.NewNotFoundError("no progress recorded for job " + jobID)
		}
		return nil, domain.NewInternalError("failed to read job progress", err)
	}

	percent, err := strconv.Atoi(fields[fieldProgress])
	if err != nil {
		return nil, domain.NewInternalError("corrupt progress snapshot", err)
	}
	update := &domain.ProgressUpdate{
		JobID:   jobID,
		Percent: percent,
		Status:  fields[fieldStatus],
		Message: fields[fieldMessage],
	}
	if ts := fields[fieldUpdatedAt]; ts != "" {
		if parsed, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			update.UpdatedAt = parsed
		}
	}
	return update, nil
}

// ProgressReporter fans a milestone out to the job registry and, when
// configured, the local snapshot store. Delivery is best effort.
type ProgressReporter struct {
	registry domain.JobRegistry
	store    *ProgressStore
	log      *zap.Logger
	now      func() time.Time
}

// NewProgressReporter accepts a nil store.
func NewProgressReporter(registry domain.JobRegistry, store *ProgressStore, log *zap.Logger) *ProgressReporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressReporter{registry: registry, store: store, log: log, now: time.Now}
}

func (r *ProgressReporter) Report(ctx context.Context, jobID string, percent int, status, message string) {
	update := domain.ProgressUpdate{
		JobID:     jobID,
		Percent:   percent,
		Status:    status,
		Message:   message,
		UpdatedAt: r.now(),
	}

	if r.store != nil {
		if err := r.store.Save(ctx, update); err != nil {
			r.log.Warn("Failed to store progress snapshot",
				zap.String("job_id", jobID),
				zap.Error(err),
			)
		}
	}

	if err := r.registry.ReportProgress(ctx, update); err != nil {
		r.log.Warn("Failed to report progress",
			zap.String("job_id", jobID),
			zap.Int("progress", percent),
			zap.Error(err),
		)
		return
	}
	r.log.Debug("Progress reported",
		zap.String("job_id", jobID),
		zap.Int("progress", percent),
		zap.String("status", status),
	)
}
