package service

import (
	"context"
	"errors"
	"time"

	"mcq-worker/internal/cache"
	"mcq-worker/internal/domain"
	"mcq-worker/internal/util"

	"go.uber.org/zap"
)

// JobClaimer gives one worker exclusive ownership of a job id for ttl.
// Claims are not released after a run so late duplicate deliveries of the
// same job are dropped.
type JobClaimer struct {
	cache domain.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewJobClaimer(c domain.Cache, ttl time.Duration, log *zap.Logger) *JobClaimer {
	if log == nil {
		log = zap.NewNop()
	}
	return &JobClaimer{cache: c, ttl: ttl, log: log}
}

// Claim returns the run id of a fresh claim, or ok=false when another run
// already holds the job.
func (c *JobClaimer) Claim(ctx context.Context, jobID string) (runID string, ok bool, err error) {
	runID = util.NewULID()
	key := cache.JobClaimKey(jobID)

	ok, err = c.cache.SetNX(ctx, key, runID, c.ttl)
	if err != nil {
		return "", false, domain.NewInternalError("failed to claim job", err)
	}
	if !ok {
		owner, gerr := c.cache.Get(ctx, key)
		if gerr != nil && !errors.Is(gerr, domain.ErrCacheMiss) {
			owner = "unknown"
		}
		c.log.Info("Job already claimed",
			zap.String("job_id", jobID),
			zap.String("owner_run_id", owner),
		)
		return "", false, nil
	}
	return runID, true, nil
}

// Release drops the claim so the job can be processed again.
func (c *JobClaimer) Release(ctx context.Context, jobID string) error {
	if err := c.cache.Delete(ctx, cache.JobClaimKey(jobID)); err != nil {
		return domain.NewInternalError("failed to release job claim", err)
	}
	return nil
}
