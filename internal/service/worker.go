package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"mcq-worker/internal/domain"
	"mcq-worker/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const transportErrorBackoff = time.Second

// WorkerDeps lists the collaborators of a Worker.
type WorkerDeps struct {
	Transport   domain.JobTransport
	Processor   JobProcessor
	Validator   *validation.Validator
	Claimer     *JobClaimer
	Registry    domain.JobRegistry
	Progress    *ProgressReporter
	Concurrency int
	Logger      *zap.Logger
}

// Worker pulls job messages from a transport and runs each one through a
// JobProcessor. Concurrency applies across jobs only.
type Worker struct {
	transport   domain.JobTransport
	processor   JobProcessor
	validator   *validation.Validator
	claimer     *JobClaimer
	registry    domain.JobRegistry
	progress    *ProgressReporter
	concurrency int
	log         *zap.Logger
	backoff     time.Duration
}

func NewWorker(deps WorkerDeps) *Worker {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	v := deps.Validator
	if v == nil {
		v = validation.NewValidator()
	}
	progress := deps.Progress
	if progress == nil {
		progress = NewProgressReporter(deps.Registry, nil, log)
	}
	return &Worker{
		transport:   deps.Transport,
		processor:   deps.Processor,
		validator:   v,
		claimer:     deps.Claimer,
		registry:    deps.Registry,
		progress:    progress,
		concurrency: concurrency,
		log:         log,
		backoff:     transportErrorBackoff,
	}
}

// Run blocks until ctx is cancelled or the transport is closed. Jobs that
// already started are finished before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Worker started", zap.Int("concurrency", w.concurrency))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		slot := i
		g.Go(func() error {
			return w.loop(gctx, slot)
		})
	}
	err := g.Wait()
	w.log.Info("Worker stopped")
	return err
}

func (w *Worker) loop(ctx context.Context, slot int) error {
	log := w.log.With(zap.Int("slot", slot))
	for {
		delivery, err := w.transport.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrTransportClosed) {
				return nil
			}
			log.Error("Failed to receive job message", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.backoff):
			}
			continue
		}
		if delivery == nil {
			continue
		}
		// In-flight jobs run to a terminal outcome even during shutdown.
		w.Handle(context.WithoutCancel(ctx), delivery)
	}
}

// Handle decodes, validates, claims and processes one delivery.
func (w *Worker) Handle(ctx context.Context, d *domain.Delivery) {
	payload, err := domain.DecodeJobPayload(d.Body)
	if err != nil {
		w.log.Error("Dropping undecodable job message", zap.Error(err), zap.Int("bytes", len(d.Body)))
		w.ack(ctx, d, "")
		return
	}

	jobID := strings.TrimSpace(payload.JobID)
	job, buildErr := w.validator.BuildJob(payload)
	if buildErr != nil && jobID == "" {
		w.log.Error("Dropping job message without id", zap.Error(domain.NewInvalidJobError(buildErr)))
		w.ack(ctx, d, "")
		return
	}

	// Invalid jobs are claimed too, so only one replica reports them failed.
	if !w.claim(ctx, d, jobID) {
		return
	}

	if buildErr != nil {
		w.rejectInvalid(ctx, jobID, buildErr)
		w.ack(ctx, d, jobID)
		return
	}

	result := w.processor.Process(ctx, job)
	w.log.Info("Job finished",
		zap.String("job_id", job.ID),
		zap.String("status", string(result.Status)),
	)
	w.ack(ctx, d, job.ID)
}

// claim reports whether this worker should handle jobID. A held claim acks
// the delivery. When the claim store fails, deliveries that can be
// redelivered stay unacked; others are handled without a claim since the
// message is already gone from the transport.
func (w *Worker) claim(ctx context.Context, d *domain.Delivery, jobID string) bool {
	if w.claimer == nil {
		return true
	}
	runID, ok, err := w.claimer.Claim(ctx, jobID)
	if err != nil {
		if d.Ack != nil {
			w.log.Error("Skipping job, claim failed", zap.String("job_id", jobID), zap.Error(err))
			return false
		}
		w.log.Warn("Claim failed, handling job without claim", zap.String("job_id", jobID), zap.Error(err))
		return true
	}
	if !ok {
		w.ack(ctx, d, jobID)
		return false
	}
	w.log.Debug("Job claimed", zap.String("job_id", jobID), zap.String("run_id", runID))
	return true
}

func (w *Worker) rejectInvalid(ctx context.Context, jobID string, cause error) {
	invalid := domain.NewInvalidJobError(cause)
	w.log.Warn("Rejecting invalid job", zap.String("job_id", jobID), zap.Error(invalid))
	result := domain.NewFailedResult(jobID, invalid.Error(), time.Now().UTC())
	if err := w.registry.ReportResult(ctx, result); err != nil {
		w.log.Error("Failed to submit failure result", zap.String("job_id", jobID), zap.Error(err))
	}
	w.progress.Report(ctx, jobID, ProgressAborted, domain.ProgressFailed, invalid.Error())
}

func (w *Worker) ack(ctx context.Context, d *domain.Delivery, jobID string) {
	if d.Ack == nil {
		return
	}
	if err := d.Ack(ctx); err != nil {
		w.log.Warn("Failed to acknowledge job message", zap.String("job_id", jobID), zap.Error(err))
	}
}
