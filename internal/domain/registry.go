package domain

import "context"

// JobRegistry is the external service of record for job status and results.
type JobRegistry interface {
	// ReportProgress delivers a progress milestone. Callers treat failures
	// as non-fatal.
	ReportProgress(ctx context.Context, update ProgressUpdate) error

	// ReportResult submits the terminal artifact of a job.
	ReportResult(ctx context.Context, result *Result) error
}
