package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mcq-worker/internal/domain"
	"mcq-worker/internal/util"

	"github.com/jmoiron/sqlx"
)

// SchemaStatements creates the tables written by SQLRegistry. Oracle runs
// one statement per Exec.
var SchemaStatements = []string{
	`CREATE TABLE mcq_jobs (
    id              VARCHAR2(128) PRIMARY KEY,
    status          VARCHAR2(20) NOT NULL,
    progress        NUMBER(3) DEFAULT 0 NOT NULL,
    message         VARCHAR2(2000),
    total_questions NUMBER(5),
    text_length     NUMBER(10),
    generator       VARCHAR2(20),
    error_message   VARCHAR2(2000),
    processed_at    TIMESTAMP,
    failed_at       TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL
)`,
	`CREATE TABLE mcq_questions (
    id             VARCHAR2(26) PRIMARY KEY,
    job_id         VARCHAR2(128) NOT NULL REFERENCES mcq_jobs(id) ON DELETE CASCADE,
    position       NUMBER(5) NOT NULL,
    question       CLOB NOT NULL,
    options        CLOB NOT NULL,
    correct_index  NUMBER(1) NOT NULL,
    explanation    CLOB,
    source_snippet CLOB,
    difficulty     VARCHAR2(10),
    created_at     TIMESTAMP NOT NULL
)`,
	`CREATE INDEX idx_mcq_questions_job ON mcq_questions (job_id, position)`,
}

const (
	updateProgressQuery = `UPDATE mcq_jobs SET status = :1, progress = :2, message = :3, updated_at = :4 WHERE id = :5`
	insertJobQuery      = `INSERT INTO mcq_jobs (id, status, progress, message, updated_at) VALUES (:1, :2, :3, :4, :5)`
	completeJobQuery    = `UPDATE mcq_jobs SET status = :1, progress = 100, total_questions = :2, text_length = :3, generator = :4, processed_at = :5, error_message = NULL, failed_at = NULL, updated_at = :6 WHERE id = :7`
	failJobQuery        = `UPDATE mcq_jobs SET status = :1, progress = 0, error_message = :2, failed_at = :3, updated_at = :4 WHERE id = :5`
	deleteQuestionsSQL  = `DELETE FROM mcq_questions WHERE job_id = :1`
	insertQuestionQuery = `INSERT INTO mcq_questions (id, job_id, position, question, options, correct_index, explanation, source_snippet, difficulty, created_at) VALUES (:1, :2, :3, :4, :5, :6, :7, :8, :9, :10)`
)

// SQLRegistry writes job status and questions straight into the database
// shared with the backend.
type SQLRegistry struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLRegistry(db *sqlx.DB) *SQLRegistry {
	return &SQLRegistry{db: db, now: time.Now}
}

// ReportProgress creates the job row when the backend has not done so yet.
func (r *SQLRegistry) ReportProgress(ctx context.Context, update domain.ProgressUpdate) error {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, updateProgressQuery,
		update.Status, update.Percent, util.StringToNullString(update.Message), now, update.JobID)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, insertJobQuery,
		update.JobID, update.Status, update.Percent, util.StringToNullString(update.Message), now); err != nil {
		return fmt.Errorf("failed to insert job row: %w", err)
	}
	return nil
}

// ReportResult stores the terminal state and, for completed jobs, replaces
// the job's questions, all in one transaction.
func (r *SQLRegistry) ReportResult(ctx context.Context, result *domain.Result) error {
	now := r.now().UTC()
	return r.withTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := ensureJobRow(ctx, tx, result, now); err != nil {
			return err
		}

		if result.Status == domain.StatusFailed {
			_, err := tx.ExecContext(ctx, failJobQuery,
				string(domain.StatusFailed), util.StringToNullString(result.Error),
				util.TimePtrToNullTime(result.FailedAt), now, result.JobID)
			if err != nil {
				return fmt.Errorf("failed to mark job failed: %w", err)
			}
			return nil
		}

		_, err := tx.ExecContext(ctx, completeJobQuery,
			string(domain.StatusCompleted), result.TotalQuestions, result.TextLength,
			string(result.Generator), util.TimePtrToNullTime(result.ProcessedAt), now, result.JobID)
		if err != nil {
			return fmt.Errorf("failed to mark job completed: %w", err)
		}
		if _, err := tx.ExecContext(ctx, deleteQuestionsSQL, result.JobID); err != nil {
			return fmt.Errorf("failed to clear previous questions: %w", err)
		}
		for i, q := range result.MCQs {
			options, err := json.Marshal(q.Options)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, insertQuestionQuery,
				util.NewULID(), result.JobID, i, q.Question, string(options), q.CorrectIndex,
				util.StringToNullString(q.Explanation), util.StringToNullString(q.SourceSnippet),
				string(q.Difficulty), now)
			if err != nil {
				return fmt.Errorf("failed to insert question %d: %w", i, err)
			}
		}
		return nil
	})
}

func ensureJobRow(ctx context.Context, tx *sqlx.Tx, result *domain.Result, now time.Time) error {
	res, err := tx.ExecContext(ctx, updateProgressQuery,
		string(result.Status), 0, sql.NullString{}, now, result.JobID)
	if err != nil {
		return fmt.Errorf("failed to lock job row: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, insertJobQuery, result.JobID, string(result.Status), 0, sql.NullString{}, now); err != nil {
		return fmt.Errorf("failed to insert job row: %w", err)
	}
	return nil
}

func (r *SQLRegistry) withTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rollbackErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
