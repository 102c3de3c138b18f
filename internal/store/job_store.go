package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evotools/evo-dispatch/internal/domain"
)

// JobStore is the sole source of truth for scheduled sends. Jobs are kept in
// insertion order; payload and scheduled_at are never updated after creation,
// and status moves forward only (pending -> sent or pending -> failed).
type JobStore struct {
	db       *sqlx.DB
	notifier *ChangeNotifier
}

func NewJobStore(db *sqlx.DB, notifier *ChangeNotifier) *JobStore {
	return &JobStore{db: db, notifier: notifier}
}

const jobColumns = "id, kind, payload, scheduled_at, status, error, created_at, updated_at"

// Add persists a new pending job and returns it with its generated id.
func (s *JobStore) Add(ctx context.Context, kind domain.JobKind, payload domain.JobPayload, scheduledAt time.Time) (*domain.ScheduledJob, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO scheduled_jobs (id, kind, payload, scheduled_at, status)
		VALUES (?, ?, ?, ?, 'pending')
	`

	if _, err := s.db.ExecContext(ctx, query, id, kind, payload, scheduledAt); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.notifier.Notify()

	return s.GetByID(ctx, id)
}

func (s *JobStore) GetByID(ctx context.Context, id string) (*domain.ScheduledJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs WHERE id = ?`

	var job domain.ScheduledJob
	if err := s.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// List returns jobs in insertion order with an optional status filter.
func (s *JobStore) List(
	ctx context.Context,
	status *domain.JobStatus,
	page, pageSize int,
) ([]domain.ScheduledJob, int64, error) {
	offset := (page - 1) * pageSize
	var totalCount int64
	var jobs []domain.ScheduledJob

	if status != nil {
		countQuery := "SELECT COUNT(*) FROM scheduled_jobs WHERE status = ?"
		if err := s.db.GetContext(ctx, &totalCount, countQuery, *status); err != nil {
			return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
		}

		query := `
			SELECT ` + jobColumns + `
			FROM scheduled_jobs
			WHERE status = ?
			ORDER BY created_at ASC, id ASC
			LIMIT ? OFFSET ?
		`
		if err := s.db.SelectContext(ctx, &jobs, query, *status, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
		}
	} else {
		countQuery := "SELECT COUNT(*) FROM scheduled_jobs"
		if err := s.db.GetContext(ctx, &totalCount, countQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
		}

		query := `
			SELECT ` + jobColumns + `
			FROM scheduled_jobs
			ORDER BY created_at ASC, id ASC
			LIMIT ? OFFSET ?
		`
		if err := s.db.SelectContext(ctx, &jobs, query, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
		}
	}

	return jobs, totalCount, nil
}

// GetDue returns pending jobs whose scheduled time has elapsed, in insertion
// order. This is the dispatch loop's scan source.
func (s *JobStore) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scheduled_jobs
		WHERE status = 'pending' AND scheduled_at <= ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`

	var jobs []domain.ScheduledJob
	if err := s.db.SelectContext(ctx, &jobs, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to get due jobs: %w", err)
	}

	return jobs, nil
}

// MarkSent transitions a pending job to sent. Calling it on a job that is no
// longer pending is a no-op; the guard in the WHERE clause keeps transitions
// forward-only even under a racing scan.
func (s *JobStore) MarkSent(ctx context.Context, id string) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'sent', error = NULL, updated_at = CURRENT_TIMESTAMP(6)
		WHERE id = ? AND status = 'pending'
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark job as sent: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		s.notifier.Notify()
	}

	return nil
}

// MarkFailed transitions a pending job to failed and records the error text.
// A no-op for jobs that already left pending.
func (s *JobStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'failed', error = ?, updated_at = CURRENT_TIMESTAMP(6)
		WHERE id = ? AND status = 'pending'
	`

	result, err := s.db.ExecContext(ctx, query, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to mark job as failed: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		s.notifier.Notify()
	}

	return nil
}

// Remove deletes a job regardless of status. Removing an absent id is not an
// error.
func (s *JobStore) Remove(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM scheduled_jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove job: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		s.notifier.Notify()
	}

	return nil
}

// Stats returns job counts by status.
func (s *JobStore) Stats(ctx context.Context) (pending, sent, failed int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)    AS sent,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)  AS failed
		FROM scheduled_jobs
	`

	var stats struct {
		Pending int64 `db:"pending"`
		Sent    int64 `db:"sent"`
		Failed  int64 `db:"failed"`
	}

	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats.Pending, stats.Sent, stats.Failed, nil
}
