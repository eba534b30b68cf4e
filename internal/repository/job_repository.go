package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// JobRepository defines persistence operations for scheduled jobs.
type JobRepository interface {
	Save(ctx context.Context, job *domain.ScheduledJob) error
	Deactivate(ctx context.Context, jobID string) error
	ListActive(ctx context.Context) ([]*domain.ScheduledJob, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]*domain.ScheduledJob, error)
}

type jobRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewJobRepository creates a new SQL-backed scheduled-job repository.
func NewJobRepository(db *sql.DB, log *slog.Logger) JobRepository {
	return &jobRepository{
		db:  db,
		log: log,
	}
}

// Save upserts a scheduled job keyed by its job identifier.
func (r *jobRepository) Save(ctx context.Context, job *domain.ScheduledJob) error {
	const query = `
		INSERT INTO scheduled_jobs (job_id, user_id, type, text, trigger_kind, run_at, time_of_day, weekday, horizon, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id)
		DO UPDATE SET active = EXCLUDED.active, run_at = EXCLUDED.run_at, horizon = EXCLUDED.horizon
	`

	var weekday sql.NullInt64
	if job.Weekday != nil {
		weekday = sql.NullInt64{Int64: int64(*job.Weekday), Valid: true}
	}

	var runAt, horizon sql.NullTime
	if job.RunAt != nil {
		runAt = sql.NullTime{Time: *job.RunAt, Valid: true}
	}
	if job.Horizon != nil {
		horizon = sql.NullTime{Time: *job.Horizon, Valid: true}
	}

	if _, err := r.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.UserID,
		job.Type,
		job.Text,
		job.Trigger,
		runAt,
		job.TimeOfDay,
		weekday,
		horizon,
		job.Active,
		job.CreatedAt,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to save scheduled job", slog.String("job_id", job.JobID), slog.Any("error", err))
		}
		return fmt.Errorf("save scheduled job: %w", err)
	}

	return nil
}

// Deactivate marks a job inactive. Unknown job identifiers are a no-op.
func (r *jobRepository) Deactivate(ctx context.Context, jobID string) error {
	const query = `
		UPDATE scheduled_jobs
		SET active = FALSE
		WHERE job_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, jobID); err != nil {
		if r.log != nil {
			r.log.Error("failed to deactivate scheduled job", slog.String("job_id", jobID), slog.Any("error", err))
		}
		return fmt.Errorf("deactivate scheduled job: %w", err)
	}

	return nil
}

// ListActive returns all active jobs ordered by creation time.
func (r *jobRepository) ListActive(ctx context.Context) ([]*domain.ScheduledJob, error) {
	const query = `
		SELECT job_id, user_id, type, text, trigger_kind, run_at, time_of_day, weekday, horizon, active, created_at
		FROM scheduled_jobs
		WHERE active = TRUE
		ORDER BY created_at
	`

	return r.queryJobs(ctx, query)
}

// ListActiveByUser returns one user's active jobs ordered by creation time.
func (r *jobRepository) ListActiveByUser(ctx context.Context, userID int64) ([]*domain.ScheduledJob, error) {
	const query = `
		SELECT job_id, user_id, type, text, trigger_kind, run_at, time_of_day, weekday, horizon, active, created_at
		FROM scheduled_jobs
		WHERE active = TRUE AND user_id = $1
		ORDER BY created_at
	`

	return r.queryJobs(ctx, query, userID)
}

func (r *jobRepository) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*domain.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list scheduled jobs", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select scheduled jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*domain.ScheduledJob
	for rows.Next() {
		var (
			job       domain.ScheduledJob
			runAt     sql.NullTime
			horizon   sql.NullTime
			weekday   sql.NullInt64
			timeOfDay sql.NullString
		)

		if err := rows.Scan(
			&job.JobID,
			&job.UserID,
			&job.Type,
			&job.Text,
			&job.Trigger,
			&runAt,
			&timeOfDay,
			&weekday,
			&horizon,
			&job.Active,
			&job.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan scheduled job: %w", err)
		}

		if runAt.Valid {
			t := runAt.Time
			job.RunAt = &t
		}
		if horizon.Valid {
			t := horizon.Time
			job.Horizon = &t
		}
		if weekday.Valid {
			wd := time.Weekday(weekday.Int64)
			job.Weekday = &wd
		}
		if timeOfDay.Valid {
			job.TimeOfDay = timeOfDay.String
		}

		result = append(result, &job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheduled jobs: %w", err)
	}

	return result, nil
}
