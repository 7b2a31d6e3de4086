package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// JobStorage implements interfaces.JobStorage over chat_etl_jobs
type JobStorage struct {
	db     *SQLiteDB
	users  interfaces.UserStorage
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewJobStorage creates a new job storage instance
func NewJobStorage(db *SQLiteDB, users interfaces.UserStorage, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{db: db, users: users, logger: logger}
}

// CreateJob persists a new job. If the referenced user does not exist a
// minimal user row is created first to satisfy the foreign-key invariant.
func (s *JobStorage) CreateJob(ctx context.Context, job *models.ETLJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.users.EnsureUser(ctx, job.UserID, job.AnpSeq); err != nil {
		return fmt.Errorf("failed to ensure user %s: %w", job.UserID, err)
	}

	if job.TotalSteps == 0 {
		job.TotalSteps = models.ETLJobTotalSteps
	}
	now := time.Now().UTC()
	if job.StartedAt.IsZero() {
		job.StartedAt = now
	}
	job.UpdatedAt = now

	var summaryJSON, docsJSON sql.NullString
	var err error
	if job.QueryResultsSummary != nil {
		summaryJSON, err = marshalNullable(job.QueryResultsSummary)
		if err != nil {
			return fmt.Errorf("failed to marshal query results summary: %w", err)
		}
	}
	if job.DocumentsCreated != nil {
		docsJSON, err = marshalNullable(job.DocumentsCreated)
		if err != nil {
			return fmt.Errorf("failed to marshal documents created: %w", err)
		}
	}

	var completedAt sql.NullInt64
	if job.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: job.CompletedAt.Unix(), Valid: true}
	}

	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO chat_etl_jobs (
			job_id, user_id, anp_seq, status, progress_percentage,
			current_step, completed_steps, total_steps,
			started_at, updated_at, completed_at,
			error_message, error_type, failed_stage, retry_count,
			query_results_summary, documents_created
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID, job.UserID, job.AnpSeq, string(job.Status), job.ProgressPercentage,
		job.CurrentStep, job.CompletedSteps, job.TotalSteps,
		job.StartedAt.Unix(), job.UpdatedAt.Unix(), completedAt,
		job.ErrorMessage, job.ErrorType, job.FailedStage, job.RetryCount,
		summaryJSON, docsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// UpdateJob applies a partial field set. Terminal rows are never mutated.
func (s *JobStorage) UpdateJob(ctx context.Context, jobID string, update *models.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() {
		return fmt.Errorf("job %s is terminal (%s) and cannot be updated", jobID, current.Status)
	}

	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC().Unix()}

	if update.Status != nil {
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.ProgressPercentage != nil {
		setClauses = append(setClauses, "progress_percentage = ?")
		args = append(args, *update.ProgressPercentage)
	}
	if update.CurrentStep != nil {
		setClauses = append(setClauses, "current_step = ?")
		args = append(args, *update.CurrentStep)
	}
	if update.CompletedSteps != nil {
		setClauses = append(setClauses, "completed_steps = ?")
		args = append(args, *update.CompletedSteps)
	}
	if update.CompletedAt != nil {
		setClauses = append(setClauses, "completed_at = ?")
		args = append(args, update.CompletedAt.Unix())
	}
	if update.ErrorMessage != nil {
		setClauses = append(setClauses, "error_message = ?")
		args = append(args, *update.ErrorMessage)
	}
	if update.ErrorType != nil {
		setClauses = append(setClauses, "error_type = ?")
		args = append(args, *update.ErrorType)
	}
	if update.FailedStage != nil {
		setClauses = append(setClauses, "failed_stage = ?")
		args = append(args, *update.FailedStage)
	}
	if update.QueryResultsSummary != nil {
		summaryJSON, err := json.Marshal(update.QueryResultsSummary)
		if err != nil {
			return fmt.Errorf("failed to marshal query results summary: %w", err)
		}
		setClauses = append(setClauses, "query_results_summary = ?")
		args = append(args, string(summaryJSON))
	}
	if update.DocumentsCreated != nil {
		docsJSON, err := json.Marshal(update.DocumentsCreated)
		if err != nil {
			return fmt.Errorf("failed to marshal documents created: %w", err)
		}
		setClauses = append(setClauses, "documents_created = ?")
		args = append(args, string(docsJSON))
	}

	query := "UPDATE chat_etl_jobs SET "
	for i, clause := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE job_id = ?"
	args = append(args, jobID)

	if _, err := s.db.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	return nil
}

// GetJob retrieves a job by id
func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.ETLJob, error) {
	return s.getJob(ctx, jobID)
}

func (s *JobStorage) getJob(ctx context.Context, jobID string) (*models.ETLJob, error) {
	row := s.db.db.QueryRowContext(ctx, jobSelectColumns+" FROM chat_etl_jobs WHERE job_id = ?", jobID)
	return scanJob(row.Scan)
}

// ListJobsByUser returns the user's jobs, most recent first, bounded
func (s *JobStorage) ListJobsByUser(ctx context.Context, userID string, limit int) ([]*models.ETLJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.db.db.QueryContext(ctx,
		jobSelectColumns+" FROM chat_etl_jobs WHERE user_id = ? ORDER BY started_at DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ETLJob
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job row
func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.db.ExecContext(ctx, "DELETE FROM chat_etl_jobs WHERE job_id = ?", jobID)
	return err
}

// CountJobsByStatus returns job counts grouped by status
func (s *JobStorage) CountJobsByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	rows, err := s.db.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM chat_etl_jobs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[models.JobStatus(status)] = count
	}
	return counts, rows.Err()
}

const jobSelectColumns = `
	SELECT job_id, user_id, anp_seq, status, progress_percentage,
		current_step, completed_steps, total_steps,
		started_at, updated_at, completed_at,
		error_message, error_type, failed_stage, retry_count,
		query_results_summary, documents_created`

func scanJob(scan func(...interface{}) error) (*models.ETLJob, error) {
	var job models.ETLJob
	var status string
	var currentStep, errorMessage, errorType, failedStage sql.NullString
	var startedAt, updatedAt int64
	var completedAt sql.NullInt64
	var summaryJSON, docsJSON sql.NullString

	err := scan(
		&job.ID, &job.UserID, &job.AnpSeq, &status, &job.ProgressPercentage,
		&currentStep, &job.CompletedSteps, &job.TotalSteps,
		&startedAt, &updatedAt, &completedAt,
		&errorMessage, &errorType, &failedStage, &job.RetryCount,
		&summaryJSON, &docsJSON,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job.Status = models.JobStatus(status)
	job.CurrentStep = currentStep.String
	job.ErrorMessage = errorMessage.String
	job.ErrorType = errorType.String
	job.FailedStage = failedStage.String
	job.StartedAt = time.Unix(startedAt, 0).UTC()
	job.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		job.CompletedAt = &t
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		if err := json.Unmarshal([]byte(summaryJSON.String), &job.QueryResultsSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal query results summary: %w", err)
		}
	}
	if docsJSON.Valid && docsJSON.String != "" {
		if err := json.Unmarshal([]byte(docsJSON.String), &job.DocumentsCreated); err != nil {
			return nil, fmt.Errorf("failed to unmarshal documents created: %w", err)
		}
	}
	return &job, nil
}

func marshalNullable(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
