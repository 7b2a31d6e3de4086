package etl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// maxTrackedJobs bounds the in-memory checkpoint history
const maxTrackedJobs = 256

// SearchInvalidator drops cached search results for a user after the
// document set changes.
type SearchInvalidator interface {
	InvalidateUser(userID string)
}

// Orchestrator drives ETL jobs through the staged pipeline: initialization,
// readiness wait, query execution, validation, transformation, embedding
// generation and document storage. It owns job-control operations
// (cancel, retry) and per-stage checkpoints.
type Orchestrator struct {
	config      *common.ETLConfig
	storage     interfaces.StorageManager
	executor    interfaces.QueryExecutor
	validator   interfaces.Validator
	transformer interfaces.Transformer
	embedder    interfaces.EmbeddingService
	queue       interfaces.JobQueue
	search      SearchInvalidator
	metrics     interfaces.MetricsRegistry
	logger      arbor.ILogger
	validate    *validator.Validate

	pollInterval time.Duration
	retryDelay   func(attempt int) time.Duration

	mu          sync.Mutex
	cancels     map[string]context.CancelFunc
	cancelled   map[string]bool
	checkpoints map[string][]models.StageCheckpoint
	jobOrder    []string
}

// NewOrchestrator wires the pipeline services into an ETL orchestrator
func NewOrchestrator(config *common.ETLConfig, storage interfaces.StorageManager,
	executor interfaces.QueryExecutor, docValidator interfaces.Validator,
	transformer interfaces.Transformer, embedder interfaces.EmbeddingService,
	queue interfaces.JobQueue, search SearchInvalidator,
	registry interfaces.MetricsRegistry, logger arbor.ILogger) *Orchestrator {

	return &Orchestrator{
		config:       config,
		storage:      storage,
		executor:     executor,
		validator:    docValidator,
		transformer:  transformer,
		embedder:     embedder,
		queue:        queue,
		search:       search,
		metrics:      registry,
		logger:       logger,
		validate:     validator.New(),
		pollInterval: config.ReadinessPollInterval(),
		retryDelay:   stageRetryDelay(config.RetryDelaySeconds),
		cancels:      make(map[string]context.CancelFunc),
		cancelled:    make(map[string]bool),
		checkpoints:  make(map[string][]models.StageCheckpoint),
	}
}

var _ interfaces.ETLService = (*Orchestrator)(nil)

// stageRetryDelay returns exponential backoff capped at five minutes
func stageRetryDelay(baseSeconds int) func(int) time.Duration {
	if baseSeconds <= 0 {
		baseSeconds = 60
	}
	return func(attempt int) time.Duration {
		delay := time.Duration(baseSeconds) * time.Second << uint(attempt-1)
		if delay > 5*time.Minute {
			delay = 5 * time.Minute
		}
		return delay
	}
}

// Submit validates a test-completion request, persists a pending job and
// enqueues it for the worker pool.
func (o *Orchestrator) Submit(ctx context.Context, req *models.TestCompletionRequest) (*models.ETLJob, error) {
	if err := o.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid test completion request: %w", err)
	}

	now := time.Now()
	job := &models.ETLJob{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		AnpSeq:      req.AnpSeq,
		Status:      models.JobStatusPending,
		CurrentStep: "queued",
		TotalSteps:  models.ETLJobTotalSteps,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.storage.JobStorage().CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	msg := &models.JobMessage{JobID: job.ID, UserID: job.UserID, AnpSeq: job.AnpSeq}
	if err := o.queue.Enqueue(ctx, msg); err != nil {
		o.markFailure(ctx, job.ID, "queued", fmt.Sprintf("failed to enqueue job: %v", err), models.ErrorKindUnknown)
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("user_id", job.UserID).
		Int("anp_seq", job.AnpSeq).
		Msg("ETL job submitted")
	return job, nil
}

// Cancel requests administrative cancellation of a job. A running job is
// interrupted at its next suspension point; a queued job is failed
// immediately. Already-stored documents are left in place.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	job, err := o.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job %s is already %s and cannot be cancelled", jobID, job.Status)
	}

	o.mu.Lock()
	o.cancelled[jobID] = true
	cancel, running := o.cancels[jobID]
	o.mu.Unlock()

	if running {
		cancel()
		o.logger.Info().Str("job_id", jobID).Msg("Cancellation signalled to running job")
		return nil
	}

	o.markFailure(ctx, jobID, job.CurrentStep, cancelledMessage, models.ErrorKindUnknown)
	o.logger.Info().Str("job_id", jobID).Msg("Queued job cancelled")
	return nil
}

// Retry forks a terminal failed or partial job into a fresh pending job
func (o *Orchestrator) Retry(ctx context.Context, jobID string) (*models.ETLJob, error) {
	prev, err := o.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if prev.Status != models.JobStatusFailure && prev.Status != models.JobStatusPartial {
		return nil, fmt.Errorf("job %s has status %s and cannot be retried", jobID, prev.Status)
	}

	now := time.Now()
	job := &models.ETLJob{
		ID:          uuid.New().String(),
		UserID:      prev.UserID,
		AnpSeq:      prev.AnpSeq,
		Status:      models.JobStatusPending,
		CurrentStep: "queued",
		TotalSteps:  models.ETLJobTotalSteps,
		// The fork carries the previous record's retry count unchanged;
		// a retry of a first-attempt job starts at zero
		RetryCount: prev.RetryCount,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.storage.JobStorage().CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create retry job: %w", err)
	}

	msg := &models.JobMessage{JobID: job.ID, UserID: job.UserID, AnpSeq: job.AnpSeq}
	if err := o.queue.Enqueue(ctx, msg); err != nil {
		o.markFailure(ctx, job.ID, "queued", fmt.Sprintf("failed to enqueue job: %v", err), models.ErrorKindUnknown)
		return nil, fmt.Errorf("failed to enqueue retry job: %w", err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("previous_job_id", jobID).
		Int("retry_count", job.RetryCount).
		Msg("ETL job retried")
	return job, nil
}

// Checkpoints returns the recorded stage attempts for a job
func (o *Orchestrator) Checkpoints(jobID string) []models.StageCheckpoint {
	o.mu.Lock()
	defer o.mu.Unlock()
	points := o.checkpoints[jobID]
	out := make([]models.StageCheckpoint, len(points))
	copy(out, points)
	return out
}

func (o *Orchestrator) registerCancel(jobID string, cancel context.CancelFunc) {
	o.mu.Lock()
	o.cancels[jobID] = cancel
	o.mu.Unlock()
}

func (o *Orchestrator) clearCancel(jobID string) {
	o.mu.Lock()
	delete(o.cancels, jobID)
	delete(o.cancelled, jobID)
	o.mu.Unlock()
}

func (o *Orchestrator) wasCancelled(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled[jobID]
}

func (o *Orchestrator) recordCheckpoint(point models.StageCheckpoint) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, tracked := o.checkpoints[point.JobID]; !tracked {
		o.jobOrder = append(o.jobOrder, point.JobID)
		if len(o.jobOrder) > maxTrackedJobs {
			oldest := o.jobOrder[0]
			o.jobOrder = o.jobOrder[1:]
			delete(o.checkpoints, oldest)
		}
	}
	o.checkpoints[point.JobID] = append(o.checkpoints[point.JobID], point)
}

// markFailure writes a terminal failure row, tolerating races with other
// terminal writers.
func (o *Orchestrator) markFailure(ctx context.Context, jobID, stage, message string, kind models.ErrorKind) {
	status := models.JobStatusFailure
	errorType := string(kind)
	now := time.Now()
	update := &models.JobUpdate{
		Status:       &status,
		ErrorMessage: &message,
		ErrorType:    &errorType,
		FailedStage:  &stage,
		CompletedAt:  &now,
	}
	if err := o.storage.JobStorage().UpdateJob(ctx, jobID, update); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to record job failure")
	}
}
