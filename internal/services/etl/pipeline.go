package etl

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/aptihub/chatetl/internal/models"
)

const cancelledMessage = "Job cancelled by user"

// stage progress percentages, in execution order
const (
	progressInitialization = 5
	progressReadiness      = 20
	progressQueries        = 35
	progressValidation     = 50
	progressTransform      = 70
	progressEmbeddings     = 90
	progressStorage        = 100
)

// jobRun carries the mutable state of one pipeline execution
type jobRun struct {
	job         *models.ETLJob
	userCreated bool
	results     models.QueryResults
	documents   []*models.Document
	stored      bool
}

// Run executes one queued job to a terminal state. It is idempotent for
// already-terminal jobs, so at-least-once queue delivery is safe.
func (o *Orchestrator) Run(ctx context.Context, msg *models.JobMessage) error {
	job, err := o.storage.JobStorage().GetJob(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", msg.JobID, err)
	}
	if job.Status.IsTerminal() {
		o.logger.Debug().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("Skipping terminal job")
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, o.config.JobTimeout())
	o.registerCancel(job.ID, cancel)
	defer o.clearCancel(job.ID)
	defer cancel()

	run := &jobRun{job: job}
	stage, err := o.runPipeline(runCtx, run)
	if err != nil {
		o.resolveFailure(ctx, run, stage, err)
		return nil
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("user_id", job.UserID).
		Int("documents", len(run.documents)).
		Msg("ETL job completed")
	return nil
}

// runPipeline walks the stages in order and returns the failed stage name
// alongside the error.
func (o *Orchestrator) runPipeline(ctx context.Context, run *jobRun) (string, error) {
	stages := []struct {
		name     string
		status   models.JobStatus
		progress int
		step     int
		fn       func(context.Context, *jobRun) (string, int, error)
	}{
		{"initialization", models.JobStatusStarted, progressInitialization, 1, o.stageInitialize},
		{"readiness_wait", models.JobStatusStarted, progressReadiness, 2, o.stageReadiness},
		{"query_execution", models.JobStatusProcessingQueries, progressQueries, 3, o.stageQueries},
		{"data_validation", models.JobStatusProcessingQueries, progressValidation, 4, o.stageValidation},
		{"document_transformation", models.JobStatusTransformingDocs, progressTransform, 5, o.stageTransform},
		{"embedding_generation", models.JobStatusGeneratingEmbeddings, progressEmbeddings, 6, o.stageEmbeddings},
		{"document_storage", models.JobStatusStoringDocuments, progressStorage, 7, o.stageStorage},
	}

	for _, stage := range stages {
		status := stage.status
		name := stage.name
		if err := o.storage.JobStorage().UpdateJob(ctx, run.job.ID, &models.JobUpdate{
			Status:      &status,
			CurrentStep: &name,
		}); err != nil {
			return stage.name, fmt.Errorf("failed to update job state: %w", err)
		}

		if err := o.runStage(ctx, run, stage.name, stage.fn); err != nil {
			return stage.name, err
		}

		progress := stage.progress
		step := stage.step
		if err := o.storage.JobStorage().UpdateJob(ctx, run.job.ID, &models.JobUpdate{
			ProgressPercentage: &progress,
			CompletedSteps:     &step,
		}); err != nil {
			return stage.name, fmt.Errorf("failed to update job progress: %w", err)
		}
	}

	return "completion", o.completeJob(ctx, run)
}

// runStage attempts one stage with retries and records a checkpoint per
// attempt.
func (o *Orchestrator) runStage(ctx context.Context, run *jobRun, stage string,
	fn func(context.Context, *jobRun) (string, int, error)) error {

	attempts := o.config.MaxRetriesPerStage + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		resultType, resultSize, err := fn(ctx, run)

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		point := models.StageCheckpoint{
			JobID:      run.job.ID,
			Stage:      stage,
			Attempt:    attempt,
			Success:    err == nil,
			DurationMS: time.Since(start).Milliseconds(),
			HeapBytes:  memStats.HeapAlloc,
			ResultType: resultType,
			ResultSize: resultSize,
			Timestamp:  time.Now(),
		}
		if err != nil {
			point.Error = err.Error()
		}
		o.recordCheckpoint(point)

		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return err
		}
		if attempt == attempts || !models.IsRetryable(err) {
			break
		}

		delay := o.retryDelay(attempt)
		o.logger.Warn().Err(err).
			Str("job_id", run.job.ID).
			Str("stage", stage).
			Int("attempt", attempt).
			Str("retry_in", delay.String()).
			Msg("Stage failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func (o *Orchestrator) stageInitialize(ctx context.Context, run *jobRun) (string, int, error) {
	_, created, err := o.storage.UserStorage().EnsureUser(ctx, run.job.UserID, run.job.AnpSeq)
	if err != nil {
		return "", 0, fmt.Errorf("failed to ensure user: %w", err)
	}
	run.userCreated = created
	if created {
		o.logger.Info().Str("user_id", run.job.UserID).Msg("Created user row for ETL run")
	}
	return "user", 1, nil
}

// stageReadiness polls the legacy source until the minimal rows exist.
// Progress is forced past the force threshold; the upstream preparation
// pipeline sometimes reports late.
func (o *Orchestrator) stageReadiness(ctx context.Context, run *jobRun) (string, int, error) {
	maxAttempts := o.config.ReadinessMaxAttempts
	force := o.config.ReadinessForceAttempt

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ready, err := o.storage.LegacyStorage().HasMinimumData(ctx, run.job.AnpSeq)
		if err != nil {
			o.logger.Warn().Err(err).
				Str("job_id", run.job.ID).
				Int("attempt", attempt).
				Msg("Readiness probe failed")
		} else if ready {
			return "readiness", attempt, nil
		}

		if force > 0 && attempt >= force {
			o.logger.Warn().
				Str("job_id", run.job.ID).
				Int("attempt", attempt).
				Msg("Source data not confirmed ready, forcing progress")
			return "readiness_forced", attempt, nil
		}

		select {
		case <-ctx.Done():
			return "", attempt, ctx.Err()
		case <-time.After(o.pollInterval):
		}
	}
	return "", maxAttempts, fmt.Errorf("data readiness timed out after %d attempts", maxAttempts)
}

func (o *Orchestrator) stageQueries(ctx context.Context, run *jobRun) (string, int, error) {
	results, err := o.executor.ExecuteAll(ctx, run.job.AnpSeq)
	if err != nil {
		return "", 0, err
	}
	run.results = results

	if err := o.storage.JobStorage().UpdateJob(ctx, run.job.ID, &models.JobUpdate{
		QueryResultsSummary: results.Summary(),
	}); err != nil {
		o.logger.Warn().Err(err).Str("job_id", run.job.ID).Msg("Failed to persist query summary")
	}
	return "query_results", len(results), nil
}

func (o *Orchestrator) stageValidation(ctx context.Context, run *jobRun) (string, int, error) {
	report := o.validator.ValidateQueryResults(run.results)
	if !report.Passed {
		if o.config.RelaxedValidation {
			o.logger.Warn().
				Str("job_id", run.job.ID).
				Int("errors", len(report.Errors)).
				Msg("Query validation failed, continuing in relaxed mode")
			return "validation_relaxed", len(report.Errors), nil
		}
		return "", len(report.Errors), fmt.Errorf("query validation failed: %v", report.Errors)
	}
	return "validation", report.Checked, nil
}

func (o *Orchestrator) stageTransform(ctx context.Context, run *jobRun) (string, int, error) {
	docs := o.transformer.TransformAll(ctx, run.job.UserID, run.results.SuccessfulRows())
	if len(docs) == 0 {
		return "", 0, fmt.Errorf("document transformation produced no documents")
	}
	run.documents = docs

	report := o.validator.ValidateDocuments(docs)
	if !report.Passed {
		if o.config.RelaxedValidation {
			o.logger.Warn().
				Str("job_id", run.job.ID).
				Int("errors", len(report.Errors)).
				Msg("Document validation failed, continuing in relaxed mode")
			return "documents_relaxed", len(docs), nil
		}
		return "", len(docs), fmt.Errorf("document validation failed: %v", report.Errors)
	}
	return "documents", len(docs), nil
}

// stageEmbeddings enriches the documents with vectors. Provider outages
// surface as zero-vector placeholders inside the embedding client, so the
// run can proceed to storage.
func (o *Orchestrator) stageEmbeddings(ctx context.Context, run *jobRun) (string, int, error) {
	if err := o.embedder.EnrichDocuments(ctx, run.documents); err != nil {
		return "", 0, err
	}

	report := o.validator.ValidateEmbeddings(run.documents)
	if !report.Passed {
		if o.config.RelaxedValidation {
			o.logger.Warn().
				Str("job_id", run.job.ID).
				Int("errors", len(report.Errors)).
				Msg("Embedding validation failed, continuing in relaxed mode")
			return "embeddings_relaxed", len(run.documents), nil
		}
		return "", len(run.documents), fmt.Errorf("embedding validation failed: %v", report.Errors)
	}
	return "embeddings", len(run.documents), nil
}

func (o *Orchestrator) stageStorage(ctx context.Context, run *jobRun) (string, int, error) {
	if err := o.storage.DocumentStorage().ReplaceUserDocuments(ctx, run.job.UserID, run.documents); err != nil {
		return "", 0, err
	}
	run.stored = true
	if o.search != nil {
		o.search.InvalidateUser(run.job.UserID)
	}

	ids := make([]string, 0, len(run.documents))
	for _, doc := range run.documents {
		ids = append(ids, doc.ID)
	}
	if err := o.storage.JobStorage().UpdateJob(ctx, run.job.ID, &models.JobUpdate{
		DocumentsCreated: ids,
	}); err != nil {
		o.logger.Warn().Err(err).Str("job_id", run.job.ID).Msg("Failed to persist created document ids")
	}
	return "stored_documents", len(run.documents), nil
}

func (o *Orchestrator) completeJob(ctx context.Context, run *jobRun) error {
	status := models.JobStatusSuccess
	step := "completed"
	now := time.Now()
	return o.storage.JobStorage().UpdateJob(ctx, run.job.ID, &models.JobUpdate{
		Status:      &status,
		CurrentStep: &step,
		CompletedAt: &now,
	})
}

// resolveFailure applies the cancellation, partial-completion and rollback
// policies and writes the terminal job state.
func (o *Orchestrator) resolveFailure(ctx context.Context, run *jobRun, stage string, err error) {
	if o.wasCancelled(run.job.ID) {
		o.logger.Info().Str("job_id", run.job.ID).Str("stage", stage).Msg("Job cancelled")
		o.markFailure(ctx, run.job.ID, stage, cancelledMessage, models.ErrorKindUnknown)
		return
	}

	kind, severity, _ := models.ClassifyError(err)
	o.logger.Error().Err(err).
		Str("job_id", run.job.ID).
		Str("stage", stage).
		Str("error_type", string(kind)).
		Str("severity", string(severity)).
		Msg("ETL job failed")

	if severity == models.SeverityCritical {
		o.notifyAdmin(run.job, stage, err)
	}

	if o.config.EnablePartialCompletion && run.stored && len(run.documents) > 0 &&
		severity != models.SeverityCritical {

		o.markPartial(ctx, run, stage, err, kind)
		return
	}

	if o.config.EnableRollback {
		o.rollback(ctx, run)
	}
	o.markFailure(ctx, run.job.ID, stage, err.Error(), kind)
}

func (o *Orchestrator) markPartial(ctx context.Context, run *jobRun, stage string, err error, kind models.ErrorKind) {
	status := models.JobStatusPartial
	message := err.Error()
	errorType := string(kind)
	now := time.Now()
	update := &models.JobUpdate{
		Status:       &status,
		ErrorMessage: &message,
		ErrorType:    &errorType,
		FailedStage:  &stage,
		CompletedAt:  &now,
	}
	if err := o.storage.JobStorage().UpdateJob(ctx, run.job.ID, update); err != nil {
		o.logger.Warn().Err(err).Str("job_id", run.job.ID).Msg("Failed to record partial completion")
		return
	}
	o.logger.Warn().
		Str("job_id", run.job.ID).
		Str("stage", stage).
		Int("documents_kept", len(run.documents)).
		Msg("Job completed partially, stored documents kept")
}

// rollback deletes documents created by this job and undoes a user row the
// job itself created.
func (o *Orchestrator) rollback(ctx context.Context, run *jobRun) {
	if run.stored {
		if err := o.storage.DocumentStorage().DeleteUserDocuments(ctx, run.job.UserID); err != nil {
			o.logger.Error().Err(err).Str("job_id", run.job.ID).Msg("Rollback failed to delete documents")
		} else if o.search != nil {
			o.search.InvalidateUser(run.job.UserID)
		}
	}
	if run.userCreated {
		if err := o.storage.UserStorage().DeleteUser(ctx, run.job.UserID); err != nil {
			o.logger.Error().Err(err).Str("job_id", run.job.ID).Msg("Rollback failed to delete user")
		}
	}
	o.logger.Info().Str("job_id", run.job.ID).Msg("Rollback applied")
}

// notifyAdmin is the administrator notification hook for critical
// failures. Email and messenger delivery hang off this log line.
func (o *Orchestrator) notifyAdmin(job *models.ETLJob, stage string, err error) {
	o.logger.Error().Err(err).
		Str("job_id", job.ID).
		Str("user_id", job.UserID).
		Str("stage", stage).
		Msg("ADMIN NOTIFICATION: critical ETL failure")
}
