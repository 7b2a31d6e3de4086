package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

const (
	defaultJobListLimit = 10
	maxJobListLimit     = 100
	sseProgressPoll     = 1 * time.Second
)

// ETLHandler exposes job submission, status, progress streaming and
// job-control endpoints.
type ETLHandler struct {
	etl      interfaces.ETLService
	storage  interfaces.StorageManager
	queue    interfaces.JobQueue
	embedder interfaces.EmbeddingService
	metrics  interfaces.MetricsRegistry
	logger   arbor.ILogger
}

// NewETLHandler creates the ETL HTTP handler
func NewETLHandler(etl interfaces.ETLService, storage interfaces.StorageManager,
	queue interfaces.JobQueue, embedder interfaces.EmbeddingService,
	registry interfaces.MetricsRegistry, logger arbor.ILogger) *ETLHandler {

	return &ETLHandler{
		etl:      etl,
		storage:  storage,
		queue:    queue,
		embedder: embedder,
		metrics:  registry,
		logger:   logger,
	}
}

// TestCompletionHandler accepts a test-completion notification and queues
// an ETL job.
// POST /api/etl/test-completion
func (h *ETLHandler) TestCompletionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TestCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	job, err := h.etl.Submit(r.Context(), &req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, models.TestCompletionResponse{
		JobID:                   job.ID,
		TaskID:                  job.ID,
		Status:                  string(job.Status),
		Message:                 "ETL job queued",
		EstimatedCompletionTime: "2-5 minutes",
		ProgressURL:             fmt.Sprintf("/api/etl/jobs/%s/progress", job.ID),
	})
}

// JobStatusHandler returns the full job record.
// GET /api/etl/jobs/{job_id}/status
func (h *ETLHandler) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	job, err := h.storage.JobStorage().GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// JobProgressHandler streams job progress as Server-Sent Events. One
// event is emitted per observed change; the stream ends at a terminal
// status or client disconnect.
// GET /api/etl/jobs/{job_id}/progress
func (h *ETLHandler) JobProgressHandler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	job, err := h.storage.JobStorage().GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeEvent := func(job *models.ETLJob) {
		payload, err := json.Marshal(map[string]interface{}{
			"job_id":              job.ID,
			"status":              job.Status,
			"progress_percentage": job.ProgressPercentage,
			"current_step":        job.CurrentStep,
			"completed_steps":     job.CompletedSteps,
			"total_steps":         job.TotalSteps,
			"error_message":       job.ErrorMessage,
		})
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	writeEvent(job)
	if job.Status.IsTerminal() {
		return
	}

	lastStatus := job.Status
	lastProgress := job.ProgressPercentage
	ticker := time.NewTicker(sseProgressPoll)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		job, err := h.storage.JobStorage().GetJob(r.Context(), jobID)
		if err != nil {
			return
		}
		if job.Status != lastStatus || job.ProgressPercentage != lastProgress {
			writeEvent(job)
			lastStatus = job.Status
			lastProgress = job.ProgressPercentage
		}
		if job.Status.IsTerminal() {
			return
		}
	}
}

// UserJobsHandler lists a user's jobs, most recent first.
// GET /api/etl/users/{user_id}/jobs?limit=1..100
func (h *ETLHandler) UserJobsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	limit := QueryInt(r, "limit", defaultJobListLimit)
	if limit < 1 || limit > maxJobListLimit {
		WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("limit must be between 1 and %d", maxJobListLimit))
		return
	}

	jobs, err := h.storage.JobStorage().ListJobsByUser(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"count":   len(jobs),
		"jobs":    jobs,
	})
}

// CancelJobHandler cancels a pending or running job.
// POST /api/etl/jobs/{job_id}/cancel
func (h *ETLHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if err := h.etl.Cancel(r.Context(), jobID); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteSuccess(w, fmt.Sprintf("job %s cancelled", jobID))
}

// RetryJobHandler forks a failed job into a new pending job.
// POST /api/etl/jobs/{job_id}/retry
func (h *ETLHandler) RetryJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	job, err := h.etl.Retry(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusAccepted, models.TestCompletionResponse{
		JobID:                   job.ID,
		TaskID:                  job.ID,
		Status:                  string(job.Status),
		Message:                 "retry job queued",
		EstimatedCompletionTime: "2-5 minutes",
		ProgressURL:             fmt.Sprintf("/api/etl/jobs/%s/progress", job.ID),
	})
}

// ReprocessHandler resubmits a user's test record through the pipeline.
// Without force=true an active job for the user blocks resubmission.
// POST /api/etl/users/{user_id}/reprocess?anp_seq=...&force=bool
func (h *ETLHandler) ReprocessHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	anpSeq := QueryInt(r, "anp_seq", 0)
	if anpSeq <= 0 {
		WriteError(w, http.StatusBadRequest, "anp_seq query parameter is required")
		return
	}

	if !QueryBool(r, "force") {
		jobs, err := h.storage.JobStorage().ListJobsByUser(r.Context(), userID, defaultJobListLimit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to check active jobs")
			return
		}
		for _, job := range jobs {
			if !job.Status.IsTerminal() {
				WriteError(w, http.StatusConflict,
					fmt.Sprintf("job %s is still %s, use force=true to resubmit", job.ID, job.Status))
				return
			}
		}
	}

	job, err := h.etl.Submit(r.Context(), &models.TestCompletionRequest{
		UserID:             userID,
		AnpSeq:             anpSeq,
		NotificationSource: "reprocess",
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusAccepted, models.TestCompletionResponse{
		JobID:       job.ID,
		TaskID:      job.ID,
		Status:      string(job.Status),
		Message:     "reprocess job queued",
		ProgressURL: fmt.Sprintf("/api/etl/jobs/%s/progress", job.ID),
	})
}

// HealthHandler reports pipeline component health.
// GET /api/etl/health
func (h *ETLHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"database":  "ok",
		"queue":     "ok",
		"embedding": "ok",
	}
	healthy := true

	if _, err := h.storage.DocumentStorage().GetStats(r.Context()); err != nil {
		services["database"] = err.Error()
		healthy = false
	}
	if _, err := h.queue.Depth(); err != nil {
		services["queue"] = err.Error()
		healthy = false
	}
	if !h.embedder.IsAvailable(r.Context()) {
		services["embedding"] = "unavailable"
		healthy = false
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	WriteJSON(w, status, map[string]interface{}{
		"status":   overall,
		"services": services,
		"time":     time.Now(),
	})
}

// StatsHandler reports job counts, queue depth, document stats and the
// metrics snapshot.
// GET /api/etl/stats
func (h *ETLHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	byStatus, err := h.storage.JobStorage().CountJobsByStatus(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to count jobs")
		return
	}
	docStats, err := h.storage.DocumentStorage().GetStats(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load document stats")
		return
	}
	depth, err := h.queue.Depth()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to read queue depth")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs_by_status": byStatus,
		"queue_depth":    depth,
		"documents":      docStats,
		"metrics":        h.metrics.Snapshot(),
	})
}
