package models

import (
	"time"
)

// JobStatus represents the state of an ETL job
type JobStatus string

const (
	JobStatusPending              JobStatus = "pending"
	JobStatusStarted              JobStatus = "started"
	JobStatusProcessingQueries    JobStatus = "processing_queries"
	JobStatusTransformingDocs     JobStatus = "transforming_documents"
	JobStatusGeneratingEmbeddings JobStatus = "generating_embeddings"
	JobStatusStoringDocuments     JobStatus = "storing_documents"
	JobStatusSuccess              JobStatus = "success"
	JobStatusFailure              JobStatus = "failure"
	JobStatusPartial              JobStatus = "partial"
)

// IsTerminal reports whether the status is final. Terminal rows are never
// mutated; retry forks a new job instead.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailure || s == JobStatusPartial
}

// ETLJobTotalSteps is the fixed stage count of the pipeline
const ETLJobTotalSteps = 7

// ETLJob tracks one staged pipeline run for a completed test record
type ETLJob struct {
	ID                  string                 `json:"job_id"`
	UserID              string                 `json:"user_id"`
	AnpSeq              int                    `json:"anp_seq"`
	Status              JobStatus              `json:"status"`
	ProgressPercentage  int                    `json:"progress_percentage"`
	CurrentStep         string                 `json:"current_step"`
	CompletedSteps      int                    `json:"completed_steps"`
	TotalSteps          int                    `json:"total_steps"`
	StartedAt           time.Time              `json:"started_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
	CompletedAt         *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage        string                 `json:"error_message,omitempty"`
	ErrorType           string                 `json:"error_type,omitempty"`
	FailedStage         string                 `json:"failed_stage,omitempty"`
	RetryCount          int                    `json:"retry_count"`
	QueryResultsSummary map[string]interface{} `json:"query_results_summary,omitempty"`
	DocumentsCreated    []string               `json:"documents_created,omitempty"`
}

// JobUpdate is a partial field set applied by the job store. Nil pointers
// leave the stored value unchanged.
type JobUpdate struct {
	Status              *JobStatus
	ProgressPercentage  *int
	CurrentStep         *string
	CompletedSteps      *int
	CompletedAt         *time.Time
	ErrorMessage        *string
	ErrorType           *string
	FailedStage         *string
	QueryResultsSummary map[string]interface{}
	DocumentsCreated    []string
}

// StageCheckpoint records one stage attempt for diagnostics
type StageCheckpoint struct {
	JobID      string    `json:"job_id"`
	Stage      string    `json:"stage"`
	Attempt    int       `json:"attempt"`
	Success    bool      `json:"success"`
	DurationMS int64     `json:"duration_ms"`
	HeapBytes  uint64    `json:"heap_bytes"`
	ResultType string    `json:"result_type,omitempty"`
	ResultSize int       `json:"result_size,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
