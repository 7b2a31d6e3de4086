package models

import "time"

// TestCompletionRequest is the ingress payload that triggers an ETL run
type TestCompletionRequest struct {
	UserID             string     `json:"user_id" validate:"required"`
	AnpSeq             int        `json:"anp_seq" validate:"gt=0"`
	TestType           string     `json:"test_type"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	NotificationSource string     `json:"notification_source,omitempty"`
}

// TestCompletionResponse acknowledges an accepted ETL submission
type TestCompletionResponse struct {
	JobID                   string `json:"job_id"`
	TaskID                  string `json:"task_id"`
	Status                  string `json:"status"`
	Message                 string `json:"message"`
	EstimatedCompletionTime string `json:"estimated_completion_time"`
	ProgressURL             string `json:"progress_url"`
}

// JobMessage is the payload carried on the ETL work queue
type JobMessage struct {
	JobID  string `json:"job_id"`
	UserID string `json:"user_id"`
	AnpSeq int    `json:"anp_seq"`
}
