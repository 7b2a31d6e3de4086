package models

import "time"

// AlertRule is a configurable threshold check over preference metrics
type AlertRule struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Threshold   float64  `json:"threshold"`
	Enabled     bool     `json:"enabled"`
}

// PreferenceAlert is one triggered rule evaluation
type PreferenceAlert struct {
	RuleName    string    `json:"rule_name"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Value       float64   `json:"value"`
	Threshold   float64   `json:"threshold"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// QuerySuccessRate summarizes one preference query's outcomes
type QuerySuccessRate struct {
	QueryName   string  `json:"query_name"`
	Total       float64 `json:"total"`
	Succeeded   float64 `json:"succeeded"`
	Failed      float64 `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// DocumentCreationStats summarizes preference document creation outcomes
type DocumentCreationStats struct {
	Total       float64 `json:"total"`
	Succeeded   float64 `json:"succeeded"`
	Failed      float64 `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// UserImpactReport estimates how preference failures reach end users
type UserImpactReport struct {
	GeneratedAt          time.Time         `json:"generated_at"`
	JobsByStatus         map[JobStatus]int `json:"jobs_by_status"`
	FailedJobs           int               `json:"failed_jobs"`
	PartialJobs          int               `json:"partial_jobs"`
	TotalDocuments       int               `json:"total_documents"`
	PreferenceDocuments  int               `json:"preference_documents"`
	Assessment           string            `json:"assessment"`
}
