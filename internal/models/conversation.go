package models

import "time"

// ConversationTurn is one question/response pair held in conversation memory
type ConversationTurn struct {
	UserID    string    `json:"user_id"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// ResponseQuality grades a generated answer
type ResponseQuality string

const (
	QualityPoor       ResponseQuality = "poor"
	QualityAcceptable ResponseQuality = "acceptable"
	QualityGood       ResponseQuality = "good"
	QualityExcellent  ResponseQuality = "excellent"
)

// DataAvailability is the preference-data verdict used by the guardrails
type DataAvailability string

const (
	DataMissing  DataAvailability = "missing"
	DataPartial  DataAvailability = "partial"
	DataComplete DataAvailability = "complete"
)

// DataQuality tags how rich the retrieved preference data is
type DataQuality string

const (
	DataQualityNone   DataQuality = "none"
	DataQualityLow    DataQuality = "low"
	DataQualityMedium DataQuality = "medium"
	DataQualityHigh   DataQuality = "high"
)

// GeneratedResponse is the response generator's output
type GeneratedResponse struct {
	Answer        string          `json:"answer"`
	Quality       ResponseQuality `json:"quality"`
	Confidence    float64         `json:"confidence"`
	DocumentsUsed int             `json:"documents_used"`
	Template      string          `json:"template"`
	Fallback      bool            `json:"fallback"`
	DurationMS    int64           `json:"duration_ms"`
}
