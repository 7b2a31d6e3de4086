package models

import (
	"encoding/json"
	"time"
)

// DocType identifies the thematic category of a chunked document
type DocType string

const (
	DocTypeUserProfile           DocType = "USER_PROFILE"
	DocTypePersonalityProfile    DocType = "PERSONALITY_PROFILE"
	DocTypeThinkingSkills        DocType = "THINKING_SKILLS"
	DocTypeCareerRecommendations DocType = "CAREER_RECOMMENDATIONS"
	DocTypeCompetencyAnalysis    DocType = "COMPETENCY_ANALYSIS"
	DocTypeLearningStyle         DocType = "LEARNING_STYLE"
	DocTypePreferenceAnalysis    DocType = "PREFERENCE_ANALYSIS"
)

// AllDocTypes lists every supported document type
var AllDocTypes = []DocType{
	DocTypeUserProfile,
	DocTypePersonalityProfile,
	DocTypeThinkingSkills,
	DocTypeCareerRecommendations,
	DocTypeCompetencyAnalysis,
	DocTypeLearningStyle,
	DocTypePreferenceAnalysis,
}

// CompletionLevel summarizes how well-populated a document's source data is
type CompletionLevel string

const (
	CompletionNone     CompletionLevel = "none"
	CompletionLow      CompletionLevel = "low"
	CompletionMedium   CompletionLevel = "medium"
	CompletionHigh     CompletionLevel = "high"
	CompletionPartial  CompletionLevel = "partial"
	CompletionComplete CompletionLevel = "complete"
)

// DocumentMetadata carries chunk-level metadata persisted alongside content
type DocumentMetadata struct {
	SubType               string          `json:"sub_type"`
	CompletionLevel       CompletionLevel `json:"completion_level"`
	CreatedAt             time.Time       `json:"created_at"`
	DataSources           []string        `json:"data_sources,omitempty"`
	HypotheticalQuestions []string        `json:"hypothetical_questions,omitempty"`
}

// Document is one small, topically-focused chunk produced from a completed
// aptitude test. SearchableText (summary + hypothetical questions) is the
// text the embedding is computed from.
type Document struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	DocType        DocType                `json:"doc_type"`
	Content        map[string]interface{} `json:"content"`
	SummaryText    string                 `json:"summary_text"`
	SearchableText string                 `json:"searchable_text"`
	Metadata       DocumentMetadata       `json:"metadata"`
	Embedding      []float32              `json:"-"`
	EmbeddingModel string                 `json:"embedding_model,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// EmbeddingInput returns the text the embedding should be computed from
func (d *Document) EmbeddingInput() string {
	if d.SearchableText != "" {
		return d.SearchableText
	}
	return d.SummaryText
}

// ContentJSON serializes the content payload for prompt assembly
func (d *Document) ContentJSON() string {
	data, err := json.Marshal(d.Content)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// DocumentStats summarizes the stored corpus
type DocumentStats struct {
	TotalDocuments  int             `json:"total_documents"`
	VectorizedCount int             `json:"vectorized_count"`
	DocumentsByType map[DocType]int `json:"documents_by_type"`
}
