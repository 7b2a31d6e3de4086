package models

// QuestionCategory is the closed category set for user questions
type QuestionCategory string

const (
	CategoryPersonality           QuestionCategory = "PERSONALITY"
	CategoryThinkingSkills        QuestionCategory = "THINKING_SKILLS"
	CategoryCareerRecommendations QuestionCategory = "CAREER_RECOMMENDATIONS"
	CategoryLearningStyle         QuestionCategory = "LEARNING_STYLE"
	CategoryCompetencyAnalysis    QuestionCategory = "COMPETENCY_ANALYSIS"
	CategoryPreferenceAnalysis    QuestionCategory = "PREFERENCE_ANALYSIS"
	CategoryGeneralComparison     QuestionCategory = "GENERAL_COMPARISON"
	CategoryStatisticalInfo       QuestionCategory = "STATISTICAL_INFO"
	CategoryUnknown               QuestionCategory = "UNKNOWN"
)

// QuestionIntent is what the user wants done with the topic
type QuestionIntent string

const (
	IntentExplain   QuestionIntent = "EXPLAIN"
	IntentCompare   QuestionIntent = "COMPARE"
	IntentRecommend QuestionIntent = "RECOMMEND"
	IntentAnalyze   QuestionIntent = "ANALYZE"
	IntentClarify   QuestionIntent = "CLARIFY"
	IntentFollowUp  QuestionIntent = "FOLLOW_UP"
	IntentUnknown   QuestionIntent = "UNKNOWN"
)

// ProcessedQuestion is the structured output of the question processor
type ProcessedQuestion struct {
	Original           string           `json:"original"`
	Cleaned            string           `json:"cleaned"`
	Category           QuestionCategory `json:"category"`
	CategoryConfidence float64          `json:"category_confidence"`
	Intent             QuestionIntent   `json:"intent"`
	IntentConfidence   float64          `json:"intent_confidence"`
	Keywords           []string         `json:"keywords"`
	RequiredDocTypes   []DocType        `json:"required_doc_types"`
	Embedding          []float32        `json:"-"`
}

// ConversationContext is the bounded per-user question history used for
// follow-up detection
type ConversationContext struct {
	RecentQuestions []string `json:"recent_questions"`
	CurrentTopic    string   `json:"current_topic"`
	Depth           int      `json:"depth"`
}
