package interfaces

import (
	"context"

	"github.com/aptihub/chatetl/internal/models"
)

// QuestionService validates, categorizes and embeds user questions
type QuestionService interface {
	Process(ctx context.Context, userID, question string) (*models.ProcessedQuestion, error)
	// Context returns a copy of the per-user conversation context
	Context(userID string) models.ConversationContext
}

// RAGContext is the assembled prompt plus its provenance
type RAGContext struct {
	Prompt          string                 `json:"prompt"`
	Template        string                 `json:"template"`
	Documents       []*models.SearchResult `json:"documents"`
	EstimatedTokens int                    `json:"estimated_tokens"`
	Truncated       bool                   `json:"truncated"`
}

// ContextBuilder retrieves documents and assembles the prompt under a
// token budget
type ContextBuilder interface {
	Build(ctx context.Context, userID string, question *models.ProcessedQuestion, previousContext string) (*RAGContext, error)
}

// ResponseService generates the final answer with guardrails
type ResponseService interface {
	Generate(ctx context.Context, userID string, question *models.ProcessedQuestion, ragContext *RAGContext) (*models.GeneratedResponse, error)
}
