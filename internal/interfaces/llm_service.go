package interfaces

import "context"

// LLMMode identifies the active provider
type LLMMode string

const (
	LLMModeGemini LLMMode = "gemini"
	LLMModeClaude LLMMode = "claude"
)

// Message is a provider-neutral chat message
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// LLMService abstracts the external text-generation and embedding provider
type LLMService interface {
	// Embed converts text to a vector. Providers without an embedder
	// return an error.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Chat generates a completion for the given message history
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the provider is reachable
	HealthCheck(ctx context.Context) error

	// GetMode returns the provider identity
	GetMode() LLMMode

	// Close releases provider resources
	Close() error
}
