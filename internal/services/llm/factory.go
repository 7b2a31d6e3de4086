package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
)

// NewChatService returns the chat provider selected by llm.mode. The Gemini
// service is always used for embeddings regardless of the chat provider.
func NewChatService(config *common.Config, gemini *GeminiService, logger arbor.ILogger) (interfaces.LLMService, error) {
	switch interfaces.LLMMode(config.LLM.Mode) {
	case interfaces.LLMModeGemini, "":
		return gemini, nil
	case interfaces.LLMModeClaude:
		return NewClaudeService(&config.Claude, logger)
	default:
		return nil, fmt.Errorf("unknown llm mode: %s", config.LLM.Mode)
	}
}
