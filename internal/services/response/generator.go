package response

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
	"github.com/aptihub/chatetl/internal/services/metrics"
	"github.com/aptihub/chatetl/internal/services/ragcontext"
)

const llmAttempts = 3

// Generator produces the final answer: it enforces the preference
// guardrails, calls the chat LLM with retries, post-processes the text
// and maintains per-user conversation memory.
type Generator struct {
	llm     interfaces.LLMService
	config  *common.RAGConfig
	memory  *conversationMemory
	metrics interfaces.MetricsRegistry
	logger  arbor.ILogger
}

// NewGenerator creates a response generator
func NewGenerator(llm interfaces.LLMService, config *common.RAGConfig,
	registry interfaces.MetricsRegistry, logger arbor.ILogger) *Generator {

	return &Generator{
		llm:     llm,
		config:  config,
		memory:  newConversationMemory(config.MemoryTurns),
		metrics: registry,
		logger:  logger,
	}
}

var _ interfaces.ResponseService = (*Generator)(nil)

// PreviousContext exposes the user's conversation history for the
// context builder.
func (g *Generator) PreviousContext(userID string) string {
	return g.memory.previousContext(userID)
}

// Generate produces the answer for one question
func (g *Generator) Generate(ctx context.Context, userID string, question *models.ProcessedQuestion,
	ragContext *interfaces.RAGContext) (*models.GeneratedResponse, error) {

	start := time.Now()
	defer func() {
		if g.metrics != nil {
			g.metrics.Observe(metrics.MetricRAGResponseSeconds, nil, time.Since(start).Seconds())
		}
	}()

	preferenceRelated := isPreferenceRelated(question, ragContext.Template)
	availability, dataQuality := preferenceAvailability(ragContext.Documents)

	// no preference data at all: answer from other analyses without
	// calling the model, unless the prompt already handles the gap
	if preferenceRelated && availability == models.DataMissing &&
		ragContext.Template != ragcontext.TemplatePreferenceMissing {

		answer := fallbackFromDocuments(question, ragContext)
		g.memory.record(userID, question.Cleaned, answer, string(question.Category))
		return &models.GeneratedResponse{
			Answer:        answer,
			Quality:       models.QualityAcceptable,
			Confidence:    0.6,
			DocumentsUsed: len(ragContext.Documents),
			Template:      ragContext.Template,
			Fallback:      true,
			DurationMS:    time.Since(start).Milliseconds(),
		}, nil
	}

	raw, err := g.chatWithRetry(ctx, ragContext.Prompt)
	if err != nil {
		if g.metrics != nil {
			g.metrics.IncrCounter(metrics.MetricRAGResponseErrors, nil, 1)
			g.metrics.IncrCounter(metrics.MetricLLMAPIErrors, nil, 1)
		}
		g.logger.Warn().Err(err).Str("user_id", userID).Msg("LLM call failed, returning fallback")

		answer := failureFallback(question)
		g.memory.record(userID, question.Cleaned, answer, string(question.Category))
		return &models.GeneratedResponse{
			Answer:        answer,
			Quality:       models.QualityPoor,
			Confidence:    0.1,
			DocumentsUsed: len(ragContext.Documents),
			Template:      ragContext.Template,
			Fallback:      true,
			DurationMS:    time.Since(start).Milliseconds(),
		}, nil
	}

	answer := postProcess(raw)

	if preferenceRelated && availability != models.DataComplete {
		patterns, severity := detectHallucinations(answer)
		if len(patterns) > 0 {
			g.logger.Warn().
				Str("user_id", userID).
				Str("severity", string(severity)).
				Str("patterns", fmt.Sprintf("%v", patterns)).
				Str("data_quality", string(dataQuality)).
				Msg("Suspicious claims in answer over incomplete preference data")

			if availability == models.DataMissing {
				answer += missingDataDisclaimer
			} else {
				answer += partialDataDisclaimer
			}
			answer += alternativeSuggestions(question)
		}
		if availability == models.DataPartial {
			answer += partialDataTips
		}
	}

	quality := scoreQuality(answer)
	g.memory.record(userID, question.Cleaned, answer, string(question.Category))

	return &models.GeneratedResponse{
		Answer:        answer,
		Quality:       quality,
		Confidence:    confidenceFor(quality, len(ragContext.Documents)),
		DocumentsUsed: len(ragContext.Documents),
		Template:      ragContext.Template,
		DurationMS:    time.Since(start).Milliseconds(),
	}, nil
}

// chatWithRetry calls the LLM with exponential backoff on transient errors
func (g *Generator) chatWithRetry(ctx context.Context, prompt string) (string, error) {
	messages := []interfaces.Message{{Role: "user", Content: prompt}}

	var lastErr error
	for attempt := 1; attempt <= llmAttempts; attempt++ {
		answer, err := g.llm.Chat(ctx, messages)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		if !models.IsRetryable(err) || attempt == llmAttempts {
			break
		}
		delay := time.Duration(1<<uint(attempt-1))*time.Second +
			time.Duration(rand.Int63n(int64(500*time.Millisecond)))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", lastErr
}

// failureFallback is the topic-specific message when the model is down
func failureFallback(question *models.ProcessedQuestion) string {
	topic := "검사 결과"
	switch question.Category {
	case models.CategoryPersonality:
		topic = "성향 분석"
	case models.CategoryThinkingSkills:
		topic = "사고력 분석"
	case models.CategoryCareerRecommendations:
		topic = "진로 추천"
	case models.CategoryLearningStyle:
		topic = "학습 스타일"
	case models.CategoryCompetencyAnalysis:
		topic = "역량 분석"
	case models.CategoryPreferenceAnalysis:
		topic = "선호도 분석"
	}
	return fmt.Sprintf("죄송합니다. 일시적인 문제로 %s 답변을 생성하지 못했습니다. 잠시 후 다시 시도해 주세요.", topic)
}
