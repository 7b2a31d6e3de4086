package question

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

const (
	minQuestionChars = 3
	maxQuestionChars = 500
	maxKeywords      = 10
	historyTurns     = 5
)

// Processor validates, normalizes, categorizes and embeds user questions,
// and tracks a bounded per-user conversation context for follow-up
// detection.
type Processor struct {
	embedder interfaces.EmbeddingService
	logger   arbor.ILogger

	mu       sync.Mutex
	contexts map[string]*models.ConversationContext
}

// NewProcessor creates a question processor
func NewProcessor(embedder interfaces.EmbeddingService, logger arbor.ILogger) *Processor {
	return &Processor{
		embedder: embedder,
		logger:   logger,
		contexts: make(map[string]*models.ConversationContext),
	}
}

var _ interfaces.QuestionService = (*Processor)(nil)

// Process runs the full question pipeline: validate, clean, categorize,
// detect intent, extract keywords, embed, and update the conversation
// context.
func (p *Processor) Process(ctx context.Context, userID, question string) (*models.ProcessedQuestion, error) {
	cleaned, err := p.normalize(question)
	if err != nil {
		return nil, err
	}

	convContext := p.Context(userID)

	category, categoryConfidence := categorize(cleaned)
	intent, intentConfidence := detectIntent(cleaned, &convContext)
	keywords := extractKeywords(cleaned)

	docTypes := append([]models.DocType(nil), requiredDocTypes[category]...)
	if intent == models.IntentCompare && !containsDocType(docTypes, models.DocTypeCompetencyAnalysis) {
		docTypes = append(docTypes, models.DocTypeCompetencyAnalysis)
	}

	processed := &models.ProcessedQuestion{
		Original:           question,
		Cleaned:            cleaned,
		Category:           category,
		CategoryConfidence: categoryConfidence,
		Intent:             intent,
		IntentConfidence:   intentConfidence,
		Keywords:           keywords,
		RequiredDocTypes:   docTypes,
	}

	if p.embedder != nil {
		result, err := p.embedder.GenerateEmbedding(ctx, cleaned)
		if err != nil {
			return nil, fmt.Errorf("question embedding failed: %w", err)
		}
		processed.Embedding = result.Vector
	}

	p.updateContext(userID, cleaned, category)

	p.logger.Debug().
		Str("user_id", userID).
		Str("category", string(category)).
		Str("intent", string(intent)).
		Int("keywords", len(keywords)).
		Msg("Question processed")

	return processed, nil
}

// Context returns a copy of the user's conversation context
func (p *Processor) Context(userID string) models.ConversationContext {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.contexts[userID]
	if !ok {
		return models.ConversationContext{}
	}
	copied := *current
	copied.RecentQuestions = append([]string(nil), current.RecentQuestions...)
	return copied
}

// normalize validates and cleans the raw question text
func (p *Processor) normalize(question string) (string, error) {
	var b strings.Builder
	for _, r := range question {
		switch {
		case r == '？':
			b.WriteRune('?')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' ||
			unicode.IsSpace(r) || strings.ContainsRune("?.!,", r):
			b.WriteRune(r)
		}
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(cleaned)
	if len(runes) < minQuestionChars {
		return "", fmt.Errorf("invalid input: question must be at least %d characters", minQuestionChars)
	}
	if len(runes) > maxQuestionChars {
		return "", fmt.Errorf("invalid input: question must be at most %d characters", maxQuestionChars)
	}

	wordChars := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			wordChars++
		}
	}
	if wordChars < 2 {
		return "", fmt.Errorf("invalid input: question must contain at least 2 word characters")
	}

	if !strings.ContainsAny(string(runes[len(runes)-1]), "?.!") {
		cleaned += "?"
	}

	return cleaned, nil
}

// categorize scores the question against every category keyword set
func categorize(question string) (models.QuestionCategory, float64) {
	compact := strings.ToLower(strings.ReplaceAll(question, " ", ""))

	best := models.CategoryUnknown
	bestScore := 0.0
	for category, keywords := range categoryKeywords {
		score := 0.0
		for _, keyword := range keywords {
			if strings.Contains(compact, keyword) {
				score += float64(len([]rune(keyword))) / 10
			}
		}
		if category == models.CategoryPreferenceAnalysis {
			for _, term := range preferenceCoreTerms {
				if strings.Contains(compact, term) {
					score += 2 * float64(len([]rune(term))) / 10
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = category
		}
	}

	confidence := bestScore / 2
	if confidence > 1 {
		confidence = 1
	}
	return best, confidence
}

// detectIntent scores intents in parallel; an active conversation with a
// follow-up indicator forces FOLLOW_UP.
func detectIntent(question string, convContext *models.ConversationContext) (models.QuestionIntent, float64) {
	compact := strings.ToLower(strings.ReplaceAll(question, " ", ""))

	if convContext != nil && convContext.Depth > 0 {
		for _, indicator := range followUpIndicators {
			if strings.Contains(compact, indicator) {
				return models.IntentFollowUp, 0.8
			}
		}
	}

	best := models.IntentUnknown
	bestScore := 0.0
	for intent, keywords := range intentKeywords {
		score := 0.0
		for _, keyword := range keywords {
			if strings.Contains(compact, keyword) {
				score += float64(len([]rune(keyword))) / 10
			}
		}
		if score > bestScore {
			bestScore = score
			best = intent
		}
	}

	confidence := bestScore / 2
	if confidence > 1 {
		confidence = 1
	}
	return best, confidence
}

// extractKeywords tokenizes Korean syllable runs, ASCII word runs and
// digit runs, drops stop words and deduplicates preserving order.
func extractKeywords(question string) []string {
	tokens := tokenize(question)

	seen := make(map[string]bool, len(tokens))
	keywords := make([]string, 0, maxKeywords)
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if stopWords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		keywords = append(keywords, token)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

type runeClass int

const (
	classOther runeClass = iota
	classHangul
	classASCII
	classDigit
)

func classify(r rune) runeClass {
	switch {
	case unicode.Is(unicode.Hangul, r):
		return classHangul
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return classASCII
	case r >= '0' && r <= '9':
		return classDigit
	default:
		return classOther
	}
}

// tokenize splits the question into maximal same-class runs
func tokenize(text string) []string {
	var tokens []string
	var current []rune
	currentClass := classOther

	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, string(current))
			current = nil
		}
	}

	for _, r := range text {
		class := classify(r)
		if class == classOther {
			flush()
			currentClass = classOther
			continue
		}
		if class != currentClass {
			flush()
			currentClass = class
		}
		current = append(current, r)
	}
	flush()
	return tokens
}

// updateContext pushes the question into the bounded history
func (p *Processor) updateContext(userID, question string, category models.QuestionCategory) {
	p.mu.Lock()
	defer p.mu.Unlock()

	convContext, ok := p.contexts[userID]
	if !ok {
		convContext = &models.ConversationContext{}
		p.contexts[userID] = convContext
	}

	convContext.RecentQuestions = append(convContext.RecentQuestions, question)
	if len(convContext.RecentQuestions) > historyTurns {
		convContext.RecentQuestions = convContext.RecentQuestions[len(convContext.RecentQuestions)-historyTurns:]
	}
	if category != models.CategoryUnknown {
		convContext.CurrentTopic = string(category)
	}
	convContext.Depth++
}

func containsDocType(list []models.DocType, docType models.DocType) bool {
	for _, t := range list {
		if t == docType {
			return true
		}
	}
	return false
}
