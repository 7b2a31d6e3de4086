package ragcontext

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

const contextDocumentLimit = 5

// Builder retrieves relevant documents for a processed question and
// assembles the final prompt under the configured token budget.
type Builder struct {
	search interfaces.SearchService
	config *common.RAGConfig
	logger arbor.ILogger
}

// NewBuilder creates a context builder
func NewBuilder(search interfaces.SearchService, config *common.RAGConfig, logger arbor.ILogger) *Builder {
	return &Builder{search: search, config: config, logger: logger}
}

var _ interfaces.ContextBuilder = (*Builder)(nil)

// Build retrieves, re-scores and assembles the prompt. Search backend
// errors degrade to an empty context instead of propagating.
func (b *Builder) Build(ctx context.Context, userID string, question *models.ProcessedQuestion, previousContext string) (*interfaces.RAGContext, error) {
	results := b.retrieve(ctx, userID, question)
	results = b.rescore(results, question)

	template := selectTemplate(question, results)
	prompt, truncated := b.assemble(template, question, results, previousContext)

	ragContext := &interfaces.RAGContext{
		Prompt:          prompt,
		Template:        template,
		Documents:       results,
		EstimatedTokens: estimateTokens(prompt),
		Truncated:       truncated,
	}

	b.logger.Debug().
		Str("user_id", userID).
		Str("template", template).
		Int("documents", len(results)).
		Int("estimated_tokens", ragContext.EstimatedTokens).
		Msg("RAG context assembled")

	return ragContext, nil
}

// retrieve searches with progressively relaxed parameters: configured
// threshold, then the fallback threshold, then without the type filter.
func (b *Builder) retrieve(ctx context.Context, userID string, question *models.ProcessedQuestion) []*models.SearchResult {
	if len(question.Embedding) == 0 {
		return nil
	}

	attempt := func(threshold float64, docTypes []models.DocType) []*models.SearchResult {
		results, err := b.search.SimilaritySearch(ctx, &models.SearchQuery{
			UserID:    userID,
			Vector:    question.Embedding,
			Threshold: threshold,
			Limit:     b.config.RetrievalLimit,
			DocTypes:  docTypes,
		})
		if err != nil {
			b.logger.Warn().Err(err).Str("user_id", userID).Msg("Document retrieval failed")
			return nil
		}
		return results
	}

	results := attempt(b.config.MinSimilarity, question.RequiredDocTypes)
	if len(results) == 0 {
		results = attempt(b.config.FallbackThreshold, question.RequiredDocTypes)
	}
	if len(results) == 0 && len(question.RequiredDocTypes) > 0 {
		results = attempt(b.config.FallbackThreshold, nil)
	}
	return results
}

// rescore adjusts similarity with type, keyword and richness bonuses,
// clamps to [0, 1] and keeps the top documents.
func (b *Builder) rescore(results []*models.SearchResult, question *models.ProcessedQuestion) []*models.SearchResult {
	required := make(map[models.DocType]bool, len(question.RequiredDocTypes))
	for _, t := range question.RequiredDocTypes {
		required[t] = true
	}

	for _, r := range results {
		score := r.SimilarityScore

		if required[r.Document.DocType] {
			score += 0.2
		}

		keywordBonus := 0.0
		for _, keyword := range question.Keywords {
			if strings.Contains(r.Document.SummaryText, keyword) {
				keywordBonus += 0.1
				if keywordBonus >= 0.3 {
					break
				}
			}
		}
		score += keywordBonus

		richness := float64(len(r.Document.ContentJSON())) / 1000
		if richness > 0.2 {
			richness = 0.2
		}
		score += richness

		if score > 1 {
			score = 1
		}
		if score < 0 {
			score = 0
		}
		r.AdjustedScore = score
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AdjustedScore > results[j].AdjustedScore
	})

	limit := contextDocumentLimit
	if b.config.ContextDocuments > 0 {
		limit = b.config.ContextDocuments
	}
	if len(results) > limit {
		results = results[:limit]
	}
	for i, r := range results {
		r.Rank = i + 1
	}
	return results
}

// assemble renders the template and enforces the token budget: drop the
// lowest-ranked document, then degrade to summaries only, then fall back
// to the bare question.
func (b *Builder) assemble(template string, question *models.ProcessedQuestion,
	results []*models.SearchResult, previousContext string) (string, bool) {

	budget := b.config.TokenBudget
	if budget <= 0 {
		budget = 4000
	}

	docs := results
	truncated := false
	for {
		prompt := renderTemplate(template, question.Cleaned, formatDocuments(docs, false), previousContext)
		if estimateTokens(prompt) <= budget {
			return prompt, truncated
		}
		if len(docs) == 0 {
			break
		}
		docs = docs[:len(docs)-1]
		truncated = true
	}

	prompt := renderTemplate(template, question.Cleaned, formatDocuments(results, true), previousContext)
	if estimateTokens(prompt) <= budget {
		return prompt, true
	}

	prompt = renderTemplate(template, question.Cleaned,
		"(분량 제한으로 참고 자료를 포함하지 못했습니다.)", "")
	return prompt, true
}

// renderTemplate substitutes the named placeholders
func renderTemplate(name, question, contextDocuments, previousContext string) string {
	body, ok := templateBodies[name]
	if !ok {
		body = templateDefault
	}

	previousBlock := ""
	if previousContext != "" {
		previousBlock = "[이전 대화]\n" + previousContext + "\n\n"
	}

	out := strings.ReplaceAll(body, "{previous_context}", previousBlock)
	out = strings.ReplaceAll(out, "{context_documents}", contextDocuments)
	out = strings.ReplaceAll(out, "{question}", question)
	return out
}

// formatDocuments renders the ordered context block. summaryOnly drops
// key points and content JSON to shrink the prompt.
func formatDocuments(results []*models.SearchResult, summaryOnly bool) string {
	if len(results) == 0 {
		return "(검색된 자료가 없습니다.)"
	}

	var b strings.Builder
	for i, r := range results {
		doc := r.Document
		fmt.Fprintf(&b, "--- 자료 %d: %s / %s ---\n", i+1, doc.DocType, doc.Metadata.SubType)
		b.WriteString("요약: " + doc.SummaryText + "\n")
		if summaryOnly {
			b.WriteString("\n")
			continue
		}
		for _, point := range keyPoints(doc) {
			b.WriteString("- " + point + "\n")
		}
		b.WriteString("내용: " + doc.ContentJSON() + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// estimateTokens is a conservative length-based estimate
func estimateTokens(text string) int {
	return len(text) / 3
}
