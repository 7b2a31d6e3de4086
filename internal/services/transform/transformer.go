package transform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// Transformer turns successful query rows into small, topically-focused
// documents. Each coarse category has its own chunker; a chunker that
// panics is logged and skipped so the remaining categories still produce
// output.
type Transformer struct {
	metrics interfaces.MetricsRegistry
	logger  arbor.ILogger
}

// NewTransformer creates a document transformer
func NewTransformer(registry interfaces.MetricsRegistry, logger arbor.ILogger) *Transformer {
	return &Transformer{metrics: registry, logger: logger}
}

var _ interfaces.Transformer = (*Transformer)(nil)

type chunker struct {
	name string
	fn   func(userID string, rows map[string][]models.QueryRow) []*models.Document
}

// TransformAll runs every chunker and aggregates the produced documents.
// It never panics out of this call.
func (t *Transformer) TransformAll(ctx context.Context, userID string, rows map[string][]models.QueryRow) []*models.Document {
	chunkers := []chunker{
		{"user_profile", t.chunkUserProfile},
		{"personality", t.chunkPersonality},
		{"thinking_skills", t.chunkThinkingSkills},
		{"career_recommendations", t.chunkCareerRecommendations},
		{"competency", t.chunkCompetencies},
		{"learning_style", t.chunkLearningStyle},
		{"preference", t.chunkPreferences},
	}

	var docs []*models.Document
	for _, c := range chunkers {
		if ctx.Err() != nil {
			break
		}
		docs = append(docs, t.runChunker(c, userID, rows)...)
	}

	distribution := make(map[models.DocType]int)
	for _, doc := range docs {
		distribution[doc.DocType]++
	}
	t.logger.Info().
		Str("user_id", userID).
		Int("documents", len(docs)).
		Str("distribution", fmt.Sprintf("%v", distribution)).
		Msg("Document transformation finished")

	return docs
}

// runChunker isolates per-category panics
func (t *Transformer) runChunker(c chunker, userID string, rows map[string][]models.QueryRow) (docs []*models.Document) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().
				Str("chunker", c.name).
				Str("user_id", userID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Chunker panicked, skipping category")
			docs = nil
		}
	}()
	return c.fn(userID, rows)
}

// newDocument builds a document with generated id, timestamps and the
// searchable text derived from the summary and hypothetical questions.
func (t *Transformer) newDocument(userID string, docType models.DocType, subType string,
	level models.CompletionLevel, content map[string]interface{}, summary string, sources []string) *models.Document {

	now := time.Now().UTC()
	questions := hypotheticalQuestions(docType, subType, content)

	searchable := summary
	if len(questions) > 0 {
		searchable = summary + "\n" + strings.Join(questions, "\n")
	}

	return &models.Document{
		ID:             common.NewDocumentID(),
		UserID:         userID,
		DocType:        docType,
		Content:        content,
		SummaryText:    summary,
		SearchableText: searchable,
		Metadata: models.DocumentMetadata{
			SubType:               subType,
			CompletionLevel:       level,
			CreatedAt:             now,
			DataSources:           sources,
			HypotheticalQuestions: questions,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
