package ragcontext

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

type fakeSearch struct {
	results   []*models.SearchResult
	err       error
	calls     []*models.SearchQuery
	emptyTill int
}

func (f *fakeSearch) SimilaritySearch(ctx context.Context, query *models.SearchQuery) ([]*models.SearchResult, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.calls) <= f.emptyTill {
		return nil, nil
	}
	return f.results, nil
}

func (f *fakeSearch) SearchByDocumentType(ctx context.Context, userID string, vector []float32, docType models.DocType, limit int) ([]*models.SearchResult, error) {
	return f.results, f.err
}

func (f *fakeSearch) MultiTypeSearch(ctx context.Context, userID string, vector []float32, limits map[models.DocType]int) (map[models.DocType][]*models.SearchResult, error) {
	return nil, f.err
}

func (f *fakeSearch) HybridSearch(ctx context.Context, query *models.SearchQuery, textQuery string) ([]*models.SearchResult, error) {
	return f.results, f.err
}

func (f *fakeSearch) GetSimilarDocuments(ctx context.Context, docID string, limit int) ([]*models.SearchResult, error) {
	return f.results, f.err
}

func (f *fakeSearch) BenchmarkQuery(ctx context.Context, query *models.SearchQuery, runs int) (*interfaces.BenchmarkStats, error) {
	return &interfaces.BenchmarkStats{}, nil
}

func (f *fakeSearch) OptimizeSearchPerformance() []string { return nil }

func testRAGConfig() *common.RAGConfig {
	return &common.RAGConfig{
		TokenBudget:       4000,
		RetrievalLimit:    10,
		ContextDocuments:  5,
		MinSimilarity:     0.5,
		FallbackThreshold: 0.3,
		MemoryTurns:       5,
	}
}

func personalityQuestion() *models.ProcessedQuestion {
	return &models.ProcessedQuestion{
		Cleaned:          "내 성향을 설명해줘?",
		Category:         models.CategoryPersonality,
		Intent:           models.IntentExplain,
		Keywords:         []string{"성향"},
		RequiredDocTypes: []models.DocType{models.DocTypePersonalityProfile},
		Embedding:        []float32{1, 0, 0},
	}
}

func personalityResult(id string, score float64) *models.SearchResult {
	return &models.SearchResult{
		Document: &models.Document{
			ID:          id,
			UserID:      "user-1",
			DocType:     models.DocTypePersonalityProfile,
			Content:     map[string]interface{}{"tendency_name": "창의형", "rank": 1, "score": 85.0},
			SummaryText: "1순위 성향 '창의형'입니다. 점수 85.0점.",
		},
		SimilarityScore: score,
	}
}

func TestBuildAssemblesPrompt(t *testing.T) {
	search := &fakeSearch{results: []*models.SearchResult{personalityResult("doc_1", 0.8)}}
	builder := NewBuilder(search, testRAGConfig(), common.GetLogger())

	ragContext, err := builder.Build(context.Background(), "user-1", personalityQuestion(), "")
	require.NoError(t, err)

	assert.Equal(t, TemplatePersonalityExplain, ragContext.Template)
	assert.Contains(t, ragContext.Prompt, "내 성향을 설명해줘?")
	assert.Contains(t, ragContext.Prompt, "창의형")
	assert.NotContains(t, ragContext.Prompt, "{question}")
	assert.NotContains(t, ragContext.Prompt, "{context_documents}")
	assert.NotContains(t, ragContext.Prompt, "{previous_context}")
	assert.False(t, ragContext.Truncated)
}

func TestBuildRetrievalFallbackChain(t *testing.T) {
	search := &fakeSearch{
		results:   []*models.SearchResult{personalityResult("doc_1", 0.35)},
		emptyTill: 2,
	}
	builder := NewBuilder(search, testRAGConfig(), common.GetLogger())

	ragContext, err := builder.Build(context.Background(), "user-1", personalityQuestion(), "")
	require.NoError(t, err)
	require.Len(t, search.calls, 3)

	assert.Equal(t, 0.5, search.calls[0].Threshold)
	assert.Equal(t, 0.3, search.calls[1].Threshold)
	assert.Equal(t, 0.3, search.calls[2].Threshold)
	assert.NotEmpty(t, search.calls[0].DocTypes)
	assert.Empty(t, search.calls[2].DocTypes)
	assert.Len(t, ragContext.Documents, 1)
}

func TestBuildSearchErrorYieldsEmptyContext(t *testing.T) {
	search := &fakeSearch{err: fmt.Errorf("database is locked")}
	builder := NewBuilder(search, testRAGConfig(), common.GetLogger())

	ragContext, err := builder.Build(context.Background(), "user-1", personalityQuestion(), "")
	require.NoError(t, err)
	assert.Empty(t, ragContext.Documents)
	assert.Contains(t, ragContext.Prompt, "검색된 자료가 없습니다")
}

func TestRescoreBonusesAndTopFive(t *testing.T) {
	results := make([]*models.SearchResult, 0, 7)
	for i := 0; i < 7; i++ {
		results = append(results, personalityResult(fmt.Sprintf("doc_%d", i), 0.5))
	}
	other := &models.SearchResult{
		Document: &models.Document{
			ID:          "doc_other",
			DocType:     models.DocTypeLearningStyle,
			Content:     map[string]interface{}{"style_name": "시각형"},
			SummaryText: "학습 스타일 문서입니다.",
		},
		SimilarityScore: 0.5,
	}
	results = append(results, other)

	builder := NewBuilder(&fakeSearch{}, testRAGConfig(), common.GetLogger())
	rescored := builder.rescore(results, personalityQuestion())

	require.Len(t, rescored, 5)
	// type match (+0.2) and keyword match (+0.1) beat the unmatched doc
	for _, r := range rescored {
		assert.Equal(t, models.DocTypePersonalityProfile, r.Document.DocType)
		assert.LessOrEqual(t, r.AdjustedScore, 1.0)
		assert.Greater(t, r.AdjustedScore, 0.5)
	}
	assert.Equal(t, 1, rescored[0].Rank)
}

func TestTokenBudgetDropsDocuments(t *testing.T) {
	config := testRAGConfig()
	config.TokenBudget = 400

	big := personalityResult("doc_big", 0.9)
	big.Document.Content["filler"] = strings.Repeat("가나다라마바사", 100)
	search := &fakeSearch{results: []*models.SearchResult{big, personalityResult("doc_2", 0.8)}}

	builder := NewBuilder(search, config, common.GetLogger())
	ragContext, err := builder.Build(context.Background(), "user-1", personalityQuestion(), "")
	require.NoError(t, err)

	assert.True(t, ragContext.Truncated)
	assert.LessOrEqual(t, ragContext.EstimatedTokens, 400)
}

func TestFollowUpIntentAlwaysUsesFollowUpTemplate(t *testing.T) {
	question := personalityQuestion()
	question.Intent = models.IntentFollowUp

	search := &fakeSearch{results: []*models.SearchResult{personalityResult("doc_1", 0.8)}}
	builder := NewBuilder(search, testRAGConfig(), common.GetLogger())

	ragContext, err := builder.Build(context.Background(), "user-1", question, "이전 질문: 내 성향은?")
	require.NoError(t, err)
	assert.Equal(t, TemplateFollowUp, ragContext.Template)
	assert.Contains(t, ragContext.Prompt, "[이전 대화]")
}

func TestPreferenceTemplateSelection(t *testing.T) {
	question := personalityQuestion()
	question.Category = models.CategoryPreferenceAnalysis
	question.RequiredDocTypes = []models.DocType{models.DocTypePreferenceAnalysis}

	prefResult := func(subType string) *models.SearchResult {
		return &models.SearchResult{
			Document: &models.Document{
				DocType:     models.DocTypePreferenceAnalysis,
				SummaryText: "선호도 문서입니다. 충분히 긴 요약 텍스트.",
				Content:     map[string]interface{}{"x": 1},
				Metadata:    models.DocumentMetadata{SubType: subType},
			},
			SimilarityScore: 0.8,
		}
	}

	assert.Equal(t, TemplatePreferenceExplain,
		selectTemplate(question, []*models.SearchResult{prefResult("preference_1")}))
	assert.Equal(t, TemplatePreferencePartial,
		selectTemplate(question, []*models.SearchResult{prefResult("partial_available")}))
	assert.Equal(t, TemplatePreferenceMissing,
		selectTemplate(question, []*models.SearchResult{prefResult("unavailable")}))
	assert.Equal(t, TemplatePreferenceMissing, selectTemplate(question, nil))
}
