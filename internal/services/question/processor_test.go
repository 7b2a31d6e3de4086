package question

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

type fakeEmbedder struct {
	dimension int
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) (*interfaces.EmbeddingResult, error) {
	return &interfaces.EmbeddingResult{
		Vector:     make([]float32, f.dimension),
		Dimensions: f.dimension,
	}, nil
}

func (f *fakeEmbedder) GenerateBatch(ctx context.Context, texts []string) ([]*interfaces.EmbeddingResult, error) {
	out := make([]*interfaces.EmbeddingResult, len(texts))
	for i := range texts {
		out[i], _ = f.GenerateEmbedding(ctx, texts[i])
	}
	return out, nil
}

func (f *fakeEmbedder) EnrichDocuments(ctx context.Context, docs []*models.Document) error {
	return nil
}

func (f *fakeEmbedder) Dimension() int                            { return f.dimension }
func (f *fakeEmbedder) VerifyDimension(ctx context.Context) error { return nil }
func (f *fakeEmbedder) IsAvailable(ctx context.Context) bool      { return true }

func newTestProcessor() *Processor {
	return NewProcessor(&fakeEmbedder{dimension: 768}, common.GetLogger())
}

func TestProcessRejectsInvalidInput(t *testing.T) {
	processor := newTestProcessor()

	_, err := processor.Process(context.Background(), "user-1", "아")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 characters")

	_, err = processor.Process(context.Background(), "user-1", strings.Repeat("가", 501))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 500")

	_, err = processor.Process(context.Background(), "user-1", "? ! .")
	require.Error(t, err)
}

func TestProcessNormalizesText(t *testing.T) {
	processor := newTestProcessor()

	processed, err := processor.Process(context.Background(), "user-1", "내  성향이   뭐야？")
	require.NoError(t, err)
	assert.Equal(t, "내 성향이 뭐야?", processed.Cleaned)
}

func TestProcessAppendsTerminalPunctuation(t *testing.T) {
	processed, err := newTestProcessor().Process(context.Background(), "user-1", "내 성향 알려줘")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(processed.Cleaned, "?"))
}

func TestCategorizePersonality(t *testing.T) {
	category, confidence := categorize("내 성향과 성격 유형을 설명해줘")
	assert.Equal(t, models.CategoryPersonality, category)
	assert.Greater(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestCategorizePreferenceCoreTermsDoubleWeight(t *testing.T) {
	category, _ := categorize("이미지 선호도 결과를 알려줘")
	assert.Equal(t, models.CategoryPreferenceAnalysis, category)
}

func TestCategorizeUnknown(t *testing.T) {
	category, confidence := categorize("오늘 날씨 어때")
	assert.Equal(t, models.CategoryUnknown, category)
	assert.Equal(t, 0.0, confidence)
}

func TestDetectIntentRecommend(t *testing.T) {
	intent, _ := detectIntent("나에게 맞는 직업을 추천해줘", nil)
	assert.Equal(t, models.IntentRecommend, intent)
}

func TestFollowUpForcedWithActiveContext(t *testing.T) {
	convContext := &models.ConversationContext{Depth: 2}
	intent, confidence := detectIntent("그럼 그 직업에 대해 더 자세히 알려줘", convContext)
	assert.Equal(t, models.IntentFollowUp, intent)
	assert.Equal(t, 0.8, confidence)

	// same question with no prior turns is not a follow-up
	intent, _ = detectIntent("그럼 그 직업에 대해 더 자세히 알려줘", &models.ConversationContext{})
	assert.NotEqual(t, models.IntentFollowUp, intent)
}

func TestExtractKeywordsFiltersAndCaps(t *testing.T) {
	keywords := extractKeywords("내 성향과 직업 추천 결과 123 ABC 알려줘")
	assert.NotContains(t, keywords, "내")
	assert.NotContains(t, keywords, "알려줘")
	assert.Contains(t, keywords, "성향과")
	assert.Contains(t, keywords, "123")
	assert.Contains(t, keywords, "ABC")
	assert.LessOrEqual(t, len(keywords), 10)
}

func TestCompareIntentAddsCompetencyDocType(t *testing.T) {
	processed, err := newTestProcessor().Process(context.Background(), "user-1", "내 성향과 사고력을 비교해줘")
	require.NoError(t, err)
	assert.Equal(t, models.IntentCompare, processed.Intent)
	assert.Contains(t, processed.RequiredDocTypes, models.DocTypeCompetencyAnalysis)
}

func TestConversationContextBoundedHistory(t *testing.T) {
	processor := newTestProcessor()

	questions := []string{
		"내 성향을 알려줘",
		"내 사고력 점수는 어때",
		"추천 직업이 뭐야",
		"학습 방법을 알려줘",
		"역량 분석 결과는",
		"통계 정보를 알려줘",
	}
	for _, q := range questions {
		_, err := processor.Process(context.Background(), "user-1", q)
		require.NoError(t, err)
	}

	convContext := processor.Context("user-1")
	assert.Len(t, convContext.RecentQuestions, 5)
	assert.Equal(t, 6, convContext.Depth)
	assert.NotContains(t, convContext.RecentQuestions, "내 성향을 알려줘?")
	assert.Equal(t, string(models.CategoryStatisticalInfo), convContext.CurrentTopic)
}

func TestProcessSetsEmbedding(t *testing.T) {
	processed, err := newTestProcessor().Process(context.Background(), "user-1", "내 성향을 알려줘")
	require.NoError(t, err)
	assert.Len(t, processed.Embedding, 768)
}
