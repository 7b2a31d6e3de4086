package embeddings

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

type fakeLLM struct {
	dimension int
	calls     int
	failures  int
	failErr   error
}

func (f *fakeLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, f.failErr
	}
	vector := make([]float32, f.dimension)
	for i := range vector {
		vector[i] = float32(len(text) % 7)
	}
	return vector, nil
}

func (f *fakeLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "ok", nil
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeLLM) GetMode() interfaces.LLMMode           { return interfaces.LLMModeGemini }
func (f *fakeLLM) Close() error                          { return nil }

func testEmbeddingConfig() *common.EmbeddingConfig {
	return &common.EmbeddingConfig{
		BatchSize:          5,
		RateLimitPerMinute: 6000,
		EnableCache:        true,
		CacheTTLHours:      24,
		CacheMaxEntries:    100,
		MaxTextChars:       30000,
		MaxRetries:         2,
	}
}

func TestGenerateEmbeddingCachesRepeatCalls(t *testing.T) {
	llm := &fakeLLM{dimension: 768}
	client := NewClient(llm, testEmbeddingConfig(), 768, "gemini-embedding-001", common.GetLogger())

	first, err := client.GenerateEmbedding(context.Background(), "성향 분석 요약")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 768, first.Dimensions)

	second, err := client.GenerateEmbedding(context.Background(), "성향 분석 요약")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, llm.calls)
}

func TestGenerateEmbeddingRejectsEmptyInput(t *testing.T) {
	llm := &fakeLLM{dimension: 768}
	client := NewClient(llm, testEmbeddingConfig(), 768, "gemini-embedding-001", common.GetLogger())

	_, err := client.GenerateEmbedding(context.Background(), "   \n\t  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
	assert.Equal(t, 0, llm.calls)
}

func TestGenerateEmbeddingRetriesTransientErrors(t *testing.T) {
	llm := &fakeLLM{
		dimension: 768,
		failures:  2,
		failErr:   fmt.Errorf("connection refused"),
	}
	client := NewClient(llm, testEmbeddingConfig(), 768, "gemini-embedding-001", common.GetLogger())

	result, err := client.GenerateEmbedding(context.Background(), "재시도 테스트")
	require.NoError(t, err)
	assert.Equal(t, 768, result.Dimensions)
	assert.Equal(t, 3, llm.calls)
}

func TestGenerateEmbeddingDoesNotRetryValidationErrors(t *testing.T) {
	llm := &fakeLLM{
		dimension: 768,
		failures:  5,
		failErr:   fmt.Errorf("invalid request payload"),
	}
	client := NewClient(llm, testEmbeddingConfig(), 768, "gemini-embedding-001", common.GetLogger())

	_, err := client.GenerateEmbedding(context.Background(), "검증 오류")
	require.Error(t, err)
	assert.Equal(t, 1, llm.calls)
}

func TestGenerateBatchDegradesToZeroVectors(t *testing.T) {
	llm := &fakeLLM{dimension: 768}
	client := NewClient(llm, testEmbeddingConfig(), 768, "gemini-embedding-001", common.GetLogger())

	results, err := client.GenerateBatch(context.Background(), []string{"첫 번째 문서", "", "세 번째 문서"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NotEqual(t, make([]float32, 768), results[0].Vector)
	assert.Equal(t, make([]float32, 768), results[1].Vector)
	assert.Equal(t, 768, results[1].Dimensions)
}

func TestEnrichDocumentsSetsEmbeddingAndModel(t *testing.T) {
	llm := &fakeLLM{dimension: 768}
	client := NewClient(llm, testEmbeddingConfig(), 768, "gemini-embedding-001", common.GetLogger())

	docs := []*models.Document{
		{ID: "doc_1", UserID: "user-1", DocType: models.DocTypePersonalityProfile, SearchableText: "성향 요약"},
		{ID: "doc_2", UserID: "user-1", DocType: models.DocTypeThinkingSkills, SearchableText: "사고력 요약"},
	}

	require.NoError(t, client.EnrichDocuments(context.Background(), docs))
	for _, doc := range docs {
		assert.Len(t, doc.Embedding, 768)
		assert.Equal(t, "gemini-embedding-001", doc.EmbeddingModel)
	}
}

func TestPreprocessTruncatesLongText(t *testing.T) {
	config := testEmbeddingConfig()
	config.MaxTextChars = 100
	llm := &fakeLLM{dimension: 768}
	client := NewClient(llm, config, 768, "gemini-embedding-001", common.GetLogger()).(*Client)

	cleaned := client.preprocess(strings.Repeat("가나다 ", 200))
	assert.LessOrEqual(t, len(cleaned), 100)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewCache(2, time.Hour)
	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})

	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Put("c", []float32{3})

	_, ok = cache.Get("b")
	assert.False(t, ok)
	_, ok = cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestCacheExpiresEntriesOnRead(t *testing.T) {
	cache := NewCache(10, time.Millisecond)
	cache.Put("k", []float32{1, 2, 3})
	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}
