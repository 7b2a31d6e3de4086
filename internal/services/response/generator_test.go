package response

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
	"github.com/aptihub/chatetl/internal/services/metrics"
	"github.com/aptihub/chatetl/internal/services/ragcontext"
)

type fakeChatLLM struct {
	answer   string
	failures int
	failErr  error
	calls    int
}

func (f *fakeChatLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("not supported")
}

func (f *fakeChatLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return "", f.failErr
	}
	return f.answer, nil
}

func (f *fakeChatLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeChatLLM) GetMode() interfaces.LLMMode           { return interfaces.LLMModeGemini }
func (f *fakeChatLLM) Close() error                          { return nil }

func newTestGenerator(llm interfaces.LLMService) *Generator {
	config := &common.RAGConfig{
		TokenBudget:       4000,
		RetrievalLimit:    10,
		ContextDocuments:  5,
		MinSimilarity:     0.5,
		FallbackThreshold: 0.3,
		MemoryTurns:       5,
	}
	return NewGenerator(llm, config, metrics.NewRegistry(), common.GetLogger())
}

func testQuestion(category models.QuestionCategory, cleaned string) *models.ProcessedQuestion {
	return &models.ProcessedQuestion{
		Cleaned:  cleaned,
		Category: category,
		Intent:   models.IntentExplain,
	}
}

func testRAGContext(template string, docs ...*models.SearchResult) *interfaces.RAGContext {
	return &interfaces.RAGContext{
		Prompt:    "프롬프트",
		Template:  template,
		Documents: docs,
	}
}

func prefDoc(subType string) *models.SearchResult {
	return &models.SearchResult{
		Document: &models.Document{
			DocType:     models.DocTypePreferenceAnalysis,
			SummaryText: "선호도 요약",
			Metadata:    models.DocumentMetadata{SubType: subType},
		},
	}
}

func otherDoc() *models.SearchResult {
	return &models.SearchResult{
		Document: &models.Document{
			DocType:     models.DocTypePersonalityProfile,
			SummaryText: "1순위 성향 '창의형'입니다. 점수 85.0점.",
		},
	}
}

func TestGenerateHappyPath(t *testing.T) {
	llm := &fakeChatLLM{answer: "당신의 1순위 성향은 창의형입니다. 점수는 85점으로 상위권이며 새로운 아이디어를 내는 활동에서 강점을 보입니다. 관련 직업으로는 기획자, 디자이너 등이 있으며 이러한 직무에서 성향이 잘 발휘될 수 있습니다."}
	generator := newTestGenerator(llm)

	question := testQuestion(models.CategoryPersonality, "내 성향을 알려줘?")
	resp, err := generator.Generate(context.Background(), "user-1",
		question, testRAGContext(ragcontext.TemplatePersonalityExplain, otherDoc()))
	require.NoError(t, err)

	assert.Equal(t, models.QualityExcellent, resp.Quality)
	assert.InDelta(t, 0.95, resp.Confidence, 1e-9)
	assert.False(t, resp.Fallback)
	assert.Equal(t, 1, resp.DocumentsUsed)
}

func TestPreferenceMissingShortCircuitsLLM(t *testing.T) {
	llm := &fakeChatLLM{answer: "호출되면 안 됩니다"}
	generator := newTestGenerator(llm)

	question := testQuestion(models.CategoryPreferenceAnalysis, "내 선호도 결과를 알려줘?")
	resp, err := generator.Generate(context.Background(), "user-1",
		question, testRAGContext(ragcontext.TemplatePreferenceExplain, prefDoc("unavailable"), otherDoc()))
	require.NoError(t, err)

	assert.Equal(t, 0, llm.calls)
	assert.True(t, resp.Fallback)
	assert.Equal(t, models.QualityAcceptable, resp.Quality)
	assert.Equal(t, 0.6, resp.Confidence)
	assert.Contains(t, resp.Answer, "준비되지 않았습니다")
	assert.Contains(t, resp.Answer, "💡 대안 분석 방법")
}

func TestPreferenceMissingTemplateStillCallsLLM(t *testing.T) {
	llm := &fakeChatLLM{answer: "선호도 검사 데이터가 아직 준비되지 않았습니다. 성향 분석 결과를 먼저 확인해 보시는 것을 추천드립니다. 성향 분석은 이미 완료되어 바로 확인하실 수 있습니다."}
	generator := newTestGenerator(llm)

	question := testQuestion(models.CategoryPreferenceAnalysis, "내 선호도 결과를 알려줘?")
	_, err := generator.Generate(context.Background(), "user-1",
		question, testRAGContext(ragcontext.TemplatePreferenceMissing))
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls)
}

func TestHallucinationDisclaimerOnPartialData(t *testing.T) {
	llm := &fakeChatLLM{answer: "당신의 1순위 선호는 실내 활동 선호이며 응답률 85%입니다. 확실히 실내 활동을 좋아하시는 것으로 보이며 관련 직업 탐색을 추천드립니다."}
	generator := newTestGenerator(llm)

	question := testQuestion(models.CategoryPreferenceAnalysis, "내 선호도 결과를 알려줘?")
	resp, err := generator.Generate(context.Background(), "user-1",
		question, testRAGContext(ragcontext.TemplatePreferencePartial, prefDoc("partial_available")))
	require.NoError(t, err)

	assert.Contains(t, resp.Answer, "⚠️")
	assert.Contains(t, resp.Answer, "더 완전한 분석을 위한 팁")
}

func TestLLMFailureFallback(t *testing.T) {
	llm := &fakeChatLLM{failures: 10, failErr: fmt.Errorf("connection refused")}
	registry := metrics.NewRegistry()
	generator := NewGenerator(llm, &common.RAGConfig{MemoryTurns: 5}, registry, common.GetLogger())

	question := testQuestion(models.CategoryCareerRecommendations, "추천 직업을 알려줘?")
	resp, err := generator.Generate(context.Background(), "user-1",
		question, testRAGContext(ragcontext.TemplateCareerRecommend))
	require.NoError(t, err)

	assert.True(t, resp.Fallback)
	assert.Equal(t, models.QualityPoor, resp.Quality)
	assert.Equal(t, 0.1, resp.Confidence)
	assert.Contains(t, resp.Answer, "진로 추천")
	assert.Equal(t, 3, llm.calls)
	assert.Equal(t, 1.0, registry.CounterValue(metrics.MetricRAGResponseErrors, nil))
}

func TestConversationMemoryBoundedAndRendered(t *testing.T) {
	memory := newConversationMemory(3)
	for i := 1; i <= 5; i++ {
		memory.record("user-1", fmt.Sprintf("질문 %d", i), fmt.Sprintf("답변 %d", i), "PERSONALITY")
	}

	assert.Equal(t, 3, memory.turnCount("user-1"))
	block := memory.previousContext("user-1")
	assert.NotContains(t, block, "질문 1")
	assert.Contains(t, block, "질문 5")
	assert.Contains(t, block, "A: 답변 5")
	assert.Empty(t, memory.previousContext("user-2"))
}

func TestPostProcessStripsMarkdown(t *testing.T) {
	answer := "# 제목\n\n**강조된** 답변이며 *기울임*도 있습니다 .\n\n- 항목 하나\n- 항목 둘"
	processed := postProcess(answer)

	assert.NotContains(t, processed, "#")
	assert.NotContains(t, processed, "**")
	assert.NotContains(t, processed, "- ")
	assert.Contains(t, processed, "강조된")
	assert.Contains(t, processed, "항목 하나")
	assert.Contains(t, processed, "있습니다.")
}

func TestScoreQualityGrades(t *testing.T) {
	assert.Equal(t, models.QualityPoor, scoreQuality(""))
	assert.Equal(t, models.QualityPoor, scoreQuality("short answer"))
	assert.Equal(t, models.QualityPoor,
		scoreQuality("죄송합니다. 정보가 없어 답변을 드릴 수 없습니다. 미안합니다. 다시 시도해 주세요."))

	long := strings.Repeat("좋은 답변입니다 ", 20)
	assert.Equal(t, models.QualityGood, scoreQuality(long))
	assert.Equal(t, models.QualityExcellent, scoreQuality(long+" 점수는 85점입니다"))
	assert.Equal(t, models.QualityAcceptable, scoreQuality("간단한 한국어 답변입니다 확인 바랍니다"))
}

func TestDetectHallucinations(t *testing.T) {
	patterns, severity := detectHallucinations("1순위 선호는 응답률 85%로 확실히 강합니다")
	assert.Contains(t, patterns, "percentage_claim")
	assert.Contains(t, patterns, "rank_claim")
	assert.Contains(t, patterns, "definitive_claim")
	assert.Equal(t, models.SeverityCritical, severity)

	patterns, _ = detectHallucinations("데이터가 준비되면 알려드리겠습니다")
	assert.Empty(t, patterns)
}

func TestPreferenceAvailabilityVerdicts(t *testing.T) {
	availability, quality := preferenceAvailability(nil)
	assert.Equal(t, models.DataMissing, availability)
	assert.Equal(t, models.DataQualityNone, quality)

	availability, _ = preferenceAvailability([]*models.SearchResult{prefDoc("unavailable")})
	assert.Equal(t, models.DataMissing, availability)

	availability, quality = preferenceAvailability([]*models.SearchResult{prefDoc("preference_1")})
	assert.Equal(t, models.DataPartial, availability)
	assert.Equal(t, models.DataQualityLow, quality)

	availability, quality = preferenceAvailability([]*models.SearchResult{
		prefDoc("completion_summary"), prefDoc("preferences_overview"), prefDoc("preference_1"),
	})
	assert.Equal(t, models.DataComplete, availability)
	assert.Equal(t, models.DataQualityHigh, quality)
}
