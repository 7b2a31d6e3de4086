package transform

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/models"
	"github.com/aptihub/chatetl/internal/services/metrics"
)

func newTestTransformer() *Transformer {
	return NewTransformer(metrics.NewRegistry(), common.GetLogger())
}

func fullPreferenceRows() map[string][]models.QueryRow {
	return map[string][]models.QueryRow{
		"imagePreferenceStatsQuery": {
			{"total_image_count": 120, "response_count": 96, "response_rate": 85.0},
		},
		"preferenceDataQuery": {
			{"preference_name": "실내 활동 선호", "rank": 1, "response_rate": 85.0, "description": "조용한 환경을 선호합니다."},
			{"preference_name": "창의적 활동 선호", "rank": 2, "response_rate": 78.0, "description": "새로운 아이디어를 즐깁니다."},
		},
		"preferenceJobsQuery": {
			{"preference_name": "실내 활동 선호", "preference_type": "rimg1", "jo_name": "데이터 분석가", "jo_outline": "데이터 분석 업무", "majors": "통계학"},
			{"preference_name": "창의적 활동 선호", "preference_type": "rimg2", "jo_name": "디자이너", "jo_outline": "창의 설계 업무", "majors": "디자인"},
		},
	}
}

func preferenceDocsBySubType(docs []*models.Document) map[string]*models.Document {
	out := make(map[string]*models.Document)
	for _, doc := range docs {
		if doc.DocType == models.DocTypePreferenceAnalysis {
			out[doc.Metadata.SubType] = doc
		}
	}
	return out
}

func TestCompletePreferenceFlow(t *testing.T) {
	docs := newTestTransformer().chunkPreferences("user-1", fullPreferenceRows())
	bySubType := preferenceDocsBySubType(docs)

	summary := bySubType["completion_summary"]
	require.NotNil(t, summary)
	// 85% response rate (35) + 2 preferences (15) + 2 jobs (15)
	assert.Equal(t, 65, summary.Content["quality_score"])

	stats := bySubType["test_stats"]
	require.NotNil(t, stats)
	assert.Equal(t, "완료", stats.Content["completion_status"])

	require.NotNil(t, bySubType["preferences_overview"])

	pref1 := bySubType["preference_1"]
	require.NotNil(t, pref1)
	assert.Equal(t, "강함", pref1.Content["preference_strength"])

	pref2 := bySubType["preference_2"]
	require.NotNil(t, pref2)
	assert.Equal(t, "보통", pref2.Content["preference_strength"])

	require.NotNil(t, bySubType["jobs_overview"])
	require.NotNil(t, bySubType["jobs_실내 활동 선호"])
	require.NotNil(t, bySubType["jobs_창의적 활동 선호"])
}

func TestNoPreferenceDataEmitsSingleFallback(t *testing.T) {
	docs := newTestTransformer().chunkPreferences("user-1", map[string][]models.QueryRow{})

	require.Len(t, docs, 1)
	doc := docs[0]
	assert.Equal(t, "unavailable", doc.Metadata.SubType)
	assert.Equal(t, models.CompletionNone, doc.Metadata.CompletionLevel)

	missing, ok := doc.Content["missing_components"].([]string)
	require.True(t, ok)
	assert.Len(t, missing, 3)
	assert.Equal(t, true, doc.Content["has_alternatives"])
	assert.NotEmpty(t, doc.Content["alternatives"])

	availability, ok := doc.Content["data_availability"].(map[string]string)
	require.True(t, ok)
	for _, state := range availability {
		assert.Contains(t, []string{"이용 가능", "처리 중"}, state)
	}
}

func TestPartialPreferenceData(t *testing.T) {
	rows := map[string][]models.QueryRow{
		"preferenceDataQuery": {
			{"preference_name": "실내 활동 선호", "rank": 1, "response_rate": 85.0},
		},
	}
	docs := newTestTransformer().chunkPreferences("user-1", rows)
	bySubType := preferenceDocsBySubType(docs)

	partial := bySubType["partial_available"]
	require.NotNil(t, partial)
	assert.InDelta(t, 33.3, partial.Content["completion_percentage"].(float64), 0.5)

	require.NotNil(t, bySubType["preferences_overview"])
	require.NotNil(t, bySubType["preference_1"])
	assert.Nil(t, bySubType["test_stats"])
	assert.Nil(t, bySubType["jobs_overview"])
}

func TestTransformAllCoversEveryCategory(t *testing.T) {
	rows := fullPreferenceRows()
	rows["userProfileQuery"] = []models.QueryRow{
		{"user_name": "김하늘", "test_type": "종합적성검사", "status": "completed"},
	}
	rows["tendencyQuery"] = []models.QueryRow{
		{"tendency_name": "창의형", "rank": 1, "score": 85.0, "percentile": 92.0},
		{"tendency_name": "탐구형", "rank": 2, "score": 80.0, "percentile": 88.0},
	}
	rows["topTendencyQuery"] = rows["tendencyQuery"]
	rows["thinkingSkillsQuery"] = []models.QueryRow{
		{"skill_name": "논리 추론", "score": 88.0, "percentile": 90.0},
	}
	rows["careerRecommendationQuery"] = []models.QueryRow{
		{"jo_name": "소프트웨어 엔지니어", "match_rate": 91.0, "reason": "분석적 성향과 잘 맞습니다.", "majors": "컴퓨터공학"},
	}

	docs := newTestTransformer().TransformAll(context.Background(), "user-1", rows)

	types := make(map[models.DocType]bool)
	for _, doc := range docs {
		types[doc.DocType] = true
	}
	for _, docType := range models.AllDocTypes {
		assert.True(t, types[docType], "missing documents for %s", docType)
	}
}

func TestMissingCategoryProducesUnavailableDocument(t *testing.T) {
	docs := newTestTransformer().TransformAll(context.Background(), "user-1", map[string][]models.QueryRow{})

	bySubType := make(map[models.DocType]string)
	for _, doc := range docs {
		bySubType[doc.DocType] = doc.Metadata.SubType
	}
	assert.Equal(t, "unavailable", bySubType[models.DocTypeThinkingSkills])
	assert.Equal(t, "unavailable", bySubType[models.DocTypeLearningStyle])
}

func TestSearchableTextIncludesHypotheticalQuestions(t *testing.T) {
	docs := newTestTransformer().chunkPreferences("user-1", fullPreferenceRows())

	for _, doc := range docs {
		questions := doc.Metadata.HypotheticalQuestions
		require.NotEmpty(t, questions, "sub type %s", doc.Metadata.SubType)
		assert.LessOrEqual(t, len(questions), 5)
		assert.True(t, strings.HasPrefix(doc.SearchableText, doc.SummaryText))
		for _, q := range questions {
			assert.Contains(t, doc.SearchableText, q)
		}
	}
}

func TestChunkerPanicDoesNotEscapeTransformAll(t *testing.T) {
	rows := map[string][]models.QueryRow{
		"imagePreferenceStatsQuery": {nil},
	}

	transformer := newTestTransformer()
	assert.NotPanics(t, func() {
		transformer.TransformAll(context.Background(), "user-1", rows)
	})
}

func TestQualityScoreLadders(t *testing.T) {
	assert.Equal(t, 100, qualityScore(95, 9, 20))
	assert.Equal(t, 10, qualityScore(30, 0, 0))
	assert.Equal(t, 65, qualityScore(85, 2, 2))
	assert.Equal(t, 40+25+20, qualityScore(90, 5, 5))
}

func TestCompletionStatusBoundaries(t *testing.T) {
	assert.Equal(t, "완료", completionStatus(80))
	assert.Equal(t, "부분완료", completionStatus(79.9))
	assert.Equal(t, "부분완료", completionStatus(50))
	assert.Equal(t, "미완료", completionStatus(49.9))
}
