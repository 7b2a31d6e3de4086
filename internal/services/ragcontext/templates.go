package ragcontext

import (
	"github.com/aptihub/chatetl/internal/models"
)

// Prompt templates. Placeholders: {question}, {context_documents},
// {previous_context}. The previous-context placeholder is replaced with
// an empty string when there is no conversation history.
const (
	templatePersonalityExplain = `당신은 적성검사 결과를 설명하는 진로 상담 전문가입니다.
{previous_context}아래 성향 분석 자료를 바탕으로 사용자의 질문에 답변하세요.
자료에 없는 내용은 추측하지 마세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templatePersonalityCompare = `당신은 적성검사 결과를 설명하는 진로 상담 전문가입니다.
{previous_context}아래 자료를 바탕으로 사용자가 요청한 항목들을 비교하여 설명하세요.
각 항목의 점수와 순위를 명확히 대조하고, 자료에 없는 내용은 추측하지 마세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templateCareerRecommend = `당신은 진로 추천 전문가입니다.
{previous_context}아래 검사 결과를 바탕으로 사용자에게 맞는 직업을 추천하고 그 이유를 설명하세요.
추천 근거는 반드시 자료의 적합도와 성향 정보에 기반해야 합니다.

[참고 자료]
{context_documents}

[질문]
{question}`

	templateCareerExplain = `당신은 진로 상담 전문가입니다.
{previous_context}아래 진로 추천 자료를 바탕으로 사용자의 질문에 답변하세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templateThinkingAnalyze = `당신은 인지 능력 분석 전문가입니다.
{previous_context}아래 사고력 검사 결과를 바탕으로 사용자의 강점과 보완점을 분석하세요.
점수와 백분위를 근거로 제시하세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templateLearningRecommend = `당신은 학습 코칭 전문가입니다.
{previous_context}아래 학습 스타일 자료를 바탕으로 사용자에게 맞는 학습 방법을 제안하세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templateCompetencyAnalyze = `당신은 역량 분석 전문가입니다.
{previous_context}아래 역량 분석 자료를 바탕으로 사용자의 질문에 답변하세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templateGeneralCompare = `당신은 적성검사 결과 해석 전문가입니다.
{previous_context}아래 자료를 바탕으로 사용자가 요청한 영역들을 종합적으로 비교 분석하세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templateStatisticalInfo = `당신은 적성검사 결과 해석 전문가입니다.
{previous_context}아래 자료의 수치(점수, 백분위, 순위)를 정확히 인용하여 답변하세요.
자료에 없는 수치는 언급하지 마세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templateFollowUp = `당신은 적성검사 결과를 설명하는 진로 상담 전문가입니다.
이전 대화에 이어지는 추가 질문입니다.
{previous_context}아래 자료를 참고하여 이전 답변과 일관성 있게 답변하세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templateDefault = `당신은 적성검사 결과를 설명하는 진로 상담 전문가입니다.
{previous_context}아래 자료를 바탕으로 사용자의 질문에 친절하게 답변하세요.
자료에 없는 내용은 추측하지 마세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templatePreferenceExplain = `당신은 이미지 선호도 검사 해석 전문가입니다.
{previous_context}아래 선호도 분석 자료를 바탕으로 사용자의 질문에 답변하세요.
자료에 명시된 선호 항목, 순위, 응답률만 인용하세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templatePreferencePartial = `당신은 이미지 선호도 검사 해석 전문가입니다.
{previous_context}선호도 데이터가 일부만 준비된 상태입니다. 아래 자료에 있는 내용만 설명하고,
없는 부분은 준비 중임을 안내하세요. 구체적인 수치를 지어내지 마세요.

[참고 자료]
{context_documents}

[질문]
{question}`

	templatePreferenceMissing = `당신은 이미지 선호도 검사 해석 전문가입니다.
{previous_context}선호도 검사 데이터가 아직 준비되지 않았습니다.
데이터가 없다는 사실을 먼저 안내하고, 아래 자료에 있는 다른 분석 결과를 대안으로 제시하세요.
선호도에 대한 구체적인 수치나 순위를 절대 언급하지 마세요.

[참고 자료]
{context_documents}

[질문]
{question}`
)

// template names exposed in the RAGContext for the guardrail layer
const (
	TemplatePersonalityExplain = "personality-explain"
	TemplatePersonalityCompare = "personality-compare"
	TemplateCareerRecommend    = "career-recommend"
	TemplateCareerExplain      = "career-explain"
	TemplateThinkingAnalyze    = "thinking-skills-analyze"
	TemplateThinkingCompare    = "thinking-skills-compare"
	TemplateLearningRecommend  = "learning-style-recommend"
	TemplateCompetencyAnalyze  = "competency-analyze"
	TemplateGeneralCompare     = "general-compare"
	TemplateStatisticalInfo    = "statistical-info"
	TemplateFollowUp           = "follow-up"
	TemplateDefault            = "default"
	TemplatePreferenceExplain  = "preference-explain"
	TemplatePreferencePartial  = "preference-partial"
	TemplatePreferenceMissing  = "preference-missing"
)

var templateBodies = map[string]string{
	TemplatePersonalityExplain: templatePersonalityExplain,
	TemplatePersonalityCompare: templatePersonalityCompare,
	TemplateCareerRecommend:    templateCareerRecommend,
	TemplateCareerExplain:      templateCareerExplain,
	TemplateThinkingAnalyze:    templateThinkingAnalyze,
	TemplateThinkingCompare:    templatePersonalityCompare,
	TemplateLearningRecommend:  templateLearningRecommend,
	TemplateCompetencyAnalyze:  templateCompetencyAnalyze,
	TemplateGeneralCompare:     templateGeneralCompare,
	TemplateStatisticalInfo:    templateStatisticalInfo,
	TemplateFollowUp:           templateFollowUp,
	TemplateDefault:            templateDefault,
	TemplatePreferenceExplain:  templatePreferenceExplain,
	TemplatePreferencePartial:  templatePreferencePartial,
	TemplatePreferenceMissing:  templatePreferenceMissing,
}

// selectTemplate picks a template name from (category, intent) and the
// preference data actually retrieved. FOLLOW_UP always wins.
func selectTemplate(question *models.ProcessedQuestion, results []*models.SearchResult) string {
	if question.Intent == models.IntentFollowUp {
		return TemplateFollowUp
	}

	if question.Category == models.CategoryPreferenceAnalysis {
		return preferenceTemplate(results)
	}

	switch question.Category {
	case models.CategoryPersonality:
		if question.Intent == models.IntentCompare {
			return TemplatePersonalityCompare
		}
		return TemplatePersonalityExplain
	case models.CategoryCareerRecommendations:
		if question.Intent == models.IntentRecommend {
			return TemplateCareerRecommend
		}
		return TemplateCareerExplain
	case models.CategoryThinkingSkills:
		if question.Intent == models.IntentCompare {
			return TemplateThinkingCompare
		}
		return TemplateThinkingAnalyze
	case models.CategoryLearningStyle:
		return TemplateLearningRecommend
	case models.CategoryCompetencyAnalysis:
		return TemplateCompetencyAnalyze
	case models.CategoryGeneralComparison:
		return TemplateGeneralCompare
	case models.CategoryStatisticalInfo:
		return TemplateStatisticalInfo
	}
	return TemplateDefault
}

// preferenceTemplate inspects the retrieved preference documents to pick
// the explain/partial/missing variant.
func preferenceTemplate(results []*models.SearchResult) string {
	hasData := false
	hasPartial := false
	for _, r := range results {
		if r.Document.DocType != models.DocTypePreferenceAnalysis {
			continue
		}
		switch r.Document.Metadata.SubType {
		case "unavailable", "error":
		case "partial_available":
			hasPartial = true
		default:
			hasData = true
		}
	}
	switch {
	case hasData && !hasPartial:
		return TemplatePreferenceExplain
	case hasPartial:
		return TemplatePreferencePartial
	default:
		return TemplatePreferenceMissing
	}
}
