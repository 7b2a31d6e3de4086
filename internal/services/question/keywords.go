package question

import "github.com/aptihub/chatetl/internal/models"

// categoryKeywords drive the keyword-weighted category scoring. Each hit
// contributes len(keyword)/10 to the category score.
var categoryKeywords = map[models.QuestionCategory][]string{
	models.CategoryPersonality: {
		"성향", "성격", "기질", "성격유형", "강점", "약점", "특징", "personality",
	},
	models.CategoryThinkingSkills: {
		"사고력", "사고", "논리", "추론", "인지", "창의력", "문제해결",
	},
	models.CategoryCareerRecommendations: {
		"직업", "진로", "취업", "커리어", "일자리", "직무", "career",
	},
	models.CategoryLearningStyle: {
		"학습", "공부", "학습법", "공부법", "학습스타일", "암기",
	},
	models.CategoryCompetencyAnalysis: {
		"역량", "능력", "스킬", "competency",
	},
	models.CategoryPreferenceAnalysis: {
		"흥미", "관심사", "이미지검사",
	},
	models.CategoryGeneralComparison: {
		"비교", "차이", "다른점", "비슷한점",
	},
	models.CategoryStatisticalInfo: {
		"통계", "백분위", "퍼센트", "평균", "분포", "수치",
	},
}

// preferenceCoreTerms carry a 2x weight toward PREFERENCE_ANALYSIS
var preferenceCoreTerms = []string{
	"선호도", "선호", "이미지선호", "선호검사",
}

// intentKeywords drive the parallel intent scoring
var intentKeywords = map[models.QuestionIntent][]string{
	models.IntentExplain: {
		"설명", "알려줘", "알려주세요", "무엇", "뭐야", "뭔가요", "의미",
	},
	models.IntentCompare: {
		"비교", "차이", "다른가", "비슷한가",
	},
	models.IntentRecommend: {
		"추천", "권장", "어떤것이좋", "뭐가좋",
	},
	models.IntentAnalyze: {
		"분석", "평가", "진단", "해석",
	},
	models.IntentClarify: {
		"무슨뜻", "정확히", "다시설명", "이해가안",
	},
}

// followUpIndicators force FOLLOW_UP when conversation depth > 0
var followUpIndicators = []string{
	"그럼", "그러면", "그것", "그건", "아까", "방금", "더자세히", "그리고", "추가로",
}

// stopWords are dropped from extracted keywords
var stopWords = map[string]bool{
	"내":    true,
	"나의":   true,
	"저의":   true,
	"제":    true,
	"좀":    true,
	"그":    true,
	"이":    true,
	"저":    true,
	"것":    true,
	"수":    true,
	"등":    true,
	"및":    true,
	"대해":   true,
	"대한":   true,
	"어떻게":  true,
	"어떤":   true,
	"무엇":   true,
	"뭐야":   true,
	"알려줘":  true,
	"알려주세요": true,
	"해줘":   true,
	"주세요":  true,
	"있나요":  true,
	"인가요":  true,
	"the":  true,
	"a":    true,
	"is":   true,
	"my":   true,
	"what": true,
}

// requiredDocTypes maps a category to the document types the context
// builder should retrieve.
var requiredDocTypes = map[models.QuestionCategory][]models.DocType{
	models.CategoryPersonality:           {models.DocTypePersonalityProfile},
	models.CategoryThinkingSkills:        {models.DocTypeThinkingSkills},
	models.CategoryCareerRecommendations: {models.DocTypeCareerRecommendations, models.DocTypePersonalityProfile},
	models.CategoryLearningStyle:         {models.DocTypeLearningStyle},
	models.CategoryCompetencyAnalysis:    {models.DocTypeCompetencyAnalysis},
	models.CategoryPreferenceAnalysis:    {models.DocTypePreferenceAnalysis},
	models.CategoryGeneralComparison:     {models.DocTypePersonalityProfile, models.DocTypeThinkingSkills},
	models.CategoryStatisticalInfo:       {models.DocTypeThinkingSkills, models.DocTypeCompetencyAnalysis},
	models.CategoryUnknown:               {models.DocTypeUserProfile, models.DocTypePersonalityProfile},
}
