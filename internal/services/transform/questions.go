package transform

import (
	"fmt"

	"github.com/aptihub/chatetl/internal/models"
)

// hypotheticalQuestions produces 1-5 Korean questions a user might ask to
// reach the given chunk. Rule-based on doc type and sub type; the first
// matching rule set wins.
func hypotheticalQuestions(docType models.DocType, subType string, content map[string]interface{}) []string {
	switch docType {
	case models.DocTypeUserProfile:
		return []string{
			"내 검사 결과를 요약해줘",
			"내 프로필 정보를 알려줘",
		}

	case models.DocTypePersonalityProfile:
		if name, ok := content["tendency_name"].(string); ok && name != "" {
			return []string{
				fmt.Sprintf("%s 성향은 어떤 의미인가요?", name),
				"내 성향의 특징을 설명해줘",
				"내 강점 성향은 무엇인가요?",
			}
		}
		return []string{
			"내 성향 분석 결과를 알려줘",
			"나는 어떤 성격 유형인가요?",
		}

	case models.DocTypeThinkingSkills:
		return []string{
			"내 사고력 점수는 어떻게 되나요?",
			"어떤 사고 능력이 가장 뛰어난가요?",
			"사고력 검사 결과를 설명해줘",
		}

	case models.DocTypeCareerRecommendations:
		if name, ok := content["job_name"].(string); ok && name != "" {
			return []string{
				fmt.Sprintf("%s 직업이 나와 잘 맞나요?", name),
				fmt.Sprintf("%s 직업에 대해 알려줘", name),
			}
		}
		return []string{
			"나에게 추천된 직업은 무엇인가요?",
			"어떤 직업이 나와 잘 맞나요?",
			"진로 추천 결과를 알려줘",
		}

	case models.DocTypeCompetencyAnalysis:
		return []string{
			"내 역량 분석 결과를 알려줘",
			"어떤 역량이 가장 높은가요?",
		}

	case models.DocTypeLearningStyle:
		return []string{
			"나에게 맞는 학습 방법은 무엇인가요?",
			"내 학습 스타일을 설명해줘",
			"어떻게 공부하는 것이 효과적인가요?",
		}

	case models.DocTypePreferenceAnalysis:
		return preferenceQuestions(subType, content)
	}

	return []string{"내 검사 결과에 대해 알려줘"}
}

// preferenceQuestions branches on the preference chunk sub type
func preferenceQuestions(subType string, content map[string]interface{}) []string {
	switch subType {
	case "completion_summary", "test_stats":
		return []string{
			"이미지 선호도 검사는 얼마나 완료되었나요?",
			"선호도 검사 응답률을 알려줘",
		}
	case "preferences_overview":
		return []string{
			"내 이미지 선호도 결과를 요약해줘",
			"어떤 활동을 선호하나요?",
			"선호도 분포가 어떻게 되나요?",
		}
	case "jobs_overview":
		return []string{
			"선호도 기반 추천 직업을 알려줘",
			"내 선호와 관련된 직업은 무엇인가요?",
		}
	case "unavailable", "partial_available", "error":
		return []string{
			"이미지 선호도 검사 결과를 볼 수 있나요?",
			"선호도 데이터가 왜 없나요?",
		}
	}

	if name, ok := content["preference_name"].(string); ok && name != "" {
		return []string{
			fmt.Sprintf("%s에 대해 자세히 알려줘", name),
			fmt.Sprintf("%s와 관련된 직업은 무엇인가요?", name),
			"이 선호가 진로에 어떤 의미가 있나요?",
		}
	}
	return []string{"내 이미지 선호도 분석 결과를 알려줘"}
}
