package ragcontext

import (
	"fmt"

	"github.com/aptihub/chatetl/internal/models"
)

// keyPoints extracts a small structured list per document type, falling
// back to the truncated summary on unexpected content shapes.
func keyPoints(doc *models.Document) []string {
	var points []string

	switch doc.DocType {
	case models.DocTypePersonalityProfile:
		if name, ok := doc.Content["tendency_name"].(string); ok && name != "" {
			points = append(points, fmt.Sprintf("성향: %s (순위 %v, 점수 %v)",
				name, doc.Content["rank"], doc.Content["score"]))
		}
		if names, ok := doc.Content["top_tendencies"].([]string); ok {
			for _, n := range names {
				points = append(points, "상위 성향: "+n)
			}
		}

	case models.DocTypeThinkingSkills:
		if name, ok := doc.Content["skill_name"].(string); ok && name != "" {
			points = append(points, fmt.Sprintf("사고력: %s (점수 %v, 백분위 %v)",
				name, doc.Content["score"], doc.Content["percentile"]))
		}
		if best, ok := doc.Content["best_skill"].(string); ok && best != "" {
			points = append(points, fmt.Sprintf("최고 영역: %s (%v점)", best, doc.Content["best_score"]))
		}

	case models.DocTypeCareerRecommendations:
		if name, ok := doc.Content["job_name"].(string); ok && name != "" {
			points = append(points, fmt.Sprintf("추천 직업: %s (적합도 %v%%)",
				name, doc.Content["match_rate"]))
		}
		if names, ok := doc.Content["recommended_jobs"].([]string); ok {
			for i, n := range names {
				if i == 3 {
					break
				}
				points = append(points, "추천 직업: "+n)
			}
		}

	case models.DocTypeCompetencyAnalysis:
		if comps, ok := doc.Content["competencies"].([]map[string]interface{}); ok {
			for i, c := range comps {
				if i == 3 {
					break
				}
				points = append(points, fmt.Sprintf("역량: %v (백분위 %v)", c["name"], c["percentile"]))
			}
		}

	case models.DocTypePreferenceAnalysis:
		if name, ok := doc.Content["preference_name"].(string); ok && name != "" {
			points = append(points, fmt.Sprintf("선호: %s (강도 %v, 순위 %v)",
				name, doc.Content["preference_strength"], doc.Content["rank"]))
		}
		if status, ok := doc.Content["completion_status"].(string); ok && status != "" {
			points = append(points, "검사 완료 상태: "+status)
		}

	case models.DocTypeLearningStyle:
		if name, ok := doc.Content["style_name"].(string); ok && name != "" {
			points = append(points, "학습 스타일: "+name)
		}
	}

	if len(points) == 0 {
		points = append(points, truncate(doc.SummaryText, 100))
	}
	return points
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
