package transform

import (
	"fmt"
	"strings"

	"github.com/aptihub/chatetl/internal/models"
)

// chunkUserProfile emits the profile header document
func (t *Transformer) chunkUserProfile(userID string, rows map[string][]models.QueryRow) []*models.Document {
	profileRows := rows["userProfileQuery"]
	if len(profileRows) == 0 {
		return []*models.Document{t.unavailableDocument(userID, models.DocTypeUserProfile,
			"프로필 정보를 아직 이용할 수 없습니다. 검사 결과 처리가 완료되면 확인할 수 있습니다.",
			[]string{"userProfileQuery"})}
	}

	row := profileRows[0]
	content := map[string]interface{}{
		"user_name":    row.String("user_name"),
		"test_type":    row.String("test_type"),
		"status":       row.String("status"),
		"completed_at": row.String("completed_at"),
	}
	summary := fmt.Sprintf("%s님의 적성검사 프로필입니다. 검사 유형: %s, 상태: %s.",
		row.String("user_name"), row.String("test_type"), row.String("status"))

	return []*models.Document{t.newDocument(userID, models.DocTypeUserProfile, "profile",
		models.CompletionComplete, content, summary, []string{"userProfileQuery"})}
}

// chunkPersonality emits a tendency overview plus one document per top
// tendency, and a weaknesses document when bottom tendencies are present.
func (t *Transformer) chunkPersonality(userID string, rows map[string][]models.QueryRow) []*models.Document {
	topRows := rows["topTendencyQuery"]
	allRows := rows["tendencyQuery"]
	if len(topRows) == 0 && len(allRows) == 0 {
		return []*models.Document{t.unavailableDocument(userID, models.DocTypePersonalityProfile,
			"성향 분석 데이터를 아직 이용할 수 없습니다.",
			[]string{"tendencyQuery", "topTendencyQuery"})}
	}
	if len(topRows) == 0 {
		topRows = allRows
		if len(topRows) > 3 {
			topRows = topRows[:3]
		}
	}

	var docs []*models.Document

	names := make([]string, 0, len(topRows))
	for _, row := range topRows {
		names = append(names, row.String("tendency_name"))
	}
	overviewContent := map[string]interface{}{
		"top_tendencies": names,
		"total_count":    len(allRows),
	}
	overviewSummary := fmt.Sprintf("성향 분석 개요입니다. 상위 성향 %d개: %s. 전체 측정 성향 %d개.",
		len(names), strings.Join(names, ", "), len(allRows))
	docs = append(docs, t.newDocument(userID, models.DocTypePersonalityProfile, "overview",
		models.CompletionComplete, overviewContent, overviewSummary,
		[]string{"tendencyQuery", "topTendencyQuery"}))

	for i, row := range topRows {
		content := map[string]interface{}{
			"tendency_name": row.String("tendency_name"),
			"rank":          row.Int("rank"),
			"score":         row.Float("score"),
			"percentile":    row.Float("percentile"),
			"description":   row.String("description"),
		}
		summary := fmt.Sprintf("%d순위 성향 '%s'입니다. 점수 %.1f점, 상위 %.1f%%에 해당합니다.",
			row.Int("rank"), row.String("tendency_name"), row.Float("score"), 100-row.Float("percentile"))
		docs = append(docs, t.newDocument(userID, models.DocTypePersonalityProfile,
			fmt.Sprintf("tendency_%d", i+1), models.CompletionComplete, content, summary,
			[]string{"topTendencyQuery"}))
	}

	if bottomRows := rows["bottomTendencyQuery"]; len(bottomRows) > 0 {
		weakNames := make([]string, 0, len(bottomRows))
		for _, row := range bottomRows {
			weakNames = append(weakNames, row.String("tendency_name"))
		}
		content := map[string]interface{}{"weak_tendencies": weakNames}
		summary := fmt.Sprintf("상대적으로 약한 성향은 %s입니다. 보완이 필요한 영역입니다.",
			strings.Join(weakNames, ", "))
		docs = append(docs, t.newDocument(userID, models.DocTypePersonalityProfile, "weaknesses",
			models.CompletionComplete, content, summary, []string{"bottomTendencyQuery"}))
	}

	return docs
}

// chunkThinkingSkills emits an overview and one document per skill
func (t *Transformer) chunkThinkingSkills(userID string, rows map[string][]models.QueryRow) []*models.Document {
	skillRows := rows["thinkingSkillsQuery"]
	if len(skillRows) == 0 {
		return []*models.Document{t.unavailableDocument(userID, models.DocTypeThinkingSkills,
			"사고력 분석 데이터를 아직 이용할 수 없습니다.",
			[]string{"thinkingSkillsQuery"})}
	}

	var docs []*models.Document

	best := skillRows[0]
	overviewContent := map[string]interface{}{
		"skill_count": len(skillRows),
		"best_skill":  best.String("skill_name"),
		"best_score":  best.Float("score"),
	}
	overviewSummary := fmt.Sprintf("사고력 분석 개요입니다. 측정된 %d개 영역 중 '%s'가 %.1f점으로 가장 높습니다.",
		len(skillRows), best.String("skill_name"), best.Float("score"))
	docs = append(docs, t.newDocument(userID, models.DocTypeThinkingSkills, "overview",
		models.CompletionComplete, overviewContent, overviewSummary,
		[]string{"thinkingSkillsQuery"}))

	for i, row := range skillRows {
		content := map[string]interface{}{
			"skill_name":  row.String("skill_name"),
			"score":       row.Float("score"),
			"percentile":  row.Float("percentile"),
			"description": row.String("description"),
		}
		summary := fmt.Sprintf("사고력 영역 '%s' 결과입니다. 점수 %.1f점, 백분위 %.1f입니다.",
			row.String("skill_name"), row.Float("score"), row.Float("percentile"))
		docs = append(docs, t.newDocument(userID, models.DocTypeThinkingSkills,
			fmt.Sprintf("skill_%d", i+1), models.CompletionComplete, content, summary,
			[]string{"thinkingSkillsQuery"}))
	}

	return docs
}

// chunkCareerRecommendations emits an overview and one document per
// recommended occupation.
func (t *Transformer) chunkCareerRecommendations(userID string, rows map[string][]models.QueryRow) []*models.Document {
	careerRows := rows["careerRecommendationQuery"]
	if len(careerRows) == 0 {
		return []*models.Document{t.unavailableDocument(userID, models.DocTypeCareerRecommendations,
			"진로 추천 데이터를 아직 이용할 수 없습니다.",
			[]string{"careerRecommendationQuery"})}
	}

	var docs []*models.Document

	names := make([]string, 0, len(careerRows))
	for _, row := range careerRows {
		names = append(names, row.String("jo_name"))
	}
	overviewContent := map[string]interface{}{
		"recommended_jobs": names,
		"job_count":        len(names),
	}
	overviewSummary := fmt.Sprintf("진로 추천 개요입니다. 총 %d개 직업이 추천되었습니다: %s.",
		len(names), strings.Join(names, ", "))
	docs = append(docs, t.newDocument(userID, models.DocTypeCareerRecommendations, "overview",
		models.CompletionComplete, overviewContent, overviewSummary,
		[]string{"careerRecommendationQuery"}))

	for i, row := range careerRows {
		content := map[string]interface{}{
			"job_name":   row.String("jo_name"),
			"match_rate": row.Float("match_rate"),
			"reason":     row.String("reason"),
			"majors":     row.String("majors"),
		}
		summary := fmt.Sprintf("추천 직업 '%s'입니다. 적합도 %.1f%%. %s",
			row.String("jo_name"), row.Float("match_rate"), row.String("reason"))
		docs = append(docs, t.newDocument(userID, models.DocTypeCareerRecommendations,
			fmt.Sprintf("job_%d", i+1), models.CompletionComplete, content, summary,
			[]string{"careerRecommendationQuery"}))
	}

	return docs
}

// chunkCompetencies emits a single competency analysis document
func (t *Transformer) chunkCompetencies(userID string, rows map[string][]models.QueryRow) []*models.Document {
	compRows := rows["competencyQuery"]
	if len(compRows) == 0 {
		return []*models.Document{t.unavailableDocument(userID, models.DocTypeCompetencyAnalysis,
			"역량 분석 데이터를 아직 이용할 수 없습니다.",
			[]string{"competencyQuery"})}
	}

	competencies := make([]map[string]interface{}, 0, len(compRows))
	names := make([]string, 0, len(compRows))
	for _, row := range compRows {
		competencies = append(competencies, map[string]interface{}{
			"name":       row.String("competency_name"),
			"score":      row.Float("score"),
			"percentile": row.Float("percentile"),
		})
		names = append(names, row.String("competency_name"))
	}

	best := compRows[0]
	content := map[string]interface{}{
		"competencies": competencies,
		"best":         best.String("competency_name"),
	}
	summary := fmt.Sprintf("역량 분석 결과입니다. 측정된 %d개 역량 중 '%s'가 %.1f점으로 가장 높습니다. 전체: %s.",
		len(compRows), best.String("competency_name"), best.Float("score"), strings.Join(names, ", "))

	return []*models.Document{t.newDocument(userID, models.DocTypeCompetencyAnalysis, "analysis",
		models.CompletionComplete, content, summary, []string{"competencyQuery"})}
}

// chunkLearningStyle emits one document per identified style
func (t *Transformer) chunkLearningStyle(userID string, rows map[string][]models.QueryRow) []*models.Document {
	styleRows := rows["learningStyleQuery"]
	if len(styleRows) == 0 {
		return []*models.Document{t.unavailableDocument(userID, models.DocTypeLearningStyle,
			"학습 스타일 데이터를 아직 이용할 수 없습니다.",
			[]string{"learningStyleQuery"})}
	}

	docs := make([]*models.Document, 0, len(styleRows))
	for i, row := range styleRows {
		content := map[string]interface{}{
			"style_name":    row.String("style_name"),
			"description":   row.String("description"),
			"study_methods": row.String("study_methods"),
		}
		summary := fmt.Sprintf("학습 스타일 '%s'입니다. %s 권장 학습법: %s",
			row.String("style_name"), row.String("description"), row.String("study_methods"))
		docs = append(docs, t.newDocument(userID, models.DocTypeLearningStyle,
			fmt.Sprintf("style_%d", i+1), models.CompletionComplete, content, summary,
			[]string{"learningStyleQuery"}))
	}
	return docs
}

// unavailableDocument is the shared fallback for a category with no data
func (t *Transformer) unavailableDocument(userID string, docType models.DocType, explanation string, sources []string) *models.Document {
	content := map[string]interface{}{
		"status":      "unavailable",
		"explanation": explanation,
	}
	return t.newDocument(userID, docType, "unavailable", models.CompletionNone,
		content, explanation, sources)
}
