package transform

import (
	"fmt"
	"strings"

	"github.com/aptihub/chatetl/internal/models"
	"github.com/aptihub/chatetl/internal/services/metrics"
)

// chunkPreferences handles the image preference category. It is the most
// detailed chunking path: full data produces a summary, stats,
// per-preference and per-job-group documents; partial data produces what
// the present inputs support plus a partial_available marker; no data
// produces a single fallback. A panic inside this path degrades to an
// error document instead of losing the category.
func (t *Transformer) chunkPreferences(userID string, rows map[string][]models.QueryRow) (docs []*models.Document) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().
				Str("user_id", userID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Preference processing failed")
			docs = []*models.Document{t.preferenceErrorDocument(userID, fmt.Sprintf("%v", r))}
			t.recordPreferenceCreation(false)
		}
	}()

	statsRows := rows["imagePreferenceStatsQuery"]
	prefRows := rows["preferenceDataQuery"]
	jobRows := rows["preferenceJobsQuery"]

	availableStats := len(statsRows) > 0
	availablePreferences := len(prefRows) > 0
	availableJobs := len(jobRows) > 0

	availableCount := 0
	for _, ok := range []bool{availableStats, availablePreferences, availableJobs} {
		if ok {
			availableCount++
		}
	}

	switch {
	case availableCount == 3:
		docs = append(docs, t.preferenceCompletionSummary(userID, statsRows[0], prefRows, jobRows))
		docs = append(docs, t.preferenceTestStats(userID, statsRows[0]))
		docs = append(docs, t.preferencesOverview(userID, prefRows))
		docs = append(docs, t.individualPreferences(userID, prefRows)...)
		docs = append(docs, t.preferenceJobsOverview(userID, jobRows))
		docs = append(docs, t.preferenceJobGroups(userID, jobRows)...)

	case availableCount > 0:
		docs = append(docs, t.preferencePartialAvailable(userID,
			availableStats, availablePreferences, availableJobs))
		if availableStats {
			docs = append(docs, t.preferenceTestStats(userID, statsRows[0]))
		}
		if availablePreferences {
			docs = append(docs, t.preferencesOverview(userID, prefRows))
			docs = append(docs, t.individualPreferences(userID, prefRows)...)
		}
		if availableJobs {
			docs = append(docs, t.preferenceJobsOverview(userID, jobRows))
			docs = append(docs, t.preferenceJobGroups(userID, jobRows)...)
		}

	default:
		docs = append(docs, t.preferenceUnavailable(userID))
	}

	t.recordPreferenceCreation(true)
	return docs
}

func (t *Transformer) recordPreferenceCreation(success bool) {
	if t.metrics == nil {
		return
	}
	t.metrics.IncrCounter(metrics.MetricPreferenceDocCreation,
		map[string]string{"success": fmt.Sprintf("%t", success)}, 1)
}

// qualityScore applies the thresholded scoring ladders: response rate up
// to 40 points, preference count up to 30, job count up to 30.
func qualityScore(responseRate float64, preferenceCount, jobCount int) int {
	score := 0

	switch {
	case responseRate >= 90:
		score += 40
	case responseRate >= 80:
		score += 35
	case responseRate >= 70:
		score += 30
	case responseRate >= 50:
		score += 20
	default:
		score += 10
	}

	switch {
	case preferenceCount >= 8:
		score += 30
	case preferenceCount >= 5:
		score += 25
	case preferenceCount >= 3:
		score += 20
	case preferenceCount >= 1:
		score += 15
	}

	switch {
	case jobCount >= 15:
		score += 30
	case jobCount >= 10:
		score += 25
	case jobCount >= 5:
		score += 20
	case jobCount >= 1:
		score += 15
	}

	return score
}

// completionStatus maps the response rate to the user-facing label
func completionStatus(responseRate float64) string {
	switch {
	case responseRate >= 80:
		return "완료"
	case responseRate >= 50:
		return "부분완료"
	default:
		return "미완료"
	}
}

// preferenceStrength maps a preference rank to its strength label
func preferenceStrength(rank int) string {
	switch {
	case rank == 1:
		return "강함"
	case rank <= 3:
		return "보통"
	default:
		return "약함"
	}
}

func (t *Transformer) preferenceCompletionSummary(userID string, stats models.QueryRow,
	prefRows, jobRows []models.QueryRow) *models.Document {

	responseRate := stats.Float("response_rate")
	quality := qualityScore(responseRate, len(prefRows), len(jobRows))

	content := map[string]interface{}{
		"quality_score":    quality,
		"response_rate":    responseRate,
		"preference_count": len(prefRows),
		"job_count":        len(jobRows),
		"total_images":     stats.Int("total_image_count"),
		"responses":        stats.Int("response_count"),
	}
	summary := fmt.Sprintf("이미지 선호도 검사 완성도 요약입니다. 품질 점수 %d점, 응답률 %.1f%%, 선호 항목 %d개, 연관 직업 %d개.",
		quality, responseRate, len(prefRows), len(jobRows))

	return t.newDocument(userID, models.DocTypePreferenceAnalysis, "completion_summary",
		models.CompletionComplete, content, summary,
		[]string{"imagePreferenceStatsQuery", "preferenceDataQuery", "preferenceJobsQuery"})
}

func (t *Transformer) preferenceTestStats(userID string, stats models.QueryRow) *models.Document {
	responseRate := stats.Float("response_rate")
	status := completionStatus(responseRate)

	var indicator, interpretation string
	var recommendations, nextSteps []string
	switch status {
	case "완료":
		indicator = "높음"
		interpretation = "충분한 응답으로 선호도 분석 결과를 신뢰할 수 있습니다."
		recommendations = []string{"선호도 기반 직업 추천을 확인해 보세요."}
		nextSteps = []string{"개별 선호 항목의 상세 분석을 살펴보세요."}
	case "부분완료":
		indicator = "보통"
		interpretation = "일부 이미지에만 응답하여 분석의 신뢰도가 제한적입니다."
		recommendations = []string{"나머지 이미지 검사를 완료하면 더 정확한 결과를 얻을 수 있습니다."}
		nextSteps = []string{"검사를 마저 완료하세요.", "현재 결과는 참고용으로 활용하세요."}
	default:
		indicator = "낮음"
		interpretation = "응답률이 낮아 선호도 분석 결과가 불완전합니다."
		recommendations = []string{"이미지 선호도 검사를 다시 진행해 보세요."}
		nextSteps = []string{"검사 재응시를 권장합니다."}
	}

	content := map[string]interface{}{
		"completion_status": status,
		"quality_indicator": indicator,
		"interpretation":    interpretation,
		"recommendations":   recommendations,
		"next_steps":        nextSteps,
		"response_rate":     responseRate,
		"total_images":      stats.Int("total_image_count"),
		"responses":         stats.Int("response_count"),
	}
	summary := fmt.Sprintf("이미지 선호도 검사 통계입니다. 완료 상태: %s, 응답률 %.1f%% (%d/%d).",
		status, responseRate, stats.Int("response_count"), stats.Int("total_image_count"))

	return t.newDocument(userID, models.DocTypePreferenceAnalysis, "test_stats",
		models.CompletionComplete, content, summary, []string{"imagePreferenceStatsQuery"})
}

func (t *Transformer) preferencesOverview(userID string, prefRows []models.QueryRow) *models.Document {
	strong, medium, weak := 0, 0, 0
	names := make([]string, 0, len(prefRows))
	for _, row := range prefRows {
		rank := row.Int("rank")
		switch {
		case rank <= 2:
			strong++
		case rank <= 5:
			medium++
		default:
			weak++
		}
		names = append(names, row.String("preference_name"))
	}

	concentration := "균형형"
	switch {
	case strong > medium+weak:
		concentration = "집중형"
	case weak > strong+medium:
		concentration = "분산형"
	}

	insights := fmt.Sprintf("%d개의 선호 항목이 확인되었으며 %s 분포를 보입니다.", len(prefRows), concentration)

	content := map[string]interface{}{
		"insights": insights,
		"distribution": map[string]interface{}{
			"strong": strong,
			"medium": medium,
			"weak":   weak,
		},
		"concentration_level": concentration,
		"preferences":         names,
	}
	summary := fmt.Sprintf("이미지 선호도 개요입니다. 선호 항목 %d개 (%s), 분포: 강함 %d, 보통 %d, 약함 %d.",
		len(prefRows), concentration, strong, medium, weak)

	return t.newDocument(userID, models.DocTypePreferenceAnalysis, "preferences_overview",
		models.CompletionComplete, content, summary, []string{"preferenceDataQuery"})
}

func (t *Transformer) individualPreferences(userID string, prefRows []models.QueryRow) []*models.Document {
	docs := make([]*models.Document, 0, len(prefRows))
	for i, row := range prefRows {
		name := row.String("preference_name")
		if name == "" {
			continue
		}
		rank := row.Int("rank")
		strength := preferenceStrength(rank)

		content := map[string]interface{}{
			"preference_name":         name,
			"rank":                    rank,
			"response_rate":           row.Float("response_rate"),
			"preference_strength":     strength,
			"analysis":                fmt.Sprintf("'%s'는 %d순위 선호로, 선호 강도는 '%s'입니다. %s", name, rank, strength, row.String("description")),
			"career_implications":     fmt.Sprintf("%s 성향은 관련 분야 직업 탐색의 출발점이 됩니다.", name),
			"development_suggestions": []string{fmt.Sprintf("%s와 관련된 활동 경험을 늘려 보세요.", name)},
			"related_activities":      []string{fmt.Sprintf("%s 관련 동아리나 프로젝트 참여", name)},
		}
		summary := fmt.Sprintf("%d순위 선호 '%s'입니다. 선호 강도 %s, 응답률 %.1f%%.",
			rank, name, strength, row.Float("response_rate"))

		docs = append(docs, t.newDocument(userID, models.DocTypePreferenceAnalysis,
			fmt.Sprintf("preference_%d", i+1), models.CompletionComplete, content, summary,
			[]string{"preferenceDataQuery"}))
	}
	return docs
}

func (t *Transformer) preferenceJobsOverview(userID string, jobRows []models.QueryRow) *models.Document {
	groups := make(map[string][]string)
	for _, row := range jobRows {
		pref := row.String("preference_name")
		groups[pref] = append(groups[pref], row.String("jo_name"))
	}

	content := map[string]interface{}{
		"group_count":        len(groups),
		"total_jobs":         len(jobRows),
		"industry_diversity": fmt.Sprintf("%d개 선호 그룹에 걸쳐 %d개 직업이 연결되어 있습니다.", len(groups), len(jobRows)),
		"recommendations":    []string{"선호 강도가 높은 그룹의 직업부터 탐색해 보세요."},
	}
	summary := fmt.Sprintf("선호도 기반 직업 개요입니다. %d개 선호 그룹, 총 %d개 연관 직업.",
		len(groups), len(jobRows))

	return t.newDocument(userID, models.DocTypePreferenceAnalysis, "jobs_overview",
		models.CompletionComplete, content, summary, []string{"preferenceJobsQuery"})
}

func (t *Transformer) preferenceJobGroups(userID string, jobRows []models.QueryRow) []*models.Document {
	order := make([]string, 0)
	groups := make(map[string][]models.QueryRow)
	for _, row := range jobRows {
		pref := row.String("preference_name")
		if pref == "" {
			continue
		}
		if _, seen := groups[pref]; !seen {
			order = append(order, pref)
		}
		groups[pref] = append(groups[pref], row)
	}

	docs := make([]*models.Document, 0, len(order))
	for _, pref := range order {
		rows := groups[pref]

		jobs := make([]map[string]interface{}, 0, len(rows))
		majors := make([]string, 0)
		for _, row := range rows {
			jobs = append(jobs, map[string]interface{}{
				"job_name":     row.String("jo_name"),
				"outline":      row.String("jo_outline"),
				"mainbusiness": row.String("jo_mainbusiness"),
			})
			if m := row.String("majors"); m != "" {
				majors = append(majors, m)
			}
		}

		content := map[string]interface{}{
			"preference_name":           pref,
			"career_paths":              jobs,
			"industry_analysis":         fmt.Sprintf("'%s' 선호와 연결된 직업 %d개가 확인되었습니다.", pref, len(rows)),
			"skill_requirements":        extractSkillRequirements(rows),
			"education_recommendations": majors,
			"next_steps":                []string{fmt.Sprintf("%s 관련 직업의 실제 업무 내용을 조사해 보세요.", pref)},
		}
		jobNames := make([]string, 0, len(rows))
		for _, row := range rows {
			jobNames = append(jobNames, row.String("jo_name"))
		}
		summary := fmt.Sprintf("'%s' 선호 기반 직업 그룹입니다. 연관 직업 %d개: %s.",
			pref, len(rows), strings.Join(jobNames, ", "))

		docs = append(docs, t.newDocument(userID, models.DocTypePreferenceAnalysis,
			"jobs_"+pref, models.CompletionComplete, content, summary,
			[]string{"preferenceJobsQuery"}))
	}
	return docs
}

// extractSkillRequirements pulls skill-like phrases out of job outlines
func extractSkillRequirements(rows []models.QueryRow) []string {
	skills := make([]string, 0)
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, field := range []string{"jo_outline", "jo_mainbusiness"} {
			text := row.String(field)
			for _, keyword := range []string{"분석", "설계", "기획", "소통", "창의", "연구", "개발", "관리"} {
				if strings.Contains(text, keyword) && !seen[keyword] {
					seen[keyword] = true
					skills = append(skills, keyword+" 역량")
				}
			}
		}
	}
	return skills
}

func (t *Transformer) preferencePartialAvailable(userID string, hasStats, hasPrefs, hasJobs bool) *models.Document {
	available := make([]string, 0, 3)
	missing := make([]string, 0, 3)
	mark := func(ok bool, name string) {
		if ok {
			available = append(available, name)
		} else {
			missing = append(missing, name)
		}
	}
	mark(hasStats, "검사 응답 통계")
	mark(hasPrefs, "선호도 분석")
	mark(hasJobs, "선호 기반 직업 추천")

	percentage := float64(len(available)) / 3 * 100

	content := map[string]interface{}{
		"available_components":  available,
		"missing_components":    missing,
		"completion_percentage": percentage,
	}
	summary := fmt.Sprintf("이미지 선호도 데이터가 부분적으로만 준비되었습니다 (%.0f%%). 이용 가능: %s. 준비 중: %s.",
		percentage, strings.Join(available, ", "), strings.Join(missing, ", "))

	return t.newDocument(userID, models.DocTypePreferenceAnalysis, "partial_available",
		models.CompletionPartial, content, summary,
		[]string{"imagePreferenceStatsQuery", "preferenceDataQuery", "preferenceJobsQuery"})
}

func (t *Transformer) preferenceUnavailable(userID string) *models.Document {
	missing := []string{"검사 응답 통계", "선호도 분석", "선호 기반 직업 추천"}

	content := map[string]interface{}{
		"missing_components": missing,
		"has_alternatives":   true,
		"explanation": "이미지 선호도 검사 데이터가 아직 준비되지 않았습니다. " +
			"검사를 완료하지 않았거나 결과 처리가 진행 중일 수 있습니다. " +
			"처리가 완료되면 선호도 분석과 직업 추천을 확인할 수 있습니다.",
		"alternatives": []string{
			"성향 분석(PERSONALITY_PROFILE) 결과를 확인해 보세요.",
			"사고력 분석(THINKING_SKILLS) 결과를 확인해 보세요.",
			"진로 추천(CAREER_RECOMMENDATIONS) 결과를 확인해 보세요.",
		},
		"recommendation": "이미지 선호도 검사를 아직 진행하지 않았다면 검사를 완료해 주세요. 이미 완료했다면 잠시 후 다시 확인해 주세요.",
		"data_availability": map[string]string{
			"성향 분석":   "이용 가능",
			"선호도 분석":  "처리 중",
			"직업 추천":   "이용 가능",
		},
	}
	summary := "이미지 선호도 검사 데이터를 아직 이용할 수 없습니다. 검사 완료 후 다시 확인해 주세요."

	return t.newDocument(userID, models.DocTypePreferenceAnalysis, "unavailable",
		models.CompletionNone, content, summary,
		[]string{"imagePreferenceStatsQuery", "preferenceDataQuery", "preferenceJobsQuery"})
}

func (t *Transformer) preferenceErrorDocument(userID string, detail string) *models.Document {
	content := map[string]interface{}{
		"message":           "선호도 분석 처리 중 오류가 발생했습니다.",
		"technical_details": detail,
		"recovery_recommendations": []string{
			"잠시 후 데이터 재처리를 요청해 보세요.",
			"문제가 계속되면 관리자에게 문의하세요.",
		},
	}
	summary := "선호도 분석 처리 중 오류가 발생하여 결과를 표시할 수 없습니다."

	return t.newDocument(userID, models.DocTypePreferenceAnalysis, "error",
		models.CompletionNone, content, summary, nil)
}
