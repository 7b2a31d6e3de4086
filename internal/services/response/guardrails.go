package response

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// preferenceKeywords flag a question as preference-related when the
// template alone does not.
var preferenceKeywords = []string{"선호도", "선호", "이미지 검사", "이미지검사"}

// hallucinationPattern is one suspicious claim shape scanned for when the
// preference data backing an answer is incomplete.
type hallucinationPattern struct {
	name     string
	severity models.Severity
	re       *regexp.Regexp
}

var hallucinationPatterns = []hallucinationPattern{
	{"percentage_claim", models.SeverityCritical, regexp.MustCompile(`\d+(\.\d+)?\s*%`)},
	{"rank_claim", models.SeverityCritical, regexp.MustCompile(`\d+\s*(순위|위)`)},
	{"score_claim", models.SeverityCritical, regexp.MustCompile(`\d+(\.\d+)?\s*점`)},
	{"response_rate_claim", models.SeverityCritical, regexp.MustCompile(`응답률\s*\d+`)},
	{"image_count_claim", models.SeverityWarning, regexp.MustCompile(`(이미지|그림)\s*\d+\s*(개|장)`)},
	{"numbered_preference_claim", models.SeverityWarning, regexp.MustCompile(`\d+\s*번째\s*선호`)},
	{"percentile_claim", models.SeverityWarning, regexp.MustCompile(`백분위\s*\d+`)},
	{"definitive_claim", models.SeverityWarning, regexp.MustCompile(`(확실히|분명히|명확하게|틀림없이)`)},
}

const (
	missingDataDisclaimer = "\n\n⚠️ 데이터가 준비되지 않아 위 답변에 포함된 구체적인 수치는 실제 검사 결과가 아닐 수 있습니다. 선호도 검사 완료 후 정확한 결과를 확인해 주세요."
	partialDataDisclaimer = "\n\n⚠️ 선호도 데이터가 일부만 준비되어 답변이 불완전할 수 있습니다."
)

// isPreferenceRelated checks the chosen template and the question text
func isPreferenceRelated(question *models.ProcessedQuestion, template string) bool {
	if strings.HasPrefix(template, "preference-") {
		return true
	}
	if question.Category == models.CategoryPreferenceAnalysis {
		return true
	}
	for _, keyword := range preferenceKeywords {
		if strings.Contains(question.Cleaned, keyword) {
			return true
		}
	}
	return false
}

// preferenceAvailability computes the data-availability verdict from the
// retrieved document set.
func preferenceAvailability(results []*models.SearchResult) (models.DataAvailability, models.DataQuality) {
	dataDocs := 0
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
			dataDocs++
		}
	}

	switch {
	case dataDocs == 0 && !hasPartial:
		return models.DataMissing, models.DataQualityNone
	case hasPartial || dataDocs < 3:
		quality := models.DataQualityLow
		if dataDocs >= 2 {
			quality = models.DataQualityMedium
		}
		return models.DataPartial, quality
	default:
		return models.DataComplete, models.DataQualityHigh
	}
}

// detectHallucinations returns the names of matched patterns and the
// highest severity seen.
func detectHallucinations(answer string) ([]string, models.Severity) {
	var matched []string
	severity := models.SeverityInfo
	for _, p := range hallucinationPatterns {
		if p.re.MatchString(answer) {
			matched = append(matched, p.name)
			if p.severity == models.SeverityCritical {
				severity = models.SeverityCritical
			} else if severity != models.SeverityCritical {
				severity = models.SeverityWarning
			}
		}
	}
	return matched, severity
}

// alternativeSuggestions tailors pointers to other analyses based on the
// detected user focus.
func alternativeSuggestions(question *models.ProcessedQuestion) string {
	cleaned := question.Cleaned

	var focus string
	switch {
	case strings.Contains(cleaned, "직업") || strings.Contains(cleaned, "진로") ||
		question.Category == models.CategoryCareerRecommendations:
		focus = "성향 기반 진로 추천 결과에서 적합 직업과 추천 이유를 확인할 수 있습니다."
	case strings.Contains(cleaned, "활동"):
		focus = "성향 분석 결과에서 선호할 만한 활동 유형의 단서를 얻을 수 있습니다."
	case strings.Contains(cleaned, "학습") || strings.Contains(cleaned, "공부"):
		focus = "학습 스타일 분석에서 효과적인 공부 방법을 확인할 수 있습니다."
	default:
		focus = "성향 분석과 사고력 분석 결과에서 유사한 통찰을 얻을 수 있습니다."
	}

	return "\n\n💡 대안 분석 방법: " + focus
}

// partialDataTips is appended to partial-data answers
const partialDataTips = "\n\n더 완전한 분석을 위한 팁:\n" +
	"- 이미지 선호도 검사를 끝까지 완료하면 선호 순위와 직업 연결 결과를 모두 확인할 수 있습니다.\n" +
	"- 검사 완료 후 데이터 재처리를 요청하면 최신 결과가 반영됩니다."

// fallbackFromDocuments builds the short-circuit answer for a
// preference question with no preference data, using whatever
// non-preference documents were retrieved.
func fallbackFromDocuments(question *models.ProcessedQuestion, ragContext *interfaces.RAGContext) string {
	var b strings.Builder
	b.WriteString("요청하신 이미지 선호도 검사 데이터가 아직 준비되지 않았습니다. ")
	b.WriteString("검사를 완료하지 않았거나 결과 처리가 진행 중일 수 있습니다.\n")

	var others []string
	for _, r := range ragContext.Documents {
		if r.Document.DocType == models.DocTypePreferenceAnalysis {
			continue
		}
		others = append(others, r.Document.SummaryText)
		if len(others) == 2 {
			break
		}
	}
	if len(others) > 0 {
		b.WriteString("\n지금 확인할 수 있는 다른 분석 결과입니다:\n")
		for _, summary := range others {
			fmt.Fprintf(&b, "- %s\n", summary)
		}
	}

	b.WriteString(alternativeSuggestions(question))
	return b.String()
}
