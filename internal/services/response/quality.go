package response

import (
	"strings"
	"unicode"

	"github.com/aptihub/chatetl/internal/models"
)

var apologyPhrases = []string{
	"죄송", "미안", "드릴 수 없", "할 수 없", "알 수 없", "정보가 없",
}

var statisticalMarkers = []string{"%", "점", "순위", "백분위"}

// scoreQuality grades the final answer text
func scoreQuality(answer string) models.ResponseQuality {
	if answer == "" {
		return models.QualityPoor
	}

	koreanChars := 0
	for _, r := range answer {
		if unicode.Is(unicode.Hangul, r) {
			koreanChars++
		}
	}
	if koreanChars < 10 {
		return models.QualityPoor
	}

	apologies := 0
	for _, phrase := range apologyPhrases {
		apologies += strings.Count(answer, phrase)
	}
	if apologies >= 3 {
		return models.QualityPoor
	}

	long := len([]rune(answer)) > 100
	hasStats := false
	for _, marker := range statisticalMarkers {
		if strings.Contains(answer, marker) {
			hasStats = true
			break
		}
	}

	switch {
	case long && hasStats:
		return models.QualityExcellent
	case long || hasStats:
		return models.QualityGood
	default:
		return models.QualityAcceptable
	}
}

// confidenceFor maps quality to a base confidence, nudged by whether any
// documents backed the answer.
func confidenceFor(quality models.ResponseQuality, documentsUsed int) float64 {
	base := map[models.ResponseQuality]float64{
		models.QualityPoor:       0.2,
		models.QualityAcceptable: 0.5,
		models.QualityGood:       0.75,
		models.QualityExcellent:  0.9,
	}[quality]

	if documentsUsed > 0 {
		base += 0.05
	} else {
		base -= 0.05
	}
	if base > 1 {
		base = 1
	}
	if base < 0 {
		base = 0
	}
	return base
}
