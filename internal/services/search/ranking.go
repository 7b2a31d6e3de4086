package search

import (
	"sort"
	"time"

	"github.com/aptihub/chatetl/internal/models"
)

// per-type weights for the type_prioritized strategy
var typeWeights = map[models.DocType]float64{
	models.DocTypePersonalityProfile:    1.2,
	models.DocTypeCareerRecommendations: 1.1,
	models.DocTypeThinkingSkills:        1.0,
	models.DocTypeCompetencyAnalysis:    0.9,
	models.DocTypeLearningStyle:         0.8,
	models.DocTypePreferenceAnalysis:    0.7,
}

// flatter weights used by the hybrid strategy
var hybridTypeWeights = map[models.DocType]float64{
	models.DocTypePersonalityProfile:    1.1,
	models.DocTypeCareerRecommendations: 1.05,
	models.DocTypeThinkingSkills:        1.0,
	models.DocTypeCompetencyAnalysis:    0.95,
	models.DocTypeLearningStyle:         0.9,
	models.DocTypePreferenceAnalysis:    0.85,
}

// applyRanking adjusts scores per the strategy, re-sorts and reassigns
// ranks. similarity_only leaves adjusted equal to the raw score.
func applyRanking(results []*models.SearchResult, strategy models.RankingStrategy, now time.Time) {
	for _, r := range results {
		r.AdjustedScore = r.SimilarityScore

		switch strategy {
		case models.RankingRecencyWeighted:
			r.AdjustedScore *= 1 + 0.1*recencyFactor(r.Document.CreatedAt, now)

		case models.RankingTypePrioritized:
			r.AdjustedScore *= typeWeight(typeWeights, r.Document.DocType)

		case models.RankingHybrid:
			r.AdjustedScore *= 1 + 0.05*recencyFactor(r.Document.CreatedAt, now)
			r.AdjustedScore *= typeWeight(hybridTypeWeights, r.Document.DocType)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AdjustedScore > results[j].AdjustedScore
	})
	for i, r := range results {
		r.Rank = i + 1
	}
}

// recencyFactor decays linearly from 1 to 0 over 30 days
func recencyFactor(createdAt, now time.Time) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	factor := 1 - ageDays/30
	if factor < 0 {
		return 0
	}
	return factor
}

func typeWeight(table map[models.DocType]float64, docType models.DocType) float64 {
	if w, ok := table[docType]; ok {
		return w
	}
	return 1.0
}
