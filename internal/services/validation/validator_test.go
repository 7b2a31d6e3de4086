package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/models"
)

var criticalQueries = []string{
	"tendencyQuery", "topTendencyQuery", "thinkingSkillsQuery", "careerRecommendationQuery",
}

func successfulResults() models.QueryResults {
	results := make(models.QueryResults)
	for _, name := range criticalQueries {
		results[name] = &models.QueryResult{
			QueryName: name,
			Success:   true,
			Rows:      []models.QueryRow{{"score": 85.0, "percentile": 92.0}},
			RowCount:  1,
		}
	}
	return results
}

func newStandardValidator(relaxed bool) *Validator {
	return NewValidator(models.ValidationStandard, relaxed, criticalQueries, 768, common.GetLogger())
}

func TestValidateQueryResultsPassesOnHealthyInput(t *testing.T) {
	report := newStandardValidator(true).ValidateQueryResults(successfulResults())
	assert.True(t, report.Passed)
	assert.Empty(t, report.Errors)
}

func TestValidateQueryResultsFailsOnCriticalQueryFailure(t *testing.T) {
	results := successfulResults()
	results["tendencyQuery"] = &models.QueryResult{
		QueryName: "tendencyQuery",
		Success:   false,
		Error:     "database is locked",
	}

	report := newStandardValidator(true).ValidateQueryResults(results)
	assert.False(t, report.Passed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "tendencyQuery")
}

func TestValidateQueryResultsRelaxedDowngradesEmptyCriticalRows(t *testing.T) {
	results := successfulResults()
	results["thinkingSkillsQuery"].Rows = nil
	results["thinkingSkillsQuery"].RowCount = 0

	relaxed := newStandardValidator(true).ValidateQueryResults(results)
	assert.True(t, relaxed.Passed)
	assert.NotEmpty(t, relaxed.Warnings)

	strictEmpty := newStandardValidator(false).ValidateQueryResults(results)
	assert.False(t, strictEmpty.Passed)
}

func TestValidateQueryResultsScoreRangeOutOfBounds(t *testing.T) {
	results := successfulResults()
	results["tendencyQuery"].Rows = []models.QueryRow{{"score": 120.0}}

	standard := newStandardValidator(true).ValidateQueryResults(results)
	assert.True(t, standard.Passed)
	assert.NotEmpty(t, standard.Warnings)

	strict := NewValidator(models.ValidationStrict, true, criticalQueries, 768, common.GetLogger()).
		ValidateQueryResults(results)
	assert.False(t, strict.Passed)
}

func TestValidateDocumentsRejectsShortSummaries(t *testing.T) {
	docs := []*models.Document{
		{
			ID:          "doc_1",
			UserID:      "user-1",
			DocType:     models.DocTypePersonalityProfile,
			Content:     map[string]interface{}{"tendency": "창의형"},
			SummaryText: "짧음",
		},
	}

	report := newStandardValidator(true).ValidateDocuments(docs)
	assert.False(t, report.Passed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "summary is too short")
}

func TestValidateDocumentsFailsOnEmptySet(t *testing.T) {
	report := newStandardValidator(true).ValidateDocuments(nil)
	assert.False(t, report.Passed)
}

func TestValidateEmbeddingsDimensionAndZeroVector(t *testing.T) {
	good := make([]float32, 768)
	good[0] = 0.5
	docs := []*models.Document{
		{ID: "doc_1", DocType: models.DocTypeUserProfile, Embedding: good},
		{ID: "doc_2", DocType: models.DocTypeThinkingSkills, Embedding: make([]float32, 768)},
		{ID: "doc_3", DocType: models.DocTypeLearningStyle, Embedding: make([]float32, 10)},
	}

	report := newStandardValidator(true).ValidateEmbeddings(docs)
	assert.False(t, report.Passed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "dimension")
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "zero embedding")
}
