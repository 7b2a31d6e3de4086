package validation

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// Validator runs the three stage gates of the pipeline: query results
// before transformation, documents before embedding, embeddings before
// storage. Strictness is controlled by the configured level; relaxed mode
// downgrades empty critical result sets from errors to warnings.
type Validator struct {
	level           models.ValidationLevel
	relaxed         bool
	criticalQueries []string
	dimension       int
	logger          arbor.ILogger
}

// NewValidator creates a validator for the configured level
func NewValidator(level models.ValidationLevel, relaxed bool, criticalQueries []string, dimension int, logger arbor.ILogger) *Validator {
	if level == "" {
		level = models.ValidationStandard
	}
	return &Validator{
		level:           level,
		relaxed:         relaxed,
		criticalQueries: criticalQueries,
		dimension:       dimension,
		logger:          logger,
	}
}

var _ interfaces.Validator = (*Validator)(nil)

// ValidateQueryResults checks the query stage output. Basic needs one
// successful critical query, standard needs all of them, strict needs
// every query in the set. Empty critical result sets are errors only
// outside relaxed mode.
func (v *Validator) ValidateQueryResults(results models.QueryResults) *models.ValidationReport {
	report := v.newReport("query_results")
	report.Checked = len(results)

	if len(results) == 0 {
		report.AddError("no query results produced")
		return v.finish(report)
	}

	if v.level == models.ValidationBasic {
		anyCritical := false
		for _, name := range v.criticalQueries {
			if result, ok := results[name]; ok && result != nil && result.Success {
				anyCritical = true
				break
			}
		}
		if !anyCritical {
			report.AddError("no critical query succeeded")
		}
		return v.finish(report)
	}

	for _, name := range v.criticalQueries {
		result, ok := results[name]
		if !ok || result == nil {
			report.AddError(fmt.Sprintf("critical query %s was not executed", name))
			continue
		}
		if !result.Success {
			report.AddError(fmt.Sprintf("critical query %s failed: %s", name, result.Error))
			continue
		}
		if result.RowCount == 0 {
			if v.relaxed {
				report.AddWarning(fmt.Sprintf("critical query %s returned no rows", name))
			} else {
				report.AddError(fmt.Sprintf("critical query %s returned no rows", name))
			}
		}
	}

	if v.level == models.ValidationStrict {
		critical := make(map[string]bool, len(v.criticalQueries))
		for _, name := range v.criticalQueries {
			critical[name] = true
		}
		for name, result := range results {
			if !critical[name] && result != nil && !result.Success {
				report.AddError(fmt.Sprintf("query %s failed: %s", name, result.Error))
			}
		}
	}

	v.checkScoreRanges(results, report)

	return v.finish(report)
}

// checkScoreRanges verifies score and percentile columns stay in [0, 100]
func (v *Validator) checkScoreRanges(results models.QueryResults, report *models.ValidationReport) {
	for name, result := range results {
		if result == nil || !result.Success {
			continue
		}
		for i, row := range result.Rows {
			for _, key := range []string{"score", "percentile", "match_rate", "response_rate"} {
				raw, ok := row[key]
				if !ok || raw == nil {
					continue
				}
				value := row.Float(key)
				if value < 0 || value > 100 {
					msg := fmt.Sprintf("query %s row %d: %s %.2f out of range [0,100]", name, i, key, value)
					if v.level == models.ValidationStrict {
						report.AddError(msg)
					} else {
						report.AddWarning(msg)
					}
				}
			}
		}
	}
}

// ValidateDocuments checks the transform stage output
func (v *Validator) ValidateDocuments(docs []*models.Document) *models.ValidationReport {
	report := v.newReport("documents")
	report.Checked = len(docs)

	if len(docs) == 0 {
		report.AddError("transformation produced no documents")
		return v.finish(report)
	}

	for _, doc := range docs {
		if doc.ID == "" {
			report.AddError(fmt.Sprintf("document of type %s has no id", doc.DocType))
		}
		if doc.UserID == "" {
			report.AddError(fmt.Sprintf("document %s has no user id", doc.ID))
		}
		if len(doc.Content) == 0 {
			report.AddError(fmt.Sprintf("document %s (%s) has empty content", doc.ID, doc.DocType))
		}
		if len([]rune(doc.SummaryText)) < 10 {
			report.AddError(fmt.Sprintf("document %s (%s) summary is too short", doc.ID, doc.DocType))
		}
		if doc.SearchableText == "" {
			report.AddWarning(fmt.Sprintf("document %s (%s) has no searchable text", doc.ID, doc.DocType))
		}
		if v.level == models.ValidationStrict && doc.Metadata.SubType == "" {
			report.AddWarning(fmt.Sprintf("document %s (%s) has no sub type", doc.ID, doc.DocType))
		}
	}

	if v.level != models.ValidationBasic {
		present := make(map[models.DocType]bool, len(docs))
		for _, doc := range docs {
			present[doc.DocType] = true
		}
		required := []models.DocType{
			models.DocTypePersonalityProfile,
			models.DocTypeThinkingSkills,
			models.DocTypeCareerRecommendations,
		}
		for _, docType := range required {
			if !present[docType] {
				msg := fmt.Sprintf("no %s document produced", docType)
				if v.relaxed {
					report.AddWarning(msg)
				} else {
					report.AddError(msg)
				}
			}
		}
	}

	return v.finish(report)
}

// ValidateEmbeddings checks the embedding stage output. Zero vectors are
// warnings; the documents remain usable for keyword retrieval.
func (v *Validator) ValidateEmbeddings(docs []*models.Document) *models.ValidationReport {
	report := v.newReport("embeddings")
	report.Checked = len(docs)

	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			report.AddError(fmt.Sprintf("document %s (%s) has no embedding", doc.ID, doc.DocType))
			continue
		}
		if len(doc.Embedding) != v.dimension {
			report.AddError(fmt.Sprintf("document %s (%s) embedding dimension %d, expected %d",
				doc.ID, doc.DocType, len(doc.Embedding), v.dimension))
			continue
		}
		if isZeroVector(doc.Embedding) {
			report.AddWarning(fmt.Sprintf("document %s (%s) has a zero embedding", doc.ID, doc.DocType))
		}
		if v.level == models.ValidationStrict && doc.EmbeddingModel == "" {
			report.AddWarning(fmt.Sprintf("document %s (%s) has no embedding model recorded", doc.ID, doc.DocType))
		}
	}

	return v.finish(report)
}

func (v *Validator) newReport(pass string) *models.ValidationReport {
	return &models.ValidationReport{
		Pass:   pass,
		Level:  v.level,
		Passed: true,
	}
}

func (v *Validator) finish(report *models.ValidationReport) *models.ValidationReport {
	event := v.logger.Debug()
	if !report.Passed {
		event = v.logger.Warn()
	}
	event.
		Str("pass", report.Pass).
		Int("checked", report.Checked).
		Int("errors", len(report.Errors)).
		Int("warnings", len(report.Warnings)).
		Msg("Validation pass finished")
	return report
}

func isZeroVector(vector []float32) bool {
	for _, v := range vector {
		if v != 0 {
			return false
		}
	}
	return true
}
