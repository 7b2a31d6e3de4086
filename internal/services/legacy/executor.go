package legacy

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
	"github.com/aptihub/chatetl/internal/services/metrics"
)

const queryAttempts = 3

// Executor runs the embedded query catalog against the legacy schema.
// Failures are recorded per query rather than aborting the whole run;
// the validation pass decides whether missing core results are fatal.
type Executor struct {
	catalog []CatalogQuery
	storage interfaces.LegacyStorage
	metrics interfaces.MetricsRegistry
	logger  arbor.ILogger
}

// NewExecutor creates a query executor from the embedded catalog
func NewExecutor(storage interfaces.LegacyStorage, registry interfaces.MetricsRegistry, logger arbor.ILogger) (*Executor, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	return &Executor{
		catalog: catalog,
		storage: storage,
		metrics: registry,
		logger:  logger,
	}, nil
}

var _ interfaces.QueryExecutor = (*Executor)(nil)

// CoreQueryNames returns the names of queries that must succeed for a
// full completion.
func (e *Executor) CoreQueryNames() []string {
	names := make([]string, 0, len(e.catalog))
	for _, q := range e.catalog {
		if q.Core {
			names = append(names, q.Name)
		}
	}
	return names
}

// ExecuteAll runs every catalog query for one test record. It returns an
// error only when the context is cancelled; individual query failures are
// captured in the result set.
func (e *Executor) ExecuteAll(ctx context.Context, anpSeq int) (models.QueryResults, error) {
	results := make(models.QueryResults, len(e.catalog))

	for _, q := range e.catalog {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("query execution cancelled: %w", err)
		}
		results[q.Name] = e.runQuery(ctx, q, anpSeq)
	}

	summary := results.Summary()
	e.logger.Info().
		Int("anp_seq", anpSeq).
		Int("total", len(e.catalog)).
		Int("succeeded", summary["succeeded"].(int)).
		Int("failed", summary["failed"].(int)).
		Msg("Legacy query catalog executed")

	return results, nil
}

// runQuery executes one catalog query with retries on transient errors
func (e *Executor) runQuery(ctx context.Context, q CatalogQuery, anpSeq int) *models.QueryResult {
	start := time.Now()

	var rows []models.QueryRow
	var err error
	for attempt := 1; attempt <= queryAttempts; attempt++ {
		rows, err = e.storage.QueryRows(ctx, q.SQL, anpSeq)
		if err == nil {
			break
		}
		kind, _, retryable := models.ClassifyError(err)
		if !retryable || attempt == queryAttempts {
			e.logger.Warn().
				Err(err).
				Str("query", q.Name).
				Str("error_kind", string(kind)).
				Int("anp_seq", anpSeq).
				Msg("Legacy query failed")
			break
		}

		delay := time.Duration(attempt*100)*time.Millisecond +
			time.Duration(rand.Int63n(int64(100*time.Millisecond)))
		select {
		case <-ctx.Done():
			err = ctx.Err()
			attempt = queryAttempts
		case <-time.After(delay):
		}
	}

	duration := time.Since(start)
	e.recordMetrics(q, duration, err == nil)

	if err != nil {
		kind, _, _ := models.ClassifyError(err)
		return &models.QueryResult{
			QueryName:  q.Name,
			Success:    false,
			DurationMS: duration.Milliseconds(),
			Error:      err.Error(),
			ErrorKind:  kind,
		}
	}

	return &models.QueryResult{
		QueryName:  q.Name,
		Success:    true,
		Rows:       rows,
		RowCount:   len(rows),
		DurationMS: duration.Milliseconds(),
	}
}

// recordMetrics tracks preference query health for the monitoring service
func (e *Executor) recordMetrics(q CatalogQuery, duration time.Duration, success bool) {
	if e.metrics == nil || !isPreferenceQuery(q.Name) {
		return
	}
	labels := map[string]string{
		"query":   q.Name,
		"success": fmt.Sprintf("%t", success),
	}
	e.metrics.IncrCounter(metrics.MetricPreferenceQueryTotal, labels, 1)
	e.metrics.Observe(metrics.MetricPreferenceQueryDurationMS,
		map[string]string{"query": q.Name}, float64(duration.Milliseconds()))
}

func isPreferenceQuery(name string) bool {
	return strings.HasPrefix(name, "preference") || name == "imagePreferenceStatsQuery"
}
