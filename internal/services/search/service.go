package search

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
	"github.com/aptihub/chatetl/internal/services/metrics"
)

const timingRingSize = 1000

// Service performs similarity search over a user's stored documents. The
// per-user corpora are small (tens of documents), so candidates are
// loaded from storage and scored in process.
type Service struct {
	documents interfaces.DocumentStorage
	cache     *resultCache
	config    *common.SearchConfig
	metrics   interfaces.MetricsRegistry
	logger    arbor.ILogger

	timingMu  sync.Mutex
	timings   []models.QueryTiming
	timingPos int
}

// NewService creates a vector search service
func NewService(documents interfaces.DocumentStorage, config *common.SearchConfig,
	registry interfaces.MetricsRegistry, logger arbor.ILogger) *Service {

	ttl, err := time.ParseDuration(config.CacheTTL)
	if err != nil || ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Service{
		documents: documents,
		cache:     newResultCache(config.CacheMaxEntries, ttl),
		config:    config,
		metrics:   registry,
		logger:    logger,
		timings:   make([]models.QueryTiming, 0, timingRingSize),
	}
}

var _ interfaces.SearchService = (*Service)(nil)

// SimilaritySearch is the primary entry point
func (s *Service) SimilaritySearch(ctx context.Context, query *models.SearchQuery) ([]*models.SearchResult, error) {
	s.applyDefaults(query)
	if query.UserID == "" {
		return nil, fmt.Errorf("invalid input: search query has no user id")
	}
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("invalid input: search query has no vector")
	}

	key := cacheKey(query)
	if cached, ok := s.cache.get(key); ok {
		return cached, nil
	}

	start := time.Now()
	results, searched, err := s.searchWithRetry(ctx, query)
	elapsed := time.Since(start)

	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrCounter(metrics.MetricVectorSearchErrors, nil, 1)
		}
		return nil, err
	}

	s.recordTiming(query, elapsed, searched, len(results))
	if s.metrics != nil {
		s.metrics.Observe(metrics.MetricVectorSearchQueryMS, nil, float64(elapsed.Milliseconds()))
	}

	s.cache.put(key, results)
	return results, nil
}

// searchWithRetry retries storage reads on transient errors
func (s *Service) searchWithRetry(ctx context.Context, query *models.SearchQuery) ([]*models.SearchResult, int, error) {
	attempts := s.config.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		docs, err := s.documents.GetUserDocuments(ctx, query.UserID, query.DocTypes)
		if err == nil {
			return s.score(query, docs), len(docs), nil
		}
		lastErr = err

		if !models.IsRetryable(err) || attempt == attempts {
			break
		}
		delay := time.Duration(attempt*50)*time.Millisecond +
			time.Duration(rand.Int63n(int64(50*time.Millisecond)))
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, 0, fmt.Errorf("vector search failed: %w", lastErr)
}

// score filters by threshold, sorts, limits and applies the ranking strategy
func (s *Service) score(query *models.SearchQuery, docs []*models.Document) []*models.SearchResult {
	results := make([]*models.SearchResult, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			continue
		}
		sim := similarity(query.Metric, query.Vector, doc.Embedding)
		if sim <= query.Threshold {
			continue
		}
		results = append(results, &models.SearchResult{
			Document:        doc,
			SimilarityScore: sim,
		})
	}

	applyRanking(results, query.Ranking, time.Now())

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results
}

// SearchByDocumentType is a convenience wrapper with a single-type filter
func (s *Service) SearchByDocumentType(ctx context.Context, userID string, vector []float32,
	docType models.DocType, limit int) ([]*models.SearchResult, error) {

	return s.SimilaritySearch(ctx, &models.SearchQuery{
		UserID:   userID,
		Vector:   vector,
		Limit:    limit,
		DocTypes: []models.DocType{docType},
	})
}

// MultiTypeSearch runs one search per type with its own limit
func (s *Service) MultiTypeSearch(ctx context.Context, userID string, vector []float32,
	limits map[models.DocType]int) (map[models.DocType][]*models.SearchResult, error) {

	out := make(map[models.DocType][]*models.SearchResult, len(limits))
	for docType, limit := range limits {
		results, err := s.SearchByDocumentType(ctx, userID, vector, docType, limit)
		if err != nil {
			return nil, err
		}
		out[docType] = results
	}
	return out, nil
}

// HybridSearch is vector-only for now; the text query is carried in
// result metadata for downstream consumers.
func (s *Service) HybridSearch(ctx context.Context, query *models.SearchQuery, textQuery string) ([]*models.SearchResult, error) {
	results, err := s.SimilaritySearch(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Metadata == nil {
			r.Metadata = make(map[string]interface{})
		}
		r.Metadata["text_query"] = textQuery
	}
	return results, nil
}

// GetSimilarDocuments searches with the source document's own vector
func (s *Service) GetSimilarDocuments(ctx context.Context, docID string, limit int) ([]*models.SearchResult, error) {
	doc, err := s.documents.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if len(doc.Embedding) == 0 {
		return nil, fmt.Errorf("document %s has no embedding", docID)
	}

	results, err := s.SimilaritySearch(ctx, &models.SearchQuery{
		UserID:    doc.UserID,
		Vector:    doc.Embedding,
		Threshold: 0.5,
		Limit:     limit + 1,
	})
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Document.ID == docID {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == limit {
			break
		}
	}
	for i, r := range filtered {
		r.Rank = i + 1
	}
	return filtered, nil
}

// BenchmarkQuery runs the query repeatedly, bypassing the cache
func (s *Service) BenchmarkQuery(ctx context.Context, query *models.SearchQuery, runs int) (*interfaces.BenchmarkStats, error) {
	if runs <= 0 {
		runs = 5
	}
	s.applyDefaults(query)

	stats := &interfaces.BenchmarkStats{Runs: runs}
	var total float64
	for i := 0; i < runs; i++ {
		start := time.Now()
		if _, _, err := s.searchWithRetry(ctx, query); err != nil {
			return nil, err
		}
		ms := float64(time.Since(start).Microseconds()) / 1000
		total += ms
		if i == 0 || ms < stats.MinMS {
			stats.MinMS = ms
		}
		if ms > stats.MaxMS {
			stats.MaxMS = ms
		}
	}
	stats.AvgMS = total / float64(runs)
	return stats, nil
}

// OptimizeSearchPerformance derives recommendations from recent timings
func (s *Service) OptimizeSearchPerformance() []string {
	s.timingMu.Lock()
	defer s.timingMu.Unlock()

	if len(s.timings) == 0 {
		return []string{"no recent queries to analyze"}
	}

	var totalMS, maxMS, totalResults float64
	for _, t := range s.timings {
		totalMS += t.QueryTimeMS
		if t.QueryTimeMS > maxMS {
			maxMS = t.QueryTimeMS
		}
		totalResults += float64(t.ReturnedCount)
	}
	avgMS := totalMS / float64(len(s.timings))
	avgResults := totalResults / float64(len(s.timings))

	var recs []string
	if avgMS > 500 {
		recs = append(recs, "average query time exceeds 500ms, consider tuning index parameters")
	}
	if maxMS > 2000 {
		recs = append(recs, "slowest query exceeds 2000ms, check for missing indexes")
	}
	if avgResults < 2 {
		recs = append(recs, "queries return few results on average, consider lowering the similarity threshold")
	}
	if len(recs) == 0 {
		recs = append(recs, "search performance is within expected bounds")
	}
	return recs
}

// InvalidateUser drops cached results after the user's documents change
func (s *Service) InvalidateUser(userID string) {
	s.cache.invalidateUser(userID)
}

func (s *Service) applyDefaults(query *models.SearchQuery) {
	if query.Metric == "" {
		query.Metric = models.SimilarityMetric(s.config.DefaultMetric)
	}
	if query.Metric == "" {
		query.Metric = models.MetricCosine
	}
	if query.Limit <= 0 {
		query.Limit = s.config.DefaultLimit
	}
	if query.Threshold == 0 {
		query.Threshold = s.config.Threshold
	}
	if query.Ranking == "" {
		query.Ranking = models.RankingSimilarityOnly
	}
}

func (s *Service) recordTiming(query *models.SearchQuery, elapsed time.Duration, searched, returned int) {
	timing := models.QueryTiming{
		UserID:        query.UserID,
		QueryTimeMS:   float64(elapsed.Microseconds()) / 1000,
		SearchedCount: searched,
		ReturnedCount: returned,
		Threshold:     query.Threshold,
		Timestamp:     time.Now(),
	}

	s.timingMu.Lock()
	if len(s.timings) < timingRingSize {
		s.timings = append(s.timings, timing)
	} else {
		s.timings[s.timingPos] = timing
		s.timingPos = (s.timingPos + 1) % timingRingSize
	}
	s.timingMu.Unlock()
}
