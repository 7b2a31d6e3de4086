package interfaces

import (
	"context"

	"github.com/aptihub/chatetl/internal/models"
)

// BenchmarkStats summarizes repeated query timings
type BenchmarkStats struct {
	Runs  int     `json:"runs"`
	AvgMS float64 `json:"avg_ms"`
	MinMS float64 `json:"min_ms"`
	MaxMS float64 `json:"max_ms"`
}

// SearchService is the vector search engine over stored documents
type SearchService interface {
	SimilaritySearch(ctx context.Context, query *models.SearchQuery) ([]*models.SearchResult, error)
	SearchByDocumentType(ctx context.Context, userID string, vector []float32, docType models.DocType, limit int) ([]*models.SearchResult, error)
	MultiTypeSearch(ctx context.Context, userID string, vector []float32, limits map[models.DocType]int) (map[models.DocType][]*models.SearchResult, error)
	// HybridSearch is currently vector-only; textQuery is attached to
	// result metadata for downstream use.
	HybridSearch(ctx context.Context, query *models.SearchQuery, textQuery string) ([]*models.SearchResult, error)
	// GetSimilarDocuments searches with the source document's own vector,
	// excluding the document itself, with a 0.5 similarity floor.
	GetSimilarDocuments(ctx context.Context, docID string, limit int) ([]*models.SearchResult, error)
	BenchmarkQuery(ctx context.Context, query *models.SearchQuery, runs int) (*BenchmarkStats, error)
	OptimizeSearchPerformance() []string
}
