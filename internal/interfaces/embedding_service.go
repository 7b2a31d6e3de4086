package interfaces

import (
	"context"

	"github.com/aptihub/chatetl/internal/models"
)

// EmbeddingResult is the outcome of a single embedding generation
type EmbeddingResult struct {
	Vector       []float32 `json:"-"`
	Dimensions   int       `json:"dimensions"`
	Cached       bool      `json:"cached"`
	ProcessingMS int64     `json:"processing_ms"`
}

// EmbeddingService generates vectors for text, with caching, rate limiting
// and graceful batch degradation.
type EmbeddingService interface {
	// GenerateEmbedding embeds one text. Fails hard on empty input or
	// provider validation errors.
	GenerateEmbedding(ctx context.Context, text string) (*EmbeddingResult, error)

	// GenerateBatch embeds many texts; the result list aligns with the
	// input. A per-item failure yields a zero-vector placeholder.
	GenerateBatch(ctx context.Context, texts []string) ([]*EmbeddingResult, error)

	// EnrichDocuments sets Embedding and EmbeddingModel on each document,
	// using SearchableText when present, else SummaryText.
	EnrichDocuments(ctx context.Context, docs []*models.Document) error

	// Dimension returns the registered embedding dimension
	Dimension() int

	// VerifyDimension probes the provider once and checks the returned
	// vector length against the registered dimension.
	VerifyDimension(ctx context.Context) error

	// IsAvailable reports whether the provider responds to a health check
	IsAvailable(ctx context.Context) bool
}
