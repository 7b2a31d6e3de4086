package embeddings

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// Client implements interfaces.EmbeddingService on top of the Gemini
// embedder, adding preprocessing, caching, rate limiting and retries.
type Client struct {
	llm       interfaces.LLMService
	cache     *Cache
	limiter   *rate.Limiter
	config    *common.EmbeddingConfig
	dimension int
	model     string
	logger    arbor.ILogger
}

// NewClient creates a new embedding client
func NewClient(llm interfaces.LLMService, config *common.EmbeddingConfig, dimension int, model string, logger arbor.ILogger) interfaces.EmbeddingService {
	var cache *Cache
	if config.EnableCache {
		cache = NewCache(config.CacheMaxEntries, time.Duration(config.CacheTTLHours)*time.Hour)
	}

	perMinute := config.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}

	return &Client{
		llm:       llm,
		cache:     cache,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		config:    config,
		dimension: dimension,
		model:     model,
		logger:    logger,
	}
}

// GenerateEmbedding embeds a single text. Empty input and provider
// validation errors fail hard; transient errors are retried with backoff.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) (*interfaces.EmbeddingResult, error) {
	cleaned := c.preprocess(text)
	if cleaned == "" {
		return nil, fmt.Errorf("invalid input: text is empty after preprocessing")
	}

	start := time.Now()

	if c.cache != nil {
		if vector, ok := c.cache.Get(CacheKey(cleaned, c.model)); ok {
			return &interfaces.EmbeddingResult{
				Vector:       vector,
				Dimensions:   len(vector),
				Cached:       true,
				ProcessingMS: time.Since(start).Milliseconds(),
			}, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	vector, err := c.embedWithRetry(ctx, cleaned)
	if err != nil {
		return nil, err
	}

	if len(vector) != c.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", c.dimension, len(vector))
	}

	if c.cache != nil {
		c.cache.Put(CacheKey(cleaned, c.model), vector)
	}

	return &interfaces.EmbeddingResult{
		Vector:       vector,
		Dimensions:   len(vector),
		Cached:       false,
		ProcessingMS: time.Since(start).Milliseconds(),
	}, nil
}

// GenerateBatch embeds many texts. Per-item failures degrade to a
// zero-vector placeholder of the registered dimension.
func (c *Client) GenerateBatch(ctx context.Context, texts []string) ([]*interfaces.EmbeddingResult, error) {
	results := make([]*interfaces.EmbeddingResult, len(texts))
	for i, text := range texts {
		result, err := c.GenerateEmbedding(ctx, text)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Int("index", i).
				Msg("Batch embedding item failed, inserting zero vector")
			results[i] = &interfaces.EmbeddingResult{
				Vector:     make([]float32, c.dimension),
				Dimensions: c.dimension,
			}
			continue
		}
		results[i] = result
	}
	return results, nil
}

// EnrichDocuments sets embeddings on each document from its searchable text
func (c *Client) EnrichDocuments(ctx context.Context, docs []*models.Document) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.EmbeddingInput()
	}

	results, err := c.GenerateBatch(ctx, texts)
	if err != nil {
		return err
	}

	for i, doc := range docs {
		doc.Embedding = results[i].Vector
		doc.EmbeddingModel = c.model
	}

	c.logger.Info().
		Int("documents", len(docs)).
		Msg("Enriched documents with embeddings")

	return nil
}

// Dimension returns the registered embedding dimension
func (c *Client) Dimension() int {
	return c.dimension
}

// VerifyDimension probes the provider once and checks the vector length
func (c *Client) VerifyDimension(ctx context.Context) error {
	result, err := c.GenerateEmbedding(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("dimension probe failed: %w", err)
	}
	if result.Dimensions != c.dimension {
		return fmt.Errorf("embedding dimension mismatch at boot: expected %d, got %d",
			c.dimension, result.Dimensions)
	}
	return nil
}

// IsAvailable reports whether the provider responds to a health check
func (c *Client) IsAvailable(ctx context.Context) bool {
	if c.llm == nil {
		return false
	}
	if err := c.llm.HealthCheck(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("Embedding provider not available")
		return false
	}
	return true
}

// preprocess collapses whitespace and truncates to the character cap
func (c *Client) preprocess(text string) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	maxChars := c.config.MaxTextChars
	if maxChars <= 0 {
		maxChars = 30000
	}
	if len(cleaned) > maxChars {
		c.logger.Warn().
			Int("original_length", len(cleaned)).
			Int("truncated_to", maxChars).
			Msg("Truncated text for embedding")
		truncated := cleaned[:maxChars]
		cleaned = strings.ToValidUTF8(truncated, "")
	}
	return cleaned
}

// embedWithRetry applies exponential backoff with jitter on transient
// errors; validation-style errors are not retried.
func (c *Client) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	attempts := c.config.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		vector, err := c.llm.Embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err

		kind, _, retryable := models.ClassifyError(err)
		if !retryable || attempt == attempts {
			return nil, fmt.Errorf("embedding failed (%s): %w", kind, err)
		}

		delay := time.Duration(1<<uint(attempt-1)) * time.Second
		delay += time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Transient embedding error, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
