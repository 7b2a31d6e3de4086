package models

import "time"

// SimilarityMetric selects the distance expression used by vector search
type SimilarityMetric string

const (
	MetricCosine       SimilarityMetric = "cosine"
	MetricL2           SimilarityMetric = "l2"
	MetricInnerProduct SimilarityMetric = "inner_product"
)

// RankingStrategy adjusts raw similarity scores before results are returned
type RankingStrategy string

const (
	RankingSimilarityOnly  RankingStrategy = "similarity_only"
	RankingRecencyWeighted RankingStrategy = "recency_weighted"
	RankingTypePrioritized RankingStrategy = "type_prioritized"
	RankingHybrid          RankingStrategy = "hybrid"
)

// SearchQuery describes one similarity search. Results are always scoped
// to UserID.
type SearchQuery struct {
	UserID    string
	Vector    []float32
	Metric    SimilarityMetric
	Threshold float64
	Limit     int
	DocTypes  []DocType
	Ranking   RankingStrategy
}

// SearchResult is one ranked hit
type SearchResult struct {
	Document        *Document `json:"document"`
	SimilarityScore float64   `json:"similarity_score"`
	AdjustedScore   float64   `json:"adjusted_score"`
	Rank            int       `json:"rank"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// QueryTiming is one entry of the in-memory performance ring
type QueryTiming struct {
	UserID        string    `json:"user_id"`
	QueryTimeMS   float64   `json:"query_time_ms"`
	SearchedCount int       `json:"searched_count"`
	ReturnedCount int       `json:"returned_count"`
	Threshold     float64   `json:"threshold"`
	Timestamp     time.Time `json:"timestamp"`
}
