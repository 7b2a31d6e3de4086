package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment" validate:"omitempty,oneof=development production"`
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Queue       QueueConfig      `toml:"queue"`
	Logging     LoggingConfig    `toml:"logging"`
	ETL         ETLConfig        `toml:"etl"`
	Embedding   EmbeddingConfig  `toml:"embedding"`
	Search      SearchConfig     `toml:"search"`
	RAG         RAGConfig        `toml:"rag"`
	LLM         LLMConfig        `toml:"llm"`
	Claude      ClaudeConfig     `toml:"claude"`
	Monitoring  MonitoringConfig `toml:"monitoring"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
	Badger BadgerConfig `toml:"badger"`
}

// SQLiteConfig configures the persistent relational store
type SQLiteConfig struct {
	Path               string `toml:"path"`
	CacheSizeMB        int    `toml:"cache_size_mb"`
	BusyTimeoutMS      int    `toml:"busy_timeout_ms"`
	WALMode            bool   `toml:"wal_mode"`
	EmbeddingDimension int    `toml:"embedding_dimension" validate:"gt=0"`
}

// BadgerConfig configures the persistent work queue store
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// QueueConfig configures the ETL work queue and worker pool
type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`
	Concurrency       int    `toml:"concurrency" validate:"gt=0"`
	VisibilityTimeout string `toml:"visibility_timeout"`
	MaxReceive        int    `toml:"max_receive"`
	QueueName         string `toml:"queue_name"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
}

// ETLConfig controls the staged pipeline behavior
type ETLConfig struct {
	MaxConcurrentJobs       int    `toml:"max_concurrent_jobs" validate:"gt=0"`
	JobTimeoutMinutes       int    `toml:"job_timeout_minutes" validate:"gt=0"`
	MaxRetriesPerStage      int    `toml:"max_retries_per_stage" validate:"gte=0"`
	RetryDelaySeconds       int    `toml:"retry_delay_seconds" validate:"gt=0"`
	EnablePartialCompletion bool   `toml:"enable_partial_completion"`
	EnableRollback          bool   `toml:"enable_rollback"`
	ValidationLevel         string `toml:"validation_level" validate:"oneof=basic standard strict"`
	RelaxedValidation       bool   `toml:"relaxed_validation"`
	ReadinessPollSeconds    int    `toml:"readiness_poll_seconds" validate:"gt=0"`
	ReadinessMaxAttempts    int    `toml:"readiness_max_attempts" validate:"gt=0"`
	ReadinessForceAttempt   int    `toml:"readiness_force_attempt" validate:"gte=0"`
}

// EmbeddingConfig controls the embedding client
type EmbeddingConfig struct {
	BatchSize          int  `toml:"batch_size" validate:"gt=0"`
	RateLimitPerMinute int  `toml:"rate_limit_per_minute" validate:"gt=0"`
	EnableCache        bool `toml:"enable_cache"`
	CacheTTLHours      int  `toml:"cache_ttl_hours" validate:"gt=0"`
	CacheMaxEntries    int  `toml:"cache_max_entries" validate:"gt=0"`
	MaxTextChars       int  `toml:"max_text_chars" validate:"gt=0"`
	MaxRetries         int  `toml:"max_retries" validate:"gte=0"`
}

// SearchConfig controls the vector search service
type SearchConfig struct {
	CacheTTL        string  `toml:"cache_ttl"`
	CacheMaxEntries int     `toml:"cache_max_entries" validate:"gt=0"`
	DefaultLimit    int     `toml:"default_limit" validate:"gt=0"`
	DefaultMetric   string  `toml:"default_metric" validate:"oneof=cosine l2 inner_product"`
	MaxRetries      int     `toml:"max_retries" validate:"gte=0"`
	Threshold       float64 `toml:"threshold"`
}

// RAGConfig controls retrieval-augmented generation
type RAGConfig struct {
	TokenBudget       int     `toml:"token_budget" validate:"gt=0"`
	RetrievalLimit    int     `toml:"retrieval_limit" validate:"gt=0"`
	ContextDocuments  int     `toml:"context_documents" validate:"gt=0"`
	MinSimilarity     float64 `toml:"min_similarity"`
	FallbackThreshold float64 `toml:"fallback_threshold"`
	MemoryTurns       int     `toml:"memory_turns" validate:"gt=0"`
}

// LLMConfig configures the primary (Gemini) provider
type LLMConfig struct {
	Mode            string  `toml:"mode" validate:"oneof=gemini claude"`
	GoogleAPIKey    string  `toml:"google_api_key"`
	EmbedModelName  string  `toml:"embed_model_name"`
	ChatModelName   string  `toml:"chat_model_name"`
	EmbedDimension  int     `toml:"embed_dimension" validate:"gt=0"`
	Timeout         string  `toml:"timeout"`
	Temperature     float64 `toml:"temperature"`
	TopP            float64 `toml:"top_p"`
	TopK            int     `toml:"top_k"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
}

// ClaudeConfig configures the alternate chat provider
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	Timeout   string `toml:"timeout"`
	MaxTokens int    `toml:"max_tokens"`
}

// MonitoringConfig controls preference monitoring and alerting
type MonitoringConfig struct {
	Enabled       bool   `toml:"enabled"`
	AlertSchedule string `toml:"alert_schedule"`
	WindowHours   int    `toml:"window_hours" validate:"gt=0"`
}

// LoadConfig loads configuration with layered precedence:
// defaults -> config files (in order) -> environment variables
func LoadConfig(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against struct tags
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.LLM.EmbedDimension != c.Storage.SQLite.EmbeddingDimension {
		return fmt.Errorf("llm.embed_dimension (%d) must match storage.sqlite.embedding_dimension (%d)",
			c.LLM.EmbedDimension, c.Storage.SQLite.EmbeddingDimension)
	}
	return nil
}

// JobTimeout returns the per-job wallclock cap
func (c *ETLConfig) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutMinutes) * time.Minute
}

// ReadinessPollInterval returns the readiness polling interval
func (c *ETLConfig) ReadinessPollInterval() time.Duration {
	return time.Duration(c.ReadinessPollSeconds) * time.Second
}

// PollIntervalDuration parses the worker poll interval, defaulting to 2s
func (c *QueueConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// VisibilityTimeoutDuration parses the message visibility timeout,
// defaulting to 5m.
func (c *QueueConfig) VisibilityTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.VisibilityTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// applyEnvOverrides applies environment variable overrides on top of file config
func applyEnvOverrides(config *Config) {
	setString := func(key string, target *string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	setInt := func(key string, target *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}
	setBool := func(key string, target *bool) {
		if v := os.Getenv(key); v != "" {
			*target = strings.EqualFold(v, "true") || v == "1"
		}
	}

	setString("DATABASE_PATH", &config.Storage.SQLite.Path)
	setString("GOOGLE_API_KEY", &config.LLM.GoogleAPIKey)
	setString("GEMINI_API_KEY", &config.LLM.GoogleAPIKey)
	setString("ANTHROPIC_API_KEY", &config.Claude.APIKey)

	setInt("ETL_MAX_CONCURRENT_JOBS", &config.ETL.MaxConcurrentJobs)
	setInt("ETL_JOB_TIMEOUT_MINUTES", &config.ETL.JobTimeoutMinutes)
	setInt("ETL_MAX_RETRIES", &config.ETL.MaxRetriesPerStage)
	setInt("ETL_RETRY_DELAY_SECONDS", &config.ETL.RetryDelaySeconds)
	setBool("ETL_ENABLE_PARTIAL_COMPLETION", &config.ETL.EnablePartialCompletion)
	setBool("ETL_ENABLE_ROLLBACK", &config.ETL.EnableRollback)
	setString("ETL_VALIDATION_LEVEL", &config.ETL.ValidationLevel)

	setInt("EMBEDDING_BATCH_SIZE", &config.Embedding.BatchSize)
	setInt("EMBEDDING_RATE_LIMIT_PER_MINUTE", &config.Embedding.RateLimitPerMinute)
	setBool("EMBEDDING_ENABLE_CACHE", &config.Embedding.EnableCache)
	setInt("EMBEDDING_CACHE_TTL_HOURS", &config.Embedding.CacheTTLHours)

	setString("CHATETL_LOG_LEVEL", &config.Logging.Level)
	setString("CHATETL_LLM_MODE", &config.LLM.Mode)
}
