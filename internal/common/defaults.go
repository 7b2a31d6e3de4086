package common

// DefaultConfig returns the baseline configuration before file and
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:               "./data/chatetl.db",
				CacheSizeMB:        64,
				BusyTimeoutMS:      5000,
				WALMode:            true,
				EmbeddingDimension: 768,
			},
			Badger: BadgerConfig{
				Path:           "./data/queue",
				ResetOnStartup: false,
			},
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			Concurrency:       5,
			VisibilityTimeout: "30m",
			MaxReceive:        3,
			QueueName:         "etl-jobs",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		ETL: ETLConfig{
			MaxConcurrentJobs:       5,
			JobTimeoutMinutes:       30,
			MaxRetriesPerStage:      2,
			RetryDelaySeconds:       60,
			EnablePartialCompletion: true,
			EnableRollback:          true,
			ValidationLevel:         "standard",
			RelaxedValidation:       true,
			ReadinessPollSeconds:    3,
			ReadinessMaxAttempts:    120,
			ReadinessForceAttempt:   100,
		},
		Embedding: EmbeddingConfig{
			BatchSize:          5,
			RateLimitPerMinute: 60,
			EnableCache:        true,
			CacheTTLHours:      24,
			CacheMaxEntries:    2000,
			MaxTextChars:       30000,
			MaxRetries:         3,
		},
		Search: SearchConfig{
			CacheTTL:        "5m",
			CacheMaxEntries: 500,
			DefaultLimit:    10,
			DefaultMetric:   "cosine",
			MaxRetries:      3,
			Threshold:       0.5,
		},
		RAG: RAGConfig{
			TokenBudget:       4000,
			RetrievalLimit:    10,
			ContextDocuments:  5,
			MinSimilarity:     0.5,
			FallbackThreshold: 0.3,
			MemoryTurns:       5,
		},
		LLM: LLMConfig{
			Mode:            "gemini",
			EmbedModelName:  "gemini-embedding-001",
			ChatModelName:   "gemini-2.0-flash",
			EmbedDimension:  768,
			Timeout:         "30s",
			Temperature:     0.7,
			TopP:            0.9,
			TopK:            40,
			MaxOutputTokens: 2048,
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			Timeout:   "30s",
			MaxTokens: 2048,
		},
		Monitoring: MonitoringConfig{
			Enabled:       true,
			AlertSchedule: "*/5 * * * *",
			WindowHours:   24,
		},
	}
}
