package app

import (
	"context"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/handlers"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
	"github.com/aptihub/chatetl/internal/queue"
	"github.com/aptihub/chatetl/internal/services/embeddings"
	"github.com/aptihub/chatetl/internal/services/etl"
	"github.com/aptihub/chatetl/internal/services/legacy"
	"github.com/aptihub/chatetl/internal/services/llm"
	"github.com/aptihub/chatetl/internal/services/metrics"
	"github.com/aptihub/chatetl/internal/services/monitoring"
	"github.com/aptihub/chatetl/internal/services/question"
	"github.com/aptihub/chatetl/internal/services/ragcontext"
	"github.com/aptihub/chatetl/internal/services/response"
	"github.com/aptihub/chatetl/internal/services/search"
	"github.com/aptihub/chatetl/internal/services/transform"
	"github.com/aptihub/chatetl/internal/services/validation"
	"github.com/aptihub/chatetl/internal/storage/sqlite"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	Metrics        interfaces.MetricsRegistry

	// LLM providers
	Gemini  *llm.GeminiService
	ChatLLM interfaces.LLMService

	// Pipeline services
	Embedder     interfaces.EmbeddingService
	Executor     interfaces.QueryExecutor
	Validator    interfaces.Validator
	Transformer  interfaces.Transformer
	Orchestrator *etl.Orchestrator

	// Retrieval and chat services
	SearchService *search.Service
	Questions     interfaces.QuestionService
	Builder       interfaces.ContextBuilder
	Generator     *response.Generator

	// Queue
	badgerDB   *badger.DB
	JobQueue   interfaces.JobQueue
	WorkerPool *queue.WorkerPool

	// Monitoring
	Monitor *monitoring.Monitor

	// HTTP handlers
	ETLHandler        *handlers.ETLHandler
	ChatHandler       *handlers.ChatHandler
	MonitoringHandler *handlers.MonitoringHandler
}

// New wires the full application from configuration
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config:  config,
		Logger:  logger,
		Metrics: metrics.NewRegistry(),
	}

	storageManager, err := sqlite.NewManager(logger, &config.Storage.SQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	// Gemini is always constructed: it serves embeddings in both chat modes
	gemini, err := llm.NewGeminiService(&config.LLM, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize Gemini service: %w", err)
	}
	a.Gemini = gemini

	chatLLM, err := llm.NewChatService(config, gemini, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize chat LLM: %w", err)
	}
	a.ChatLLM = chatLLM

	a.Embedder = embeddings.NewClient(gemini, &config.Embedding,
		config.LLM.EmbedDimension, config.LLM.EmbedModelName, logger)

	executor, err := legacy.NewExecutor(storageManager.LegacyStorage(), a.Metrics, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load query catalog: %w", err)
	}
	a.Executor = executor

	a.Validator = validation.NewValidator(
		models.ValidationLevel(config.ETL.ValidationLevel),
		config.ETL.RelaxedValidation,
		criticalQueries(executor),
		config.LLM.EmbedDimension,
		logger,
	)
	a.Transformer = transform.NewTransformer(a.Metrics, logger)

	a.SearchService = search.NewService(storageManager.DocumentStorage(),
		&config.Search, a.Metrics, logger)
	a.Questions = question.NewProcessor(a.Embedder, logger)
	a.Builder = ragcontext.NewBuilder(a.SearchService, &config.RAG, logger)
	a.Generator = response.NewGenerator(chatLLM, &config.RAG, a.Metrics, logger)

	if err := a.openQueue(); err != nil {
		a.Close()
		return nil, err
	}

	a.Orchestrator = etl.NewOrchestrator(&config.ETL, storageManager, executor,
		a.Validator, a.Transformer, a.Embedder, a.JobQueue, a.SearchService,
		a.Metrics, logger)
	concurrency := config.Queue.Concurrency
	if config.ETL.MaxConcurrentJobs > 0 && concurrency > config.ETL.MaxConcurrentJobs {
		concurrency = config.ETL.MaxConcurrentJobs
	}
	a.WorkerPool = queue.NewWorkerPool(a.JobQueue, a.Orchestrator.Run,
		concurrency, config.Queue.PollIntervalDuration(), logger)

	a.Monitor = monitoring.NewMonitor(&config.Monitoring, a.Metrics, storageManager, logger)

	a.ETLHandler = handlers.NewETLHandler(a.Orchestrator, storageManager,
		a.JobQueue, a.Embedder, a.Metrics, logger)
	a.ChatHandler = handlers.NewChatHandler(a.Questions, a.Builder, a.Generator, logger)
	a.MonitoringHandler = handlers.NewMonitoringHandler(a.Monitor, logger)

	return a, nil
}

// Start launches the background components
func (a *App) Start(ctx context.Context) error {
	if err := a.Embedder.VerifyDimension(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Embedding dimension probe failed, continuing with degraded embeddings")
	}

	a.WorkerPool.Start(ctx)
	if err := a.Monitor.Start(); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}
	return nil
}

// Close stops background components and releases resources
func (a *App) Close() {
	if a.WorkerPool != nil {
		a.WorkerPool.Stop()
	}
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	if a.JobQueue != nil {
		if err := a.JobQueue.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close job queue")
		}
	}
	if a.badgerDB != nil {
		if err := a.badgerDB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close badger database")
		}
	}
	if a.ChatLLM != nil {
		if err := a.ChatLLM.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close chat LLM")
		}
	}
	// In claude mode the Gemini client still serves embeddings and needs
	// its own close
	if a.Gemini != nil && a.ChatLLM != interfaces.LLMService(a.Gemini) {
		if err := a.Gemini.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close Gemini service")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}

// openQueue opens the Badger store and the ETL work queue on top of it
func (a *App) openQueue() error {
	cfg := a.Config.Storage.Badger

	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.ResetOnStartup {
			if err := os.RemoveAll(cfg.Path); err != nil {
				return fmt.Errorf("failed to reset queue store: %w", err)
			}
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}
	a.badgerDB = db

	jobQueue, err := queue.NewBadgerQueue(db, &a.Config.Queue, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create job queue: %w", err)
	}
	a.JobQueue = jobQueue
	return nil
}

// criticalQueries derives the validator's critical set: the core catalog
// queries that downstream documents cannot be built without. The user
// profile query stays non-critical, a missing profile degrades to an
// unavailable document.
func criticalQueries(executor interfaces.QueryExecutor) []string {
	var out []string
	for _, name := range executor.CoreQueryNames() {
		if name == "userProfileQuery" {
			continue
		}
		out = append(out, name)
	}
	return out
}
