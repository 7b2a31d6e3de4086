package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// Handler processes one dequeued job message
type Handler func(ctx context.Context, msg *models.JobMessage) error

// WorkerPool runs a fixed number of workers that poll the queue and feed
// messages to the handler. A message is acked only after the handler
// returns nil; failed messages reappear after the visibility timeout and
// eventually dead-letter.
type WorkerPool struct {
	queue        interfaces.JobQueue
	handler      Handler
	concurrency  int
	pollInterval time.Duration
	logger       arbor.ILogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a worker pool over the queue
func NewWorkerPool(queue interfaces.JobQueue, handler Handler, concurrency int,
	pollInterval time.Duration, logger arbor.ILogger) *WorkerPool {

	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &WorkerPool{
		queue:        queue,
		handler:      handler,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Start launches the workers. It returns immediately.
func (p *WorkerPool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.worker(runCtx, i+1)
	}
	p.logger.Info().Int("concurrency", p.concurrency).Msg("Queue worker pool started")
}

// Stop signals the workers and waits for in-flight jobs to finish
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info().Msg("Queue worker pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, ack, err := p.queue.Receive(ctx)
		if err != nil {
			if !errors.Is(err, models.ErrQueueEmpty) {
				p.logger.Warn().Err(err).Int("worker", id).Msg("Queue receive failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		if err := p.handler(ctx, msg); err != nil {
			p.logger.Warn().Err(err).
				Int("worker", id).
				Str("job_id", msg.JobID).
				Msg("Job handler failed, message will be redelivered")
			continue
		}
		if err := ack(); err != nil {
			p.logger.Warn().Err(err).
				Int("worker", id).
				Str("job_id", msg.JobID).
				Msg("Failed to ack message")
		}
	}
}
