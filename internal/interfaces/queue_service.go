package interfaces

import (
	"context"

	"github.com/aptihub/chatetl/internal/models"
)

// JobQueue is a persistent at-least-once work queue for ETL jobs.
// Receive returns the next visible message together with an ack function
// that removes it; an unacked message becomes visible again after the
// queue's visibility timeout.
type JobQueue interface {
	Enqueue(ctx context.Context, msg *models.JobMessage) error
	Receive(ctx context.Context) (*models.JobMessage, func() error, error)
	Depth() (int, error)
	Close() error
}
