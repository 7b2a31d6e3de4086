package interfaces

import (
	"context"

	"github.com/aptihub/chatetl/internal/models"
)

// UserStorage persists test takers
type UserStorage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByAnpSeq(ctx context.Context, anpSeq int) (*models.User, error)
	// EnsureUser creates a minimal user row when the id is unknown.
	// The second return reports whether a row was created.
	EnsureUser(ctx context.Context, id string, anpSeq int) (*models.User, bool, error)
	DeleteUser(ctx context.Context, id string) error
}

// JobStorage persists the per-job state machine
type JobStorage interface {
	CreateJob(ctx context.Context, job *models.ETLJob) error
	UpdateJob(ctx context.Context, jobID string, update *models.JobUpdate) error
	GetJob(ctx context.Context, jobID string) (*models.ETLJob, error)
	ListJobsByUser(ctx context.Context, userID string, limit int) ([]*models.ETLJob, error)
	DeleteJob(ctx context.Context, jobID string) error
	CountJobsByStatus(ctx context.Context) (map[models.JobStatus]int, error)
}

// DocumentStorage persists chunked documents. ReplaceUserDocuments is the
// only supported ETL write shape: delete-all then insert-all in one
// transaction.
type DocumentStorage interface {
	ReplaceUserDocuments(ctx context.Context, userID string, docs []*models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetUserDocuments(ctx context.Context, userID string, docTypes []models.DocType) ([]*models.Document, error)
	DeleteUserDocuments(ctx context.Context, userID string) error
	GetStats(ctx context.Context) (*models.DocumentStats, error)
}

// LegacyStorage runs raw reads against the legacy source schema
type LegacyStorage interface {
	QueryRows(ctx context.Context, sqlText string, anpSeq int) ([]models.QueryRow, error)
	// HasMinimumData reports whether the upstream preparation pipeline has
	// produced the minimal rows required to start an ETL run.
	HasMinimumData(ctx context.Context, anpSeq int) (bool, error)
}

// StorageManager aggregates the storage backends
type StorageManager interface {
	UserStorage() UserStorage
	JobStorage() JobStorage
	DocumentStorage() DocumentStorage
	LegacyStorage() LegacyStorage
	Close() error
}
