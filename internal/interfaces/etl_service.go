package interfaces

import (
	"context"

	"github.com/aptihub/chatetl/internal/models"
)

// QueryExecutor runs the named legacy query catalog for one test record
type QueryExecutor interface {
	ExecuteAll(ctx context.Context, anpSeq int) (models.QueryResults, error)
	CoreQueryNames() []string
}

// Validator runs the three stage-level validation passes
type Validator interface {
	ValidateQueryResults(results models.QueryResults) *models.ValidationReport
	ValidateDocuments(docs []*models.Document) *models.ValidationReport
	ValidateEmbeddings(docs []*models.Document) *models.ValidationReport
}

// Transformer turns successful query rows into chunked documents
type Transformer interface {
	TransformAll(ctx context.Context, userID string, rows map[string][]models.QueryRow) []*models.Document
}

// ETLService drives job submission and execution
type ETLService interface {
	Submit(ctx context.Context, req *models.TestCompletionRequest) (*models.ETLJob, error)
	Run(ctx context.Context, msg *models.JobMessage) error
	Cancel(ctx context.Context, jobID string) error
	Retry(ctx context.Context, jobID string) (*models.ETLJob, error)
}
