package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// DocumentStorage implements interfaces.DocumentStorage over chat_documents
type DocumentStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new document storage instance
func NewDocumentStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{db: db, logger: logger}
}

// ReplaceUserDocuments atomically replaces the user's document set:
// delete all existing rows, insert the provided documents in order, commit.
// On any failure the transaction is rolled back and the previous set is
// preserved.
func (d *DocumentStorage) ReplaceUserDocuments(ctx context.Context, userID string, docs []*models.Document) error {
	tx, err := d.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chat_documents WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete existing documents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chat_documents (
			doc_id, user_id, doc_type, content, summary_text, searchable_text,
			metadata, embedding, embedding_model, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, doc := range docs {
		contentJSON, err := json.Marshal(doc.Content)
		if err != nil {
			return fmt.Errorf("failed to marshal content for %s: %w", doc.ID, err)
		}
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}

		var embeddingData []byte
		if len(doc.Embedding) > 0 {
			embeddingData = serializeEmbedding(doc.Embedding)
		}

		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		if _, err := stmt.ExecContext(ctx,
			doc.ID, userID, string(doc.DocType), string(contentJSON),
			doc.SummaryText, doc.SearchableText, string(metadataJSON),
			embeddingData, doc.EmbeddingModel,
			createdAt.Unix(), now.Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document replacement: %w", err)
	}

	d.logger.Info().
		Str("user_id", userID).
		Int("count", len(docs)).
		Msg("Replaced user documents")

	return nil
}

// GetDocument retrieves one document by id
func (d *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := d.db.db.QueryRowContext(ctx, docSelectColumns+" FROM chat_documents WHERE doc_id = ?", id)
	doc, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	return doc, err
}

// GetUserDocuments retrieves the user's documents, optionally filtered by type
func (d *DocumentStorage) GetUserDocuments(ctx context.Context, userID string, docTypes []models.DocType) ([]*models.Document, error) {
	query := docSelectColumns + " FROM chat_documents WHERE user_id = ?"
	args := []interface{}{userID}

	if len(docTypes) > 0 {
		placeholders := make([]string, len(docTypes))
		for i, dt := range docTypes {
			placeholders[i] = "?"
			args = append(args, string(dt))
		}
		query += " AND doc_type IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at DESC"

	rows, err := d.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteUserDocuments removes all documents for a user
func (d *DocumentStorage) DeleteUserDocuments(ctx context.Context, userID string) error {
	_, err := d.db.db.ExecContext(ctx, "DELETE FROM chat_documents WHERE user_id = ?", userID)
	return err
}

// GetStats retrieves corpus statistics
func (d *DocumentStorage) GetStats(ctx context.Context) (*models.DocumentStats, error) {
	stats := &models.DocumentStats{DocumentsByType: make(map[models.DocType]int)}

	if err := d.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_documents").Scan(&stats.TotalDocuments); err != nil {
		return nil, err
	}
	if err := d.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_documents WHERE embedding IS NOT NULL").Scan(&stats.VectorizedCount); err != nil {
		return nil, err
	}

	rows, err := d.db.db.QueryContext(ctx, "SELECT doc_type, COUNT(*) FROM chat_documents GROUP BY doc_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var docType string
		var count int
		if err := rows.Scan(&docType, &count); err != nil {
			return nil, err
		}
		stats.DocumentsByType[models.DocType(docType)] = count
	}
	return stats, rows.Err()
}

const docSelectColumns = `
	SELECT doc_id, user_id, doc_type, content, summary_text, searchable_text,
		metadata, embedding, embedding_model, created_at, updated_at`

func scanDocument(scan func(...interface{}) error) (*models.Document, error) {
	var doc models.Document
	var docType, contentJSON, metadataJSON string
	var searchableText, embeddingModel sql.NullString
	var embeddingData []byte
	var createdAt, updatedAt int64

	err := scan(
		&doc.ID, &doc.UserID, &docType, &contentJSON, &doc.SummaryText,
		&searchableText, &metadataJSON, &embeddingData, &embeddingModel,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.DocType = models.DocType(docType)
	doc.SearchableText = searchableText.String
	doc.EmbeddingModel = embeddingModel.String
	doc.CreatedAt = time.Unix(createdAt, 0).UTC()
	doc.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if err := json.Unmarshal([]byte(contentJSON), &doc.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content for %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", doc.ID, err)
	}
	if len(embeddingData) > 0 {
		embedding, err := deserializeEmbedding(embeddingData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize embedding for %s: %w", doc.ID, err)
		}
		doc.Embedding = embedding
	}
	return &doc, nil
}

// serializeEmbedding encodes the vector as little-endian float32 bytes
func serializeEmbedding(embedding []float32) []byte {
	data := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		bits := math.Float32bits(v)
		data[i*4] = byte(bits)
		data[i*4+1] = byte(bits >> 8)
		data[i*4+2] = byte(bits >> 16)
		data[i*4+3] = byte(bits >> 24)
	}
	return data
}

func deserializeEmbedding(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding data length: %d", len(data))
	}
	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		bits := uint32(data[i*4]) |
			uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 |
			uint32(data[i*4+3])<<24
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding, nil
}
