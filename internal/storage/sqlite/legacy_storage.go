package sqlite

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// LegacyStorage runs raw reads against the mirrored legacy source tables.
// Every catalog query takes the anp_seq as its single positional parameter.
type LegacyStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewLegacyStorage creates a new legacy storage instance
func NewLegacyStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.LegacyStorage {
	return &LegacyStorage{db: db, logger: logger}
}

// QueryRows executes one catalog query and returns flat key/value records
func (l *LegacyStorage) QueryRows(ctx context.Context, sqlText string, anpSeq int) ([]models.QueryRow, error) {
	rows, err := l.db.db.QueryContext(ctx, sqlText, anpSeq)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []models.QueryRow
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		record := make(models.QueryRow, len(columns))
		for i, col := range columns {
			v := values[i]
			// normalize driver byte slices to strings
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			record[col] = v
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// HasMinimumData reports whether the upstream pipeline has produced the
// minimal rows required to start an ETL run for this test record.
func (l *LegacyStorage) HasMinimumData(ctx context.Context, anpSeq int) (bool, error) {
	var recordCount int
	err := l.db.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM legacy_test_records WHERE anp_seq = ?", anpSeq).Scan(&recordCount)
	if err != nil {
		return false, err
	}
	if recordCount == 0 {
		return false, nil
	}

	var tendencyCount int
	err = l.db.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM legacy_tendencies WHERE anp_seq = ?", anpSeq).Scan(&tendencyCount)
	if err != nil {
		return false, err
	}
	return tendencyCount > 0, nil
}
