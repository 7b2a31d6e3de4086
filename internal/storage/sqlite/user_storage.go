package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// UserStorage implements interfaces.UserStorage
type UserStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewUserStorage creates a new user storage instance
func NewUserStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.UserStorage {
	return &UserStorage{db: db, logger: logger}
}

// SaveUser inserts or updates a user row
func (s *UserStorage) SaveUser(ctx context.Context, user *models.User) error {
	var completedAt sql.NullInt64
	if user.TestCompletedAt != nil {
		completedAt = sql.NullInt64{Int64: user.TestCompletedAt.Unix(), Valid: true}
	}

	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO users (user_id, anp_seq, name, test_completed_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			anp_seq = excluded.anp_seq,
			name = excluded.name,
			test_completed_at = excluded.test_completed_at
	`, user.ID, user.AnpSeq, user.Name, completedAt, user.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id
func (s *UserStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT user_id, anp_seq, name, test_completed_at, created_at
		FROM users WHERE user_id = ?
	`, id)
	return scanUser(row)
}

// GetUserByAnpSeq retrieves a user by external sequence number
func (s *UserStorage) GetUserByAnpSeq(ctx context.Context, anpSeq int) (*models.User, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT user_id, anp_seq, name, test_completed_at, created_at
		FROM users WHERE anp_seq = ?
	`, anpSeq)
	return scanUser(row)
}

// EnsureUser creates a minimal user row when the id is unknown
func (s *UserStorage) EnsureUser(ctx context.Context, id string, anpSeq int) (*models.User, bool, error) {
	user, err := s.GetUser(ctx, id)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	user = &models.User{
		ID:        id,
		AnpSeq:    anpSeq,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveUser(ctx, user); err != nil {
		return nil, false, err
	}

	s.logger.Info().
		Str("user_id", id).
		Int("anp_seq", anpSeq).
		Msg("Created minimal user row")

	return user, true, nil
}

// DeleteUser removes a user row
func (s *UserStorage) DeleteUser(ctx context.Context, id string) error {
	_, err := s.db.db.ExecContext(ctx, "DELETE FROM users WHERE user_id = ?", id)
	return err
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var name sql.NullString
	var completedAt sql.NullInt64
	var createdAt int64

	err := row.Scan(&user.ID, &user.AnpSeq, &name, &completedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.Name = name.String
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		user.TestCompletedAt = &t
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}
