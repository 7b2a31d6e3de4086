package sqlite

import (
	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
)

// Manager aggregates the SQLite-backed storages
type Manager struct {
	db        *SQLiteDB
	users     interfaces.UserStorage
	jobs      interfaces.JobStorage
	documents interfaces.DocumentStorage
	legacy    interfaces.LegacyStorage
	logger    arbor.ILogger
}

// NewManager opens the database and wires the storage instances
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig) (interfaces.StorageManager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}

	users := NewUserStorage(db, logger)
	return &Manager{
		db:        db,
		users:     users,
		jobs:      NewJobStorage(db, users, logger),
		documents: NewDocumentStorage(db, logger),
		legacy:    NewLegacyStorage(db, logger),
		logger:    logger,
	}, nil
}

// UserStorage returns the user storage
func (m *Manager) UserStorage() interfaces.UserStorage { return m.users }

// JobStorage returns the job storage
func (m *Manager) JobStorage() interfaces.JobStorage { return m.jobs }

// DocumentStorage returns the document storage
func (m *Manager) DocumentStorage() interfaces.DocumentStorage { return m.documents }

// LegacyStorage returns the legacy source storage
func (m *Manager) LegacyStorage() interfaces.LegacyStorage { return m.legacy }

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
