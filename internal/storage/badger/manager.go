package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	job    interfaces.JobStorage
	index  interfaces.IndexStorage
	entity interfaces.EntityStorage
	search interfaces.SearchStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		job:    NewJobStorage(db, logger),
		index:  NewIndexStorage(db, logger),
		entity: NewEntityStorage(db, logger),
		search: NewSearchStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// IndexStorage returns the Index storage interface
func (m *Manager) IndexStorage() interfaces.IndexStorage {
	return m.index
}

// EntityStorage returns the Entity storage interface
func (m *Manager) EntityStorage() interfaces.EntityStorage {
	return m.entity
}

// SearchStorage returns the Search storage interface
func (m *Manager) SearchStorage() interfaces.SearchStorage {
	return m.search
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
