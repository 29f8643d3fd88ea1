package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// IndexStorage implements the IndexStorage interface for Badger
type IndexStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewIndexStorage creates a new IndexStorage instance
func NewIndexStorage(db *BadgerDB, logger arbor.ILogger) interfaces.IndexStorage {
	return &IndexStorage{
		db:     db,
		logger: logger,
	}
}

func (s *IndexStorage) SaveIndex(ctx context.Context, index *models.IndexDefinition) error {
	if index == nil || index.ID == "" {
		return fmt.Errorf("index ID is required")
	}

	if err := s.db.Store().Upsert(index.ID, index); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

func (s *IndexStorage) GetIndex(ctx context.Context, indexID string) (*models.IndexDefinition, error) {
	var index models.IndexDefinition
	if err := s.db.Store().Get(indexID, &index); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrIndexNotFound
		}
		return nil, fmt.Errorf("failed to get index: %w", err)
	}
	return &index, nil
}

func (s *IndexStorage) ListIndexes(ctx context.Context) ([]*models.IndexDefinition, error) {
	var indexes []models.IndexDefinition
	if err := s.db.Store().Find(&indexes, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}

	result := make([]*models.IndexDefinition, len(indexes))
	for i := range indexes {
		result[i] = &indexes[i]
	}
	return result, nil
}

func (s *IndexStorage) DeleteIndex(ctx context.Context, indexID string) error {
	if err := s.db.Store().Delete(indexID, &models.IndexDefinition{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete index: %w", err)
	}
	return nil
}
