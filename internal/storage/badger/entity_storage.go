package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EntityStorage implements the EntityStorage interface for Badger
type EntityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEntityStorage creates a new EntityStorage instance
func NewEntityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EntityStorage {
	return &EntityStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EntityStorage) SaveEntity(ctx context.Context, entity *models.CatalogEntity) error {
	if entity == nil || entity.ID == "" {
		return fmt.Errorf("entity ID is required")
	}
	if entity.EntityType == "" {
		return fmt.Errorf("entity type is required")
	}

	if err := s.db.Store().Upsert(entity.ID, entity); err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

func (s *EntityStorage) GetEntity(ctx context.Context, entityType, entityID string) (*models.CatalogEntity, error) {
	var entity models.CatalogEntity
	if err := s.db.Store().Get(entityID, &entity); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	if entityType != "" && entity.EntityType != entityType {
		return nil, interfaces.ErrEntityNotFound
	}
	return &entity, nil
}

func (s *EntityStorage) CountEntities(ctx context.Context, entityType string) (int, error) {
	count, err := s.db.Store().Count(&models.CatalogEntity{}, badgerhold.Where("EntityType").Eq(entityType))
	if err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return int(count), nil
}

// PageEntities returns one page of entities ordered by ID so rebuild
// scans see a stable order across batches.
func (s *EntityStorage) PageEntities(ctx context.Context, entityType string, offset, limit int) ([]*models.CatalogEntity, error) {
	query := badgerhold.Where("EntityType").Eq(entityType).SortBy("ID")
	if offset > 0 {
		query = query.Skip(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entities []models.CatalogEntity
	if err := s.db.Store().Find(&entities, query); err != nil {
		return nil, fmt.Errorf("failed to page entities: %w", err)
	}

	result := make([]*models.CatalogEntity, len(entities))
	for i := range entities {
		result[i] = &entities[i]
	}
	return result, nil
}

func (s *EntityStorage) DeleteEntity(ctx context.Context, entityType, entityID string) error {
	// Verify type before deleting so one catalog type cannot remove
	// another's record through a mistyped request
	if _, err := s.GetEntity(ctx, entityType, entityID); err != nil {
		return err
	}

	if err := s.db.Store().Delete(entityID, &models.CatalogEntity{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	return nil
}
