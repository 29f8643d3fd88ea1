package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// Service provides access to the content catalog. The queue reads
// entities through it during builds; the HTTP surface uses it to seed
// and manage catalog items.
type Service struct {
	storage interfaces.EntityStorage
	logger  arbor.ILogger
}

// NewService creates a catalog entity service
func NewService(storage interfaces.EntityStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Count returns how many entities of one type exist
func (s *Service) Count(ctx context.Context, entityType string) (int, error) {
	return s.storage.CountEntities(ctx, entityType)
}

// Page returns entities of one type in stable ID order
func (s *Service) Page(ctx context.Context, entityType string, offset, limit int) ([]*models.CatalogEntity, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("page limit must be positive")
	}
	return s.storage.PageEntities(ctx, entityType, offset, limit)
}

// Get returns an entity or ErrEntityNotFound
func (s *Service) Get(ctx context.Context, entityType, entityID string) (*models.CatalogEntity, error) {
	return s.storage.GetEntity(ctx, entityType, entityID)
}

// Save upserts an entity, allocating an id and timestamps as needed
func (s *Service) Save(ctx context.Context, entity *models.CatalogEntity) (*models.CatalogEntity, error) {
	if entity == nil {
		return nil, fmt.Errorf("entity is required")
	}
	if entity.EntityType == "" {
		return nil, fmt.Errorf("entity type is required")
	}

	now := time.Now()
	if entity.ID == "" {
		entity.ID = common.NewEntityID()
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	if err := s.storage.SaveEntity(ctx, entity); err != nil {
		return nil, fmt.Errorf("failed to save entity: %w", err)
	}

	s.logger.Debug().
		Str("entity_id", entity.ID).
		Str("entity_type", entity.EntityType).
		Msg("Entity saved")

	return entity, nil
}

// Delete removes an entity from the catalog. Index entries the entity
// contributed are left for the next rebuild to reconcile.
func (s *Service) Delete(ctx context.Context, entityType, entityID string) error {
	return s.storage.DeleteEntity(ctx, entityType, entityID)
}
