// -------------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package index

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// Service manages index metadata records
type Service struct {
	storage  interfaces.IndexStorage
	search   interfaces.SearchStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewService creates an index metadata service
func NewService(storage interfaces.IndexStorage, search interfaces.SearchStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		search:   search,
		validate: validator.New(),
		logger:   logger,
	}
}

// Get returns an index record or ErrIndexNotFound
func (s *Service) Get(ctx context.Context, indexID string) (*models.IndexDefinition, error) {
	return s.storage.GetIndex(ctx, indexID)
}

// Create validates a spec, allocates an id and persists the record with
// status=building. The initial build is the caller's concern.
func (s *Service) Create(ctx context.Context, spec *models.IndexSpec) (*models.IndexDefinition, error) {
	if err := s.ValidateSpec(spec); err != nil {
		return nil, err
	}

	index := &models.IndexDefinition{
		ID:         common.NewIndexID(),
		Name:       spec.Name,
		EntityType: spec.EntityType,
		Kind:       spec.Kind,
		Status:     models.IndexStatusBuilding,
		CreatedAt:  time.Now(),
	}

	if err := s.storage.SaveIndex(ctx, index); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}

	s.logger.Info().
		Str("index_id", index.ID).
		Str("name", index.Name).
		Str("kind", string(index.Kind)).
		Msg("Index created")

	return index, nil
}

// Update applies a patch to an existing index record. Nil patch fields
// are left unchanged.
func (s *Service) Update(ctx context.Context, indexID string, patch *models.IndexPatch) error {
	index, err := s.storage.GetIndex(ctx, indexID)
	if err != nil {
		return err
	}

	if patch.Status != nil {
		index.Status = *patch.Status
	}
	if patch.DocumentCount != nil {
		index.DocumentCount = *patch.DocumentCount
	}
	if patch.LastBuildTime != nil {
		index.LastBuildTime = patch.LastBuildTime
	}
	if patch.LastUpdateTime != nil {
		index.LastUpdateTime = patch.LastUpdateTime
	}

	if err := s.storage.SaveIndex(ctx, index); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

// List returns all index records, newest first
func (s *Service) List(ctx context.Context) ([]*models.IndexDefinition, error) {
	return s.storage.ListIndexes(ctx)
}

// Delete removes an index record along with everything stored for it
func (s *Service) Delete(ctx context.Context, indexID string) error {
	if _, err := s.storage.GetIndex(ctx, indexID); err != nil {
		return err
	}

	if err := s.search.DeleteIndexEntries(ctx, indexID); err != nil {
		return fmt.Errorf("failed to delete index contents: %w", err)
	}
	if err := s.storage.DeleteIndex(ctx, indexID); err != nil {
		return fmt.Errorf("failed to delete index record: %w", err)
	}

	s.logger.Info().Str("index_id", indexID).Msg("Index deleted")
	return nil
}

// ValidateSpec checks a create payload without persisting anything
func (s *Service) ValidateSpec(spec *models.IndexSpec) error {
	if spec == nil {
		return fmt.Errorf("index spec is required")
	}
	if err := s.validate.Struct(spec); err != nil {
		return fmt.Errorf("invalid index spec: %w", err)
	}
	return nil
}
