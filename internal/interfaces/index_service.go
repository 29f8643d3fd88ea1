package interfaces

import (
	"context"

	"github.com/ternarybob/indago/internal/models"
)

// IndexService is the index metadata store collaborator consumed by the
// queue: existence checks at submission time, record creation for create
// jobs, and patch updates during builds.
type IndexService interface {
	// Get returns an index record or ErrIndexNotFound
	Get(ctx context.Context, indexID string) (*models.IndexDefinition, error)

	// Create validates a spec, allocates a real index ID and persists
	// the metadata record with status=building
	Create(ctx context.Context, spec *models.IndexSpec) (*models.IndexDefinition, error)

	// Update applies a patch to an existing index record
	Update(ctx context.Context, indexID string, patch *models.IndexPatch) error

	// List returns all index records
	List(ctx context.Context) ([]*models.IndexDefinition, error)

	// Delete removes an index record and its stored contents
	Delete(ctx context.Context, indexID string) error

	// ValidateSpec checks a create payload without persisting anything
	ValidateSpec(spec *models.IndexSpec) error
}

// EntityService is the entity store collaborator: paginated read access
// to the catalog items an index covers
type EntityService interface {
	Count(ctx context.Context, entityType string) (int, error)
	Page(ctx context.Context, entityType string, offset, limit int) ([]*models.CatalogEntity, error)
	Get(ctx context.Context, entityType, entityID string) (*models.CatalogEntity, error)
	Save(ctx context.Context, entity *models.CatalogEntity) (*models.CatalogEntity, error)
	Delete(ctx context.Context, entityType, entityID string) error
}
