package interfaces

import (
	"context"

	"github.com/ternarybob/indago/internal/models"
)

// IndexBuilder performs the actual per-entity index update. Opaque to
// the queue: the processor hands it an index and an entity and treats
// any returned error as a per-entity build failure.
type IndexBuilder interface {
	// Apply indexes one entity into the given index, replacing any
	// entries the entity previously contributed
	Apply(ctx context.Context, index *models.IndexDefinition, entity *models.CatalogEntity) error
}

// BuilderRegistry resolves the builder for an index kind
type BuilderRegistry interface {
	// BuilderFor returns the builder for a kind, or nil when the kind
	// has no registered builder
	BuilderFor(kind models.IndexKind) IndexBuilder
}
