package builder

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// Registry resolves builders by index kind
type Registry struct {
	builders map[models.IndexKind]interfaces.IndexBuilder
}

// NewRegistry creates a registry with the text and vector builders
// registered
func NewRegistry(storage interfaces.SearchStorage, logger arbor.ILogger) *Registry {
	return &Registry{
		builders: map[models.IndexKind]interfaces.IndexBuilder{
			models.IndexKindText:   NewTextBuilder(storage, logger),
			models.IndexKindVector: NewVectorBuilder(storage, logger),
		},
	}
}

// Register adds or replaces the builder for a kind
func (r *Registry) Register(kind models.IndexKind, b interfaces.IndexBuilder) {
	r.builders[kind] = b
}

// BuilderFor returns the builder for a kind, or nil when unknown
func (r *Registry) BuilderFor(kind models.IndexKind) interfaces.IndexBuilder {
	return r.builders[kind]
}
