package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/indago/internal/models"
)

// Sentinel errors shared by storage implementations
var (
	ErrJobNotFound    = errors.New("job not found")
	ErrIndexNotFound  = errors.New("index not found")
	ErrEntityNotFound = errors.New("entity not found")
)

// JobStorage persists index job records, one durable record per job id.
// A record is the sole source of truth on restart.
type JobStorage interface {
	// SaveJob upserts a job record
	SaveJob(ctx context.Context, job *models.IndexJob) error

	// GetJob returns a job record or ErrJobNotFound
	GetJob(ctx context.Context, jobID string) (*models.IndexJob, error)

	// LoadAll returns every persisted job record
	LoadAll(ctx context.Context) ([]*models.IndexJob, error)

	// DeleteJob removes a job record. Missing records are not an error.
	DeleteJob(ctx context.Context, jobID string) error

	// MarkInterruptedJobs rewrites every record with status=processing to
	// status=retrying and returns how many were rewritten. Called once on
	// startup before the scheduler is enabled.
	MarkInterruptedJobs(ctx context.Context) (int, error)
}

// IndexStorage persists index metadata records
type IndexStorage interface {
	SaveIndex(ctx context.Context, index *models.IndexDefinition) error
	GetIndex(ctx context.Context, indexID string) (*models.IndexDefinition, error)
	ListIndexes(ctx context.Context) ([]*models.IndexDefinition, error)
	DeleteIndex(ctx context.Context, indexID string) error
}

// EntityStorage provides read access to the content catalog plus
// conventional CRUD for the management surface
type EntityStorage interface {
	SaveEntity(ctx context.Context, entity *models.CatalogEntity) error
	GetEntity(ctx context.Context, entityType, entityID string) (*models.CatalogEntity, error)
	CountEntities(ctx context.Context, entityType string) (int, error)
	// PageEntities returns entities of one type ordered by ID, for
	// batch scans during rebuilds
	PageEntities(ctx context.Context, entityType string, offset, limit int) ([]*models.CatalogEntity, error)
	DeleteEntity(ctx context.Context, entityType, entityID string) error
}

// PostingEntry is one term occurrence written by the text builder
type PostingEntry struct {
	ID       string `json:"id"` // indexID|term|entityID
	IndexID  string `json:"index_id"`
	Term     string `json:"term"`
	EntityID string `json:"entity_id"`
	Freq     int    `json:"freq"`
}

// VectorEntry is one embedded entity written by the vector builder
type VectorEntry struct {
	ID       string    `json:"id"` // indexID|entityID
	IndexID  string    `json:"index_id"`
	EntityID string    `json:"entity_id"`
	Vector   []float32 `json:"vector"`
}

// SearchStorage persists the index contents written by builders
type SearchStorage interface {
	SavePosting(ctx context.Context, entry *PostingEntry) error
	GetPostings(ctx context.Context, indexID, term string) ([]*PostingEntry, error)
	SaveVector(ctx context.Context, entry *VectorEntry) error
	GetVectors(ctx context.Context, indexID string) ([]*VectorEntry, error)
	// DeleteEntityEntries removes every posting and vector an entity
	// contributed to an index, ahead of re-indexing it
	DeleteEntityEntries(ctx context.Context, indexID, entityID string) error
	// DeleteIndexEntries removes everything stored for an index
	DeleteIndexEntries(ctx context.Context, indexID string) error
}

// StorageManager provides access to all storage implementations
type StorageManager interface {
	JobStorage() JobStorage
	IndexStorage() IndexStorage
	EntityStorage() EntityStorage
	SearchStorage() SearchStorage
	Close() error
}
