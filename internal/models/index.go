package models

import (
	"time"
)

// IndexKind selects the builder and search strategy for an index
type IndexKind string

const (
	IndexKindText   IndexKind = "text"   // Term postings with frequency ranking
	IndexKindVector IndexKind = "vector" // Feature-hash embeddings with cosine similarity
)

// Valid reports whether k is a known index kind
func (k IndexKind) Valid() bool {
	return k == IndexKindText || k == IndexKindVector
}

// IndexStatus tracks build state of an index
type IndexStatus string

const (
	IndexStatusBuilding IndexStatus = "building"
	IndexStatusReady    IndexStatus = "ready"
	IndexStatusFailed   IndexStatus = "failed"
)

// IndexDefinition is the metadata record for one search index
type IndexDefinition struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	EntityType     string      `json:"entity_type"` // Category of catalog item the index covers
	Kind           IndexKind   `json:"kind"`
	Status         IndexStatus `json:"status"`
	DocumentCount  int         `json:"document_count"`
	CreatedAt      time.Time   `json:"created_at"`
	LastBuildTime  *time.Time  `json:"last_build_time,omitempty"`  // Completion time of the last full build
	LastUpdateTime *time.Time  `json:"last_update_time,omitempty"` // Most recent single-entity update
}

// IndexSpec is the payload for creating a new index.
// Validated at submission time; the metadata record itself is only
// created when the create job runs.
type IndexSpec struct {
	Name       string    `json:"name" validate:"required"`
	EntityType string    `json:"entity_type" validate:"required"`
	Kind       IndexKind `json:"kind" validate:"required,oneof=text vector"`
}

// IndexPatch holds optional field updates for an index record.
// Nil fields are left unchanged.
type IndexPatch struct {
	Status         *IndexStatus
	DocumentCount  *int
	LastBuildTime  *time.Time
	LastUpdateTime *time.Time
}
