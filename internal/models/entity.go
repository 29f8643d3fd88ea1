package models

import (
	"time"
)

// CatalogEntity is one item in the content catalog. Entities are the
// unit an index builder consumes; the queue never inspects their content.
type CatalogEntity struct {
	ID         string            `json:"id"`
	EntityType string            `json:"entity_type"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Tags       []string          `json:"tags,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
