package interfaces

import (
	"context"
)

// SearchResult is one ranked hit from an index query
type SearchResult struct {
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
	Title    string  `json:"title,omitempty"`
}

// SearchService queries built indexes. The strategy (term ranking vs
// vector similarity) is selected from the index kind.
type SearchService interface {
	// Search runs a query against one index.
	// Returns ErrIndexNotFound for unknown indexes.
	Search(ctx context.Context, indexID, query string, limit int) ([]*SearchResult, error)
}
