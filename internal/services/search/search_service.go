// -------------------------------------------------------------------------
// Last Modified: Friday, 21st August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/ternarybob/indago/internal/services/builder"
)

// Service queries built indexes. Text indexes rank by summed term
// frequency; vector indexes rank by cosine similarity against a
// feature-hash embedding of the query.
type Service struct {
	indexes  interfaces.IndexService
	entities interfaces.EntityService
	storage  interfaces.SearchStorage
	logger   arbor.ILogger
}

// NewService creates a search service
func NewService(indexes interfaces.IndexService, entities interfaces.EntityService, storage interfaces.SearchStorage, logger arbor.ILogger) *Service {
	return &Service{
		indexes:  indexes,
		entities: entities,
		storage:  storage,
		logger:   logger,
	}
}

// Search runs a query against one index and returns ranked results
func (s *Service) Search(ctx context.Context, indexID, query string, limit int) ([]*interfaces.SearchResult, error) {
	index, err := s.indexes.Get(ctx, indexID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	var scores map[string]float64
	switch index.Kind {
	case models.IndexKindText:
		scores, err = s.searchText(ctx, indexID, query)
	case models.IndexKindVector:
		scores, err = s.searchVector(ctx, indexID, query)
	default:
		return nil, fmt.Errorf("unsupported index kind: %s", index.Kind)
	}
	if err != nil {
		return nil, err
	}

	results := make([]*interfaces.SearchResult, 0, len(scores))
	for entityID, score := range scores {
		if score <= 0 {
			continue
		}
		results = append(results, &interfaces.SearchResult{EntityID: entityID, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].EntityID < results[j].EntityID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	for _, r := range results {
		entity, err := s.entities.Get(ctx, index.EntityType, r.EntityID)
		if err != nil {
			// Entity deleted since indexing; leave the title empty
			continue
		}
		r.Title = entity.Title
	}

	s.logger.Debug().
		Str("index_id", indexID).
		Str("query", query).
		Int("results", len(results)).
		Msg("Search executed")

	return results, nil
}

// searchText sums posting frequencies per entity across query terms
func (s *Service) searchText(ctx context.Context, indexID, query string) (map[string]float64, error) {
	scores := make(map[string]float64)
	for _, term := range builder.Tokenize(query) {
		postings, err := s.storage.GetPostings(ctx, indexID, term)
		if err != nil {
			return nil, fmt.Errorf("failed to load postings for %s: %w", term, err)
		}
		for _, p := range postings {
			scores[p.EntityID] += float64(p.Freq)
		}
	}
	return scores, nil
}

// searchVector scores every stored vector by cosine similarity
func (s *Service) searchVector(ctx context.Context, indexID, query string) (map[string]float64, error) {
	queryVec := builder.Embed(query)

	vectors, err := s.storage.GetVectors(ctx, indexID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	scores := make(map[string]float64, len(vectors))
	for _, v := range vectors {
		scores[v.EntityID] = builder.Cosine(queryVec, v.Vector)
	}
	return scores, nil
}
