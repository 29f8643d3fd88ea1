package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// SearchStorage implements the SearchStorage interface for Badger.
// Builders write posting and vector entries here; the search service
// reads them back at query time.
type SearchStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSearchStorage creates a new SearchStorage instance
func NewSearchStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SearchStorage {
	return &SearchStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SearchStorage) SavePosting(ctx context.Context, entry *interfaces.PostingEntry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("posting ID is required")
	}
	if err := s.db.Store().Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to save posting: %w", err)
	}
	return nil
}

func (s *SearchStorage) GetPostings(ctx context.Context, indexID, term string) ([]*interfaces.PostingEntry, error) {
	var entries []interfaces.PostingEntry
	query := badgerhold.Where("IndexID").Eq(indexID).And("Term").Eq(term)
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to get postings: %w", err)
	}

	result := make([]*interfaces.PostingEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}

func (s *SearchStorage) SaveVector(ctx context.Context, entry *interfaces.VectorEntry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("vector ID is required")
	}
	if err := s.db.Store().Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to save vector: %w", err)
	}
	return nil
}

func (s *SearchStorage) GetVectors(ctx context.Context, indexID string) ([]*interfaces.VectorEntry, error) {
	var entries []interfaces.VectorEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("IndexID").Eq(indexID)); err != nil {
		return nil, fmt.Errorf("failed to get vectors: %w", err)
	}

	result := make([]*interfaces.VectorEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}

// DeleteEntityEntries removes postings and vectors an entity
// contributed to an index so a re-index starts clean
func (s *SearchStorage) DeleteEntityEntries(ctx context.Context, indexID, entityID string) error {
	postingQuery := badgerhold.Where("IndexID").Eq(indexID).And("EntityID").Eq(entityID)
	if err := s.db.Store().DeleteMatching(&interfaces.PostingEntry{}, postingQuery); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete postings: %w", err)
	}

	vectorQuery := badgerhold.Where("IndexID").Eq(indexID).And("EntityID").Eq(entityID)
	if err := s.db.Store().DeleteMatching(&interfaces.VectorEntry{}, vectorQuery); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

func (s *SearchStorage) DeleteIndexEntries(ctx context.Context, indexID string) error {
	if err := s.db.Store().DeleteMatching(&interfaces.PostingEntry{}, badgerhold.Where("IndexID").Eq(indexID)); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete index postings: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&interfaces.VectorEntry{}, badgerhold.Where("IndexID").Eq(indexID)); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete index vectors: %w", err)
	}
	return nil
}
