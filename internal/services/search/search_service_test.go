package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/ternarybob/indago/internal/services/builder"
)

type stubIndexService struct {
	indexes map[string]*models.IndexDefinition
}

func (s *stubIndexService) Get(ctx context.Context, indexID string) (*models.IndexDefinition, error) {
	index, ok := s.indexes[indexID]
	if !ok {
		return nil, interfaces.ErrIndexNotFound
	}
	return index, nil
}

func (s *stubIndexService) Create(ctx context.Context, spec *models.IndexSpec) (*models.IndexDefinition, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubIndexService) Update(ctx context.Context, indexID string, patch *models.IndexPatch) error {
	return nil
}

func (s *stubIndexService) List(ctx context.Context) ([]*models.IndexDefinition, error) {
	return nil, nil
}

func (s *stubIndexService) Delete(ctx context.Context, indexID string) error {
	return nil
}

func (s *stubIndexService) ValidateSpec(spec *models.IndexSpec) error {
	return nil
}

type stubEntityService struct {
	entities map[string]*models.CatalogEntity
}

func (s *stubEntityService) Count(ctx context.Context, entityType string) (int, error) {
	return len(s.entities), nil
}

func (s *stubEntityService) Page(ctx context.Context, entityType string, offset, limit int) ([]*models.CatalogEntity, error) {
	return nil, nil
}

func (s *stubEntityService) Get(ctx context.Context, entityType, entityID string) (*models.CatalogEntity, error) {
	entity, ok := s.entities[entityID]
	if !ok {
		return nil, interfaces.ErrEntityNotFound
	}
	return entity, nil
}

func (s *stubEntityService) Save(ctx context.Context, entity *models.CatalogEntity) (*models.CatalogEntity, error) {
	return entity, nil
}

func (s *stubEntityService) Delete(ctx context.Context, entityType, entityID string) error {
	return nil
}

type stubSearchStorage struct {
	mu       sync.Mutex
	postings []*interfaces.PostingEntry
	vectors  []*interfaces.VectorEntry
}

func (s *stubSearchStorage) SavePosting(ctx context.Context, entry *interfaces.PostingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postings = append(s.postings, entry)
	return nil
}

func (s *stubSearchStorage) GetPostings(ctx context.Context, indexID, term string) ([]*interfaces.PostingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*interfaces.PostingEntry
	for _, p := range s.postings {
		if p.IndexID == indexID && p.Term == term {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *stubSearchStorage) SaveVector(ctx context.Context, entry *interfaces.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = append(s.vectors, entry)
	return nil
}

func (s *stubSearchStorage) GetVectors(ctx context.Context, indexID string) ([]*interfaces.VectorEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*interfaces.VectorEntry
	for _, v := range s.vectors {
		if v.IndexID == indexID {
			result = append(result, v)
		}
	}
	return result, nil
}

func (s *stubSearchStorage) DeleteEntityEntries(ctx context.Context, indexID, entityID string) error {
	return nil
}

func (s *stubSearchStorage) DeleteIndexEntries(ctx context.Context, indexID string) error {
	return nil
}

func newTestService(kind models.IndexKind) (*Service, *stubSearchStorage, *stubEntityService) {
	indexes := &stubIndexService{indexes: map[string]*models.IndexDefinition{
		"idx_1": {ID: "idx_1", EntityType: "article", Kind: kind, Status: models.IndexStatusReady},
	}}
	entities := &stubEntityService{entities: map[string]*models.CatalogEntity{
		"ent_1": {ID: "ent_1", EntityType: "article", Title: "Job queues in Go"},
		"ent_2": {ID: "ent_2", EntityType: "article", Title: "Vector search basics"},
	}}
	storage := &stubSearchStorage{}
	return NewService(indexes, entities, storage, arbor.NewLogger()), storage, entities
}

func TestSearchUnknownIndex(t *testing.T) {
	svc, _, _ := newTestService(models.IndexKindText)
	_, err := svc.Search(context.Background(), "idx_missing", "query", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrIndexNotFound))
}

func TestSearchTextRanking(t *testing.T) {
	svc, storage, _ := newTestService(models.IndexKindText)
	ctx := context.Background()

	storage.SavePosting(ctx, &interfaces.PostingEntry{ID: "1", IndexID: "idx_1", Term: "queue", EntityID: "ent_1", Freq: 5})
	storage.SavePosting(ctx, &interfaces.PostingEntry{ID: "2", IndexID: "idx_1", Term: "queue", EntityID: "ent_2", Freq: 1})
	storage.SavePosting(ctx, &interfaces.PostingEntry{ID: "3", IndexID: "idx_1", Term: "retry", EntityID: "ent_1", Freq: 2})

	results, err := svc.Search(ctx, "idx_1", "queue retry", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// ent_1 scores 5+2, ent_2 scores 1
	assert.Equal(t, "ent_1", results[0].EntityID)
	assert.Equal(t, 7.0, results[0].Score)
	assert.Equal(t, "Job queues in Go", results[0].Title)
	assert.Equal(t, "ent_2", results[1].EntityID)
}

func TestSearchTextNoMatches(t *testing.T) {
	svc, _, _ := newTestService(models.IndexKindText)
	results, err := svc.Search(context.Background(), "idx_1", "nothing indexed", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchLimit(t *testing.T) {
	svc, storage, _ := newTestService(models.IndexKindText)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		storage.SavePosting(ctx, &interfaces.PostingEntry{
			ID:      fmt.Sprintf("p%d", i),
			IndexID: "idx_1", Term: "queue",
			EntityID: fmt.Sprintf("ent_x%d", i),
			Freq:     i + 1,
		})
	}

	results, err := svc.Search(ctx, "idx_1", "queue", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearchVectorRanking(t *testing.T) {
	svc, storage, _ := newTestService(models.IndexKindVector)
	ctx := context.Background()

	storage.SaveVector(ctx, &interfaces.VectorEntry{
		ID: "v1", IndexID: "idx_1", EntityID: "ent_1",
		Vector: builder.Embed("golang job queue scheduling"),
	})
	storage.SaveVector(ctx, &interfaces.VectorEntry{
		ID: "v2", IndexID: "idx_1", EntityID: "ent_2",
		Vector: builder.Embed("chocolate cake recipe baking"),
	})

	results, err := svc.Search(ctx, "idx_1", "golang queue", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "ent_1", results[0].EntityID)
}

func TestSearchTitleLookupTolerantOfMissingEntity(t *testing.T) {
	svc, storage, entities := newTestService(models.IndexKindText)
	ctx := context.Background()

	storage.SavePosting(ctx, &interfaces.PostingEntry{ID: "1", IndexID: "idx_1", Term: "queue", EntityID: "ent_gone", Freq: 1})
	delete(entities.entities, "ent_gone")

	results, err := svc.Search(ctx, "idx_1", "queue", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Title)
}
