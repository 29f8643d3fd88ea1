package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// fakeClock is a manually-advanced clock. Tickers never fire; tests
// drive dispatch through Resume.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	return &fakeTicker{ch: make(chan time.Time)}
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

// memJobStorage is an in-memory JobStorage. Errors can be injected to
// exercise the failure paths.
type memJobStorage struct {
	mu      sync.Mutex
	jobs    map[string]*models.IndexJob
	saveErr error
	markErr error
}

func newMemJobStorage() *memJobStorage {
	return &memJobStorage{jobs: make(map[string]*models.IndexJob)}
}

func (s *memJobStorage) failSaves(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

func (s *memJobStorage) failMarkInterrupted(err error) {
	s.mu.Lock()
	s.markErr = err
	s.mu.Unlock()
}

func (s *memJobStorage) SaveJob(ctx context.Context, job *models.IndexJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *memJobStorage) GetJob(ctx context.Context, jobID string) (*models.IndexJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *memJobStorage) LoadAll(ctx context.Context) ([]*models.IndexJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*models.IndexJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, job.Clone())
	}
	return result, nil
}

func (s *memJobStorage) DeleteJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

func (s *memJobStorage) MarkInterruptedJobs(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return 0, s.markErr
	}
	count := 0
	for _, job := range s.jobs {
		if job.Status == models.JobStatusProcessing {
			job.Status = models.JobStatusRetrying
			count++
		}
	}
	return count, nil
}

// fakeIndexService is an in-memory IndexService
type fakeIndexService struct {
	mu      sync.Mutex
	indexes map[string]*models.IndexDefinition
}

func newFakeIndexService() *fakeIndexService {
	return &fakeIndexService{indexes: make(map[string]*models.IndexDefinition)}
}

func (s *fakeIndexService) addIndex(index *models.IndexDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[index.ID] = index
}

func (s *fakeIndexService) Get(ctx context.Context, indexID string) (*models.IndexDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.indexes[indexID]
	if !ok {
		return nil, interfaces.ErrIndexNotFound
	}
	copied := *index
	return &copied, nil
}

func (s *fakeIndexService) Create(ctx context.Context, spec *models.IndexSpec) (*models.IndexDefinition, error) {
	if err := s.ValidateSpec(spec); err != nil {
		return nil, err
	}
	index := &models.IndexDefinition{
		ID:         common.NewIndexID(),
		Name:       spec.Name,
		EntityType: spec.EntityType,
		Kind:       spec.Kind,
		Status:     models.IndexStatusBuilding,
		CreatedAt:  time.Now(),
	}
	s.addIndex(index)
	return index, nil
}

func (s *fakeIndexService) Update(ctx context.Context, indexID string, patch *models.IndexPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.indexes[indexID]
	if !ok {
		return interfaces.ErrIndexNotFound
	}
	if patch.Status != nil {
		index.Status = *patch.Status
	}
	if patch.DocumentCount != nil {
		index.DocumentCount = *patch.DocumentCount
	}
	if patch.LastBuildTime != nil {
		index.LastBuildTime = patch.LastBuildTime
	}
	if patch.LastUpdateTime != nil {
		index.LastUpdateTime = patch.LastUpdateTime
	}
	return nil
}

func (s *fakeIndexService) List(ctx context.Context) ([]*models.IndexDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*models.IndexDefinition, 0, len(s.indexes))
	for _, index := range s.indexes {
		copied := *index
		result = append(result, &copied)
	}
	return result, nil
}

func (s *fakeIndexService) Delete(ctx context.Context, indexID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, indexID)
	return nil
}

func (s *fakeIndexService) ValidateSpec(spec *models.IndexSpec) error {
	if spec == nil || spec.Name == "" || spec.EntityType == "" {
		return fmt.Errorf("invalid index spec")
	}
	if !spec.Kind.Valid() {
		return fmt.Errorf("invalid index kind: %s", spec.Kind)
	}
	return nil
}

// fakeEntityService serves a fixed set of entities
type fakeEntityService struct {
	mu       sync.Mutex
	entities map[string]*models.CatalogEntity
}

func newFakeEntityService() *fakeEntityService {
	return &fakeEntityService{entities: make(map[string]*models.CatalogEntity)}
}

func (s *fakeEntityService) seed(entityType string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("ent_%04d", i)
		s.entities[entityType+"/"+id] = &models.CatalogEntity{
			ID:         id,
			EntityType: entityType,
			Title:      fmt.Sprintf("Entity %d", i),
			Body:       "body text",
		}
	}
}

func (s *fakeEntityService) Count(ctx context.Context, entityType string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.entities {
		if e.EntityType == entityType {
			count++
		}
	}
	return count, nil
}

func (s *fakeEntityService) Page(ctx context.Context, entityType string, offset, limit int) ([]*models.CatalogEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*models.CatalogEntity
	for _, e := range s.entities {
		if e.EntityType == entityType {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *fakeEntityService) Get(ctx context.Context, entityType, entityID string) (*models.CatalogEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[entityType+"/"+entityID]
	if !ok {
		return nil, interfaces.ErrEntityNotFound
	}
	return entity, nil
}

func (s *fakeEntityService) Save(ctx context.Context, entity *models.CatalogEntity) (*models.CatalogEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entity.EntityType+"/"+entity.ID] = entity
	return entity, nil
}

func (s *fakeEntityService) Delete(ctx context.Context, entityType, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, entityType+"/"+entityID)
	return nil
}

// fakeBuilder counts Apply calls and can fail selectively
type fakeBuilder struct {
	mu      sync.Mutex
	applied int
	failFor map[string]bool
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{failFor: make(map[string]bool)}
}

func (b *fakeBuilder) Apply(ctx context.Context, index *models.IndexDefinition, entity *models.CatalogEntity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failFor[entity.ID] {
		return fmt.Errorf("builder failure for %s", entity.ID)
	}
	b.applied++
	return nil
}

func (b *fakeBuilder) appliedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applied
}

type fakeBuilderRegistry struct {
	builder interfaces.IndexBuilder
}

func (r *fakeBuilderRegistry) BuilderFor(kind models.IndexKind) interfaces.IndexBuilder {
	return r.builder
}

// newTestQueue builds a queue wired to in-memory fakes. Tick and sync
// intervals are effectively disabled; tests drive dispatch via Resume.
func newTestQueue(config Config, clock *fakeClock) (*Queue, *memJobStorage, *fakeIndexService, *fakeEntityService, *fakeBuilder) {
	if config.TickInterval == 0 {
		config.TickInterval = time.Hour
	}
	if config.SyncInterval == 0 {
		config.SyncInterval = time.Hour
	}
	if config.DrainTimeout == 0 {
		config.DrainTimeout = 5 * time.Second
	}

	storage := newMemJobStorage()
	indexes := newFakeIndexService()
	entities := newFakeEntityService()
	builder := newFakeBuilder()

	q, err := NewQueue(config, Deps{
		Storage:  storage,
		Indexes:  indexes,
		Entities: entities,
		Builders: &fakeBuilderRegistry{builder: builder},
		Clock:    clock,
	})
	if err != nil {
		panic(err)
	}
	return q, storage, indexes, entities, builder
}
