package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

const (
	waitFor  = 3 * time.Second
	pollTick = 10 * time.Millisecond
)

func seedIndex(indexes *fakeIndexService, id, entityType string, kind models.IndexKind) {
	indexes.addIndex(&models.IndexDefinition{
		ID:         id,
		Name:       id,
		EntityType: entityType,
		Kind:       kind,
		Status:     models.IndexStatusReady,
	})
}

func waitForStatus(t *testing.T, q *Queue, jobID string, status models.JobStatus) *models.IndexJob {
	t.Helper()
	require.Eventually(t, func() bool {
		job := q.Get(jobID)
		return job != nil && job.Status == status
	}, waitFor, pollTick, "job %s never reached %s", jobID, status)
	return q.Get(jobID)
}

func TestSubmitUpdateUnknownIndex(t *testing.T) {
	clock := newFakeClock()
	q, _, _, _, _ := newTestQueue(NewDefaultConfig(), clock)
	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	_, err := q.SubmitUpdate(context.Background(), "idx_missing", "article", "ent_1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrIndexNotFound))

	counts := q.GetCounts()
	assert.Empty(t, counts)
}

func TestSubmitInvalidPriority(t *testing.T) {
	clock := newFakeClock()
	q, _, indexes, entities, _ := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)
	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	opts := &interfaces.SubmitOptions{Priority: "urgent"}
	_, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", opts)
	require.Error(t, err)
	assert.Empty(t, q.GetCounts())
}

func TestDispatchPriorityOrder(t *testing.T) {
	clock := newFakeClock()
	config := NewDefaultConfig()
	config.MaxConcurrent = 1
	q, _, indexes, entities, _ := newTestQueue(config, clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	var mu sync.Mutex
	var order []models.JobPriority
	q.Handlers().Register(models.JobTypeUpdate, func(ctx context.Context, jc *JobContext) error {
		mu.Lock()
		order = append(order, jc.Job.Priority)
		mu.Unlock()
		return nil
	})

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())
	q.Pause()

	for _, priority := range []models.JobPriority{models.PriorityLow, models.PriorityNormal, models.PriorityHigh} {
		opts := &interfaces.SubmitOptions{Priority: priority}
		_, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", opts)
		require.NoError(t, err)
		clock.Advance(time.Millisecond)
	}

	q.Resume()

	require.Eventually(t, func() bool {
		return q.GetCounts()[models.JobStatusCompleted] == 3
	}, waitFor, pollTick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []models.JobPriority{models.PriorityHigh, models.PriorityNormal, models.PriorityLow}, order)
}

func TestDispatchFIFOWithinPriority(t *testing.T) {
	clock := newFakeClock()
	config := NewDefaultConfig()
	config.MaxConcurrent = 1
	q, _, indexes, entities, _ := newTestQueue(config, clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	var mu sync.Mutex
	var order []string
	q.Handlers().Register(models.JobTypeUpdate, func(ctx context.Context, jc *JobContext) error {
		mu.Lock()
		order = append(order, jc.Job.ID)
		mu.Unlock()
		return nil
	})

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())
	q.Pause()

	var submitted []string
	for i := 0; i < 5; i++ {
		jobID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
		require.NoError(t, err)
		submitted = append(submitted, jobID)
		clock.Advance(time.Millisecond)
	}

	q.Resume()

	require.Eventually(t, func() bool {
		return q.GetCounts()[models.JobStatusCompleted] == 5
	}, waitFor, pollTick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, submitted, order)
}

func TestMaxConcurrentCeiling(t *testing.T) {
	clock := newFakeClock()
	config := NewDefaultConfig()
	config.MaxConcurrent = 2
	q, _, indexes, entities, _ := newTestQueue(config, clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	var mu sync.Mutex
	running, peak := 0, 0
	q.Handlers().Register(models.JobTypeUpdate, func(ctx context.Context, jc *JobContext) error {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	})

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())
	q.Pause()

	for i := 0; i < 6; i++ {
		_, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
		require.NoError(t, err)
		clock.Advance(time.Millisecond)
	}

	q.Resume()

	require.Eventually(t, func() bool {
		return q.GetCounts()[models.JobStatusCompleted] == 6
	}, waitFor, pollTick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, peak, "expected exactly two jobs processing at the peak")
}

func TestRetryAfterDelay(t *testing.T) {
	clock := newFakeClock()
	config := NewDefaultConfig()
	config.RetryDelay = 30 * time.Second
	config.MaxAttempts = 3
	q, _, indexes, entities, _ := newTestQueue(config, clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	var mu sync.Mutex
	attempts := 0
	q.Handlers().Register(models.JobTypeUpdate, func(ctx context.Context, jc *JobContext) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient failure")
		}
		return nil
	})

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	jobID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.NoError(t, err)
	q.Resume()

	job := waitForStatus(t, q, jobID, models.JobStatusRetrying)
	assert.Equal(t, 1, job.Attempts)
	assert.Contains(t, job.Error, "transient failure")
	assert.NotNil(t, job.StartedAt)

	// Before the delay elapses the job must stay retrying
	clock.Advance(10 * time.Second)
	q.Resume()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, models.JobStatusRetrying, q.Get(jobID).Status)

	clock.Advance(25 * time.Second)
	q.Resume()

	job = waitForStatus(t, q, jobID, models.JobStatusCompleted)
	assert.Equal(t, 2, job.Attempts)
	assert.NotNil(t, job.CompletedAt)
}

func TestPermanentFailureAfterMaxAttempts(t *testing.T) {
	clock := newFakeClock()
	config := NewDefaultConfig()
	config.RetryDelay = 30 * time.Second
	config.MaxAttempts = 2
	q, _, indexes, entities, _ := newTestQueue(config, clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	q.Handlers().Register(models.JobTypeUpdate, func(ctx context.Context, jc *JobContext) error {
		return errors.New("persistent failure")
	})

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	jobID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.NoError(t, err)
	q.Resume()

	waitForStatus(t, q, jobID, models.JobStatusRetrying)

	clock.Advance(time.Minute)
	q.Resume()

	job := waitForStatus(t, q, jobID, models.JobStatusFailed)
	assert.Equal(t, 2, job.Attempts)
	assert.Contains(t, job.Error, "persistent failure")
	assert.NotNil(t, job.CompletedAt)
}

func TestRestartRecoversProcessingJobs(t *testing.T) {
	clock := newFakeClock()
	config := NewDefaultConfig()
	q, storage, indexes, entities, _ := newTestQueue(config, clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	// A job left processing by a crashed run
	started := clock.Now().Add(-time.Minute)
	interrupted := &models.IndexJob{
		ID:          "job_interrupted",
		IndexID:     "idx_1",
		EntityType:  "article",
		EntityID:    "ent_0000",
		JobType:     models.JobTypeUpdate,
		Status:      models.JobStatusProcessing,
		Priority:    models.PriorityNormal,
		CreatedAt:   clock.Now().Add(-2 * time.Minute),
		StartedAt:   &started,
		Attempts:    1,
		MaxAttempts: 3,
	}
	require.NoError(t, storage.SaveJob(context.Background(), interrupted))

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	// Recovered as retrying and eligible without waiting out the delay
	recovered := q.Get("job_interrupted")
	require.NotNil(t, recovered)
	assert.Equal(t, models.JobStatusRetrying, recovered.Status)

	q.Resume()
	job := waitForStatus(t, q, "job_interrupted", models.JobStatusCompleted)
	assert.Equal(t, 2, job.Attempts)
}

func TestCleanupRespectsRetention(t *testing.T) {
	clock := newFakeClock()
	config := NewDefaultConfig()
	config.Retention = time.Hour
	q, storage, indexes, entities, _ := newTestQueue(config, clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	doneID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.NoError(t, err)
	q.Resume()
	waitForStatus(t, q, doneID, models.JobStatusCompleted)

	q.Pause()
	pendingID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.NoError(t, err)

	// Inside the retention window nothing is removed
	assert.Equal(t, 0, q.Cleanup(context.Background()))

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, q.Cleanup(context.Background()))

	assert.Nil(t, q.Get(doneID))
	assert.NotNil(t, q.Get(pendingID), "non-terminal jobs survive cleanup")

	_, err = storage.GetJob(context.Background(), doneID)
	assert.True(t, errors.Is(err, interfaces.ErrJobNotFound))
}

func TestRemove(t *testing.T) {
	clock := newFakeClock()
	q, _, indexes, entities, _ := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	release := make(chan struct{})
	q.Handlers().Register(models.JobTypeUpdate, func(ctx context.Context, jc *JobContext) error {
		<-release
		return nil
	})

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())
	q.Pause()

	pendingID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.NoError(t, err)
	runningID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", &interfaces.SubmitOptions{Priority: models.PriorityHigh})
	require.NoError(t, err)

	assert.False(t, q.Remove(context.Background(), "job_unknown"))
	assert.True(t, q.Remove(context.Background(), pendingID))
	assert.Nil(t, q.Get(pendingID))

	q.Resume()
	waitForStatus(t, q, runningID, models.JobStatusProcessing)
	assert.False(t, q.Remove(context.Background(), runningID), "processing jobs cannot be removed")

	close(release)
	waitForStatus(t, q, runningID, models.JobStatusCompleted)
}

func TestPauseStopsDispatch(t *testing.T) {
	clock := newFakeClock()
	q, _, indexes, entities, _ := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())
	q.Pause()

	jobID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, models.JobStatusPending, q.Get(jobID).Status)

	q.Resume()
	waitForStatus(t, q, jobID, models.JobStatusCompleted)
}

func TestRebuildProgress(t *testing.T) {
	clock := newFakeClock()
	config := NewDefaultConfig()
	config.BatchSize = 100
	q, _, indexes, entities, builder := newTestQueue(config, clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 250)

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	jobID, err := q.SubmitRebuild(context.Background(), "idx_1", nil)
	require.NoError(t, err)
	q.Resume()

	job := waitForStatus(t, q, jobID, models.JobStatusCompleted)
	assert.Equal(t, 250, job.Progress.Total)
	assert.Equal(t, 250, job.Progress.Processed)
	assert.Equal(t, 250, job.Progress.Indexed)
	assert.Equal(t, 250, builder.appliedCount())

	index, err := indexes.Get(context.Background(), "idx_1")
	require.NoError(t, err)
	assert.Equal(t, models.IndexStatusReady, index.Status)
	assert.Equal(t, 250, index.DocumentCount)
	assert.NotNil(t, index.LastBuildTime)
}

func TestRebuildEmptyCatalog(t *testing.T) {
	clock := newFakeClock()
	q, _, indexes, _, _ := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	jobID, err := q.SubmitRebuild(context.Background(), "idx_1", nil)
	require.NoError(t, err)
	q.Resume()

	job := waitForStatus(t, q, jobID, models.JobStatusCompleted)
	assert.Equal(t, 0, job.Progress.Total)

	index, err := indexes.Get(context.Background(), "idx_1")
	require.NoError(t, err)
	assert.Equal(t, models.IndexStatusReady, index.Status)
	assert.Equal(t, 0, index.DocumentCount)
}

func TestRebuildSkipsFailingEntities(t *testing.T) {
	clock := newFakeClock()
	q, _, indexes, entities, builder := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 10)
	builder.failFor["ent_0003"] = true
	builder.failFor["ent_0007"] = true

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	jobID, err := q.SubmitRebuild(context.Background(), "idx_1", nil)
	require.NoError(t, err)
	q.Resume()

	job := waitForStatus(t, q, jobID, models.JobStatusCompleted)
	assert.Equal(t, 10, job.Progress.Total)
	assert.Equal(t, 10, job.Progress.Processed)
	assert.Equal(t, 8, job.Progress.Indexed)

	index, err := indexes.Get(context.Background(), "idx_1")
	require.NoError(t, err)
	assert.Equal(t, 8, index.DocumentCount)
}

func TestCreateJobAssignsIndexID(t *testing.T) {
	clock := newFakeClock()
	q, _, indexes, entities, _ := newTestQueue(NewDefaultConfig(), clock)
	entities.seed("article", 5)

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	spec := &models.IndexSpec{Name: "articles", EntityType: "article", Kind: models.IndexKindText}
	jobID, err := q.SubmitCreate(context.Background(), spec, nil)
	require.NoError(t, err)

	// Placeholder until the job runs
	job := q.Get(jobID)
	require.NotNil(t, job)
	assert.Contains(t, job.IndexID, "pending-")

	q.Resume()

	job = waitForStatus(t, q, jobID, models.JobStatusCompleted)
	assert.NotContains(t, job.IndexID, "pending-")
	assert.Equal(t, 5, job.Progress.Indexed)

	index, err := indexes.Get(context.Background(), job.IndexID)
	require.NoError(t, err)
	assert.Equal(t, models.IndexStatusReady, index.Status)
	assert.Equal(t, "articles", index.Name)
}

func TestCreateJobInvalidSpec(t *testing.T) {
	clock := newFakeClock()
	q, _, _, _, _ := newTestQueue(NewDefaultConfig(), clock)
	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	spec := &models.IndexSpec{Name: "bad", EntityType: "article", Kind: "graph"}
	_, err := q.SubmitCreate(context.Background(), spec, nil)
	require.Error(t, err)
	assert.Empty(t, q.GetCounts())
}

func TestUpdateJobPatchesIndex(t *testing.T) {
	clock := newFakeClock()
	q, storage, indexes, entities, _ := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	jobID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.NoError(t, err)
	q.Resume()

	job := waitForStatus(t, q, jobID, models.JobStatusCompleted)
	assert.Equal(t, models.JobProgress{Total: 1, Processed: 1, Indexed: 1}, job.Progress)

	index, err := indexes.Get(context.Background(), "idx_1")
	require.NoError(t, err)
	assert.NotNil(t, index.LastUpdateTime)

	// The terminal state is durable
	persisted, err := storage.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, persisted.Status)
}

func TestSubmitAfterShutdown(t *testing.T) {
	clock := newFakeClock()
	q, _, indexes, _, _ := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)

	require.NoError(t, q.Start(context.Background()))
	require.NoError(t, q.Shutdown(context.Background()))

	_, err := q.SubmitRebuild(context.Background(), "idx_1", nil)
	require.Error(t, err)
}

func TestGetAllFiltersAndOrders(t *testing.T) {
	clock := newFakeClock()
	q, _, indexes, entities, _ := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())
	q.Pause()

	var ids []string
	for i := 0; i < 3; i++ {
		jobID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
		require.NoError(t, err)
		ids = append(ids, jobID)
		clock.Advance(time.Second)
	}

	all := q.GetAll("")
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	pending := q.GetAll(models.JobStatusPending)
	assert.Len(t, pending, 3)
	assert.Empty(t, q.GetAll(models.JobStatusCompleted))
}

func TestUpdateJobInitialProgress(t *testing.T) {
	clock := newFakeClock()
	q, _, indexes, entities, _ := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())
	q.Pause()

	jobID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.NoError(t, err)

	// Single-entity scope is reported before the job ever runs
	job := q.Get(jobID)
	require.NotNil(t, job)
	assert.Equal(t, models.JobProgress{Total: 1, Processed: 0, Indexed: 0}, job.Progress)
}

func TestShutdownAfterFailedStart(t *testing.T) {
	clock := newFakeClock()
	q, storage, _, _, _ := newTestQueue(NewDefaultConfig(), clock)
	storage.failMarkInterrupted(errors.New("badger offline"))

	require.Error(t, q.Start(context.Background()))

	done := make(chan error, 1)
	go func() { done <- q.Shutdown(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Shutdown did not return after a failed Start")
	}
}

func TestStartRetriesAfterRecoveryFailure(t *testing.T) {
	clock := newFakeClock()
	q, storage, indexes, entities, _ := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)
	storage.failMarkInterrupted(errors.New("badger offline"))

	require.Error(t, q.Start(context.Background()))

	storage.failMarkInterrupted(nil)
	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown(context.Background())

	jobID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.NoError(t, err)
	q.Resume()
	waitForStatus(t, q, jobID, models.JobStatusCompleted)
}

func TestSubmitPersistFailureCreatesNothing(t *testing.T) {
	clock := newFakeClock()
	q, storage, indexes, entities, builder := newTestQueue(NewDefaultConfig(), clock)
	seedIndex(indexes, "idx_1", "article", models.IndexKindText)
	entities.seed("article", 1)

	require.NoError(t, q.Start(context.Background()))
	defer func() {
		storage.failSaves(nil)
		q.Shutdown(context.Background())
	}()
	q.Resume()

	storage.failSaves(errors.New("disk full"))

	jobID, err := q.SubmitUpdate(context.Background(), "idx_1", "article", "ent_0000", nil)
	require.Error(t, err)
	assert.Empty(t, jobID)

	// The job was never visible to the scheduler, so nothing ran
	assert.Empty(t, q.GetCounts())
	assert.Empty(t, q.GetAll(""))
	assert.Equal(t, 0, builder.appliedCount())
	all, err := storage.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
