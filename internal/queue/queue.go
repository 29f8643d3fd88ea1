// -------------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// Queue is the persistent index job queue. Jobs live in an in-memory
// map guarded by mu; every mutation is mirrored to durable storage so a
// restart reconstructs the queue from the job records alone. A single
// run loop goroutine owns dispatch; job execution happens on per-job
// goroutines bounded by MaxConcurrent.
type Queue struct {
	config   Config
	storage  interfaces.JobStorage
	indexes  interfaces.IndexService
	entities interfaces.EntityService
	builders interfaces.BuilderRegistry
	events   interfaces.EventService
	handlers *HandlerRegistry
	clock    Clock
	logger   arbor.ILogger

	mu         sync.Mutex
	jobs       map[string]*models.IndexJob
	inFlight   map[string]struct{}
	delays     *delayQueue
	dueRetries map[string]struct{}
	paused     bool
	closed     bool

	dispatchCh chan struct{}
	stopCh     chan struct{}
	loopDone   chan struct{}
	workers    sync.WaitGroup
	started    bool
}

// Deps carries the queue's collaborators. Storage is required; the
// index, entity and builder services are required for the default
// handlers; events may be nil.
type Deps struct {
	Storage  interfaces.JobStorage
	Indexes  interfaces.IndexService
	Entities interfaces.EntityService
	Builders interfaces.BuilderRegistry
	Events   interfaces.EventService
	Clock    Clock
	Logger   arbor.ILogger
}

// NewQueue creates a queue with the default handlers registered.
// Call Start before submitting jobs.
func NewQueue(config Config, deps Deps) (*Queue, error) {
	if deps.Storage == nil {
		return nil, fmt.Errorf("queue requires job storage")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = common.GetLogger()
	}

	q := &Queue{
		config:     config,
		storage:    deps.Storage,
		indexes:    deps.Indexes,
		entities:   deps.Entities,
		builders:   deps.Builders,
		events:     deps.Events,
		handlers:   NewHandlerRegistry(),
		clock:      deps.Clock,
		logger:     deps.Logger,
		jobs:       make(map[string]*models.IndexJob),
		inFlight:   make(map[string]struct{}),
		delays:     newDelayQueue(),
		dueRetries: make(map[string]struct{}),
		dispatchCh: make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		loopDone:   make(chan struct{}),
	}

	q.handlers.Register(models.JobTypeUpdate, q.handleUpdate)
	q.handlers.Register(models.JobTypeRebuild, q.handleRebuild)
	q.handlers.Register(models.JobTypeCreate, q.handleCreate)

	return q, nil
}

// Handlers exposes the registry so callers can override or add job
// type handlers before Start
func (q *Queue) Handlers() *HandlerRegistry {
	return q.handlers
}

// Start recovers persisted jobs and launches the scheduler loop.
// Jobs interrupted mid-processing by the previous shutdown are rewritten
// to retrying and become eligible immediately.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue already started")
	}
	q.started = true
	q.mu.Unlock()

	recovered, err := q.storage.MarkInterruptedJobs(ctx)
	if err != nil {
		q.abortStart()
		return fmt.Errorf("failed to recover interrupted jobs: %w", err)
	}
	if recovered > 0 {
		q.logger.Info().Int("count", recovered).Msg("Recovered interrupted jobs as retrying")
	}

	records, err := q.storage.LoadAll(ctx)
	if err != nil {
		q.abortStart()
		return fmt.Errorf("failed to load job records: %w", err)
	}

	q.mu.Lock()
	for _, job := range records {
		q.jobs[job.ID] = job
		if job.Status == models.JobStatusRetrying {
			// Recovered and previously-scheduled retries alike are due
			// now; the original delay does not survive a restart
			q.dueRetries[job.ID] = struct{}{}
		}
	}
	total := len(q.jobs)
	q.mu.Unlock()

	q.logger.Info().
		Int("jobs", total).
		Int("max_concurrent", q.config.MaxConcurrent).
		Str("tick_interval", q.config.TickInterval.String()).
		Msg("Index job queue started")

	go q.run()
	return nil
}

// abortStart releases the started reservation when recovery fails, so
// Start can be retried and Shutdown does not wait for a loop that was
// never launched.
func (q *Queue) abortStart() {
	q.mu.Lock()
	q.started = false
	q.mu.Unlock()
}

// run is the scheduler loop. It owns all dispatch decisions; nothing
// else moves a job into processing.
func (q *Queue) run() {
	defer close(q.loopDone)

	tick := q.clock.NewTicker(q.config.TickInterval)
	defer tick.Stop()

	syncTick := q.clock.NewTicker(q.config.SyncInterval)
	defer syncTick.Stop()

	for {
		select {
		case <-tick.C():
			q.dispatch()
		case <-q.dispatchCh:
			q.dispatch()
		case <-syncTick.C():
			q.persistAll(context.Background())
		case <-q.stopCh:
			return
		}
	}
}

// dispatch runs one scheduling pass: release due retries, then start as
// many eligible jobs as free slots allow, highest priority first and
// FIFO within a priority band.
func (q *Queue) dispatch() {
	now := q.clock.Now()

	q.mu.Lock()
	if q.paused || q.closed {
		q.mu.Unlock()
		return
	}

	for _, jobID := range q.delays.Due(now) {
		job, ok := q.jobs[jobID]
		if ok && job.Status == models.JobStatusRetrying {
			q.dueRetries[jobID] = struct{}{}
		}
	}

	slots := q.config.MaxConcurrent - len(q.inFlight)
	if slots <= 0 {
		q.mu.Unlock()
		return
	}

	var eligible []*models.IndexJob
	for _, job := range q.jobs {
		switch job.Status {
		case models.JobStatusPending:
			eligible = append(eligible, job)
		case models.JobStatusRetrying:
			if _, due := q.dueRetries[job.ID]; due {
				eligible = append(eligible, job)
			}
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Priority.SortKey() != b.Priority.SortKey() {
			return a.Priority.SortKey() < b.Priority.SortKey()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if len(eligible) > slots {
		eligible = eligible[:slots]
	}

	var started []*models.IndexJob
	for _, job := range eligible {
		job.Status = models.JobStatusProcessing
		job.Attempts++
		if job.StartedAt == nil {
			t := now
			job.StartedAt = &t
		}
		delete(q.dueRetries, job.ID)
		q.inFlight[job.ID] = struct{}{}
		started = append(started, job.Clone())
	}
	q.mu.Unlock()

	for _, snapshot := range started {
		if err := q.storage.SaveJob(context.Background(), snapshot); err != nil {
			q.logger.Warn().Err(err).Str("job_id", snapshot.ID).Msg("Failed to persist job start")
		}
		q.publishEvent(interfaces.EventJobStarted, snapshot)

		q.logger.Info().
			Str("job_id", snapshot.ID).
			Str("job_type", string(snapshot.JobType)).
			Str("priority", string(snapshot.Priority)).
			Int("attempt", snapshot.Attempts).
			Msg("Job started")

		q.workers.Add(1)
		go q.runJob(snapshot)
	}
}

// SubmitUpdate enqueues a single-entity update job
func (q *Queue) SubmitUpdate(ctx context.Context, indexID, entityType, entityID string, opts *interfaces.SubmitOptions) (string, error) {
	if entityType == "" || entityID == "" {
		return "", fmt.Errorf("entity type and entity id are required")
	}
	if _, err := q.indexes.Get(ctx, indexID); err != nil {
		return "", err
	}

	job := q.newJob(models.JobTypeUpdate, opts)
	job.IndexID = indexID
	job.EntityType = entityType
	job.EntityID = entityID
	// Single-entity scope is known at submission
	job.Progress.Total = 1

	return q.insert(ctx, job)
}

// SubmitRebuild enqueues a full rebuild of an existing index
func (q *Queue) SubmitRebuild(ctx context.Context, indexID string, opts *interfaces.SubmitOptions) (string, error) {
	index, err := q.indexes.Get(ctx, indexID)
	if err != nil {
		return "", err
	}

	job := q.newJob(models.JobTypeRebuild, opts)
	job.IndexID = indexID
	job.EntityType = index.EntityType

	return q.insert(ctx, job)
}

// SubmitCreate enqueues creation and initial build of a new index. The
// spec is validated here; the metadata record is only created when the
// job first runs, so the job carries a placeholder index id until then.
func (q *Queue) SubmitCreate(ctx context.Context, spec *models.IndexSpec, opts *interfaces.SubmitOptions) (string, error) {
	if err := q.indexes.ValidateSpec(spec); err != nil {
		return "", err
	}

	specCopy := *spec
	job := q.newJob(models.JobTypeCreate, opts)
	job.IndexID = common.NewPendingIndexID()
	job.EntityType = spec.EntityType
	job.IndexSpec = &specCopy

	return q.insert(ctx, job)
}

func (q *Queue) newJob(jobType models.JobType, opts *interfaces.SubmitOptions) *models.IndexJob {
	priority := models.PriorityNormal
	if opts != nil && opts.Priority != "" {
		priority = opts.Priority
	}
	return &models.IndexJob{
		ID:          common.NewJobID(),
		JobType:     jobType,
		Status:      models.JobStatusPending,
		Priority:    priority,
		CreatedAt:   q.clock.Now(),
		MaxAttempts: q.config.MaxAttempts,
	}
}

// insert validates, records and announces a new job
func (q *Queue) insert(ctx context.Context, job *models.IndexJob) (string, error) {
	if !job.Priority.Valid() {
		return "", fmt.Errorf("invalid priority: %s", job.Priority)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", fmt.Errorf("queue is shut down")
	}
	q.mu.Unlock()

	// Persist before exposing the job to the scheduler; a dispatch pass
	// must never pick up a job whose record may still fail to write.
	snapshot := job.Clone()
	if err := q.storage.SaveJob(ctx, snapshot); err != nil {
		return "", fmt.Errorf("failed to persist job: %w", err)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if err := q.storage.DeleteJob(ctx, job.ID); err != nil {
			q.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to delete record for rejected job")
		}
		return "", fmt.Errorf("queue is shut down")
	}
	q.jobs[job.ID] = job
	q.mu.Unlock()

	q.publishEvent(interfaces.EventJobAdded, snapshot)

	q.logger.Info().
		Str("job_id", job.ID).
		Str("job_type", string(job.JobType)).
		Str("index_id", job.IndexID).
		Str("priority", string(job.Priority)).
		Msg("Job added to queue")

	q.triggerDispatch()
	return job.ID, nil
}

// Get returns a snapshot of one job, or nil when unknown
func (q *Queue) Get(jobID string) *models.IndexJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return nil
	}
	return job.Clone()
}

// GetAll returns snapshots of all jobs, newest first, filtered by
// status when status is non-empty
func (q *Queue) GetAll(status models.JobStatus) []*models.IndexJob {
	q.mu.Lock()
	var result []*models.IndexJob
	for _, job := range q.jobs {
		if status != "" && job.Status != status {
			continue
		}
		result = append(result, job.Clone())
	}
	q.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

// GetCounts returns the number of jobs per status
func (q *Queue) GetCounts() map[models.JobStatus]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := make(map[models.JobStatus]int)
	for _, job := range q.jobs {
		counts[job.Status]++
	}
	return counts
}

// Remove deletes a job that is not currently processing. A scheduled
// retry for the job is abandoned; the delay heap entry is invalidated
// lazily when it pops.
func (q *Queue) Remove(ctx context.Context, jobID string) bool {
	q.mu.Lock()
	job, ok := q.jobs[jobID]
	if !ok || job.Status == models.JobStatusProcessing {
		q.mu.Unlock()
		return false
	}
	delete(q.jobs, jobID)
	delete(q.dueRetries, jobID)
	snapshot := job.Clone()
	q.mu.Unlock()

	if err := q.storage.DeleteJob(ctx, jobID); err != nil {
		q.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to delete job record")
	}
	q.publishEvent(interfaces.EventJobRemoved, snapshot)

	q.logger.Info().Str("job_id", jobID).Msg("Job removed")
	return true
}

// Cleanup removes terminal jobs whose completion time is older than the
// retention window and returns how many were removed
func (q *Queue) Cleanup(ctx context.Context) int {
	cutoff := q.clock.Now().Add(-q.config.Retention)

	q.mu.Lock()
	var expired []string
	for id, job := range q.jobs {
		if !job.Status.IsTerminal() {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(q.jobs, id)
	}
	q.mu.Unlock()

	for _, id := range expired {
		if err := q.storage.DeleteJob(ctx, id); err != nil {
			q.logger.Warn().Err(err).Str("job_id", id).Msg("Failed to delete expired job record")
		}
	}

	if len(expired) > 0 {
		q.logger.Info().Int("count", len(expired)).Msg("Cleaned up expired jobs")
	}
	return len(expired)
}

// Pause stops dispatching without discarding queued jobs. In-flight
// jobs run to completion.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
	q.logger.Info().Msg("Queue paused")
}

// Resume re-enables dispatch and immediately triggers a pass
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.logger.Info().Msg("Queue resumed")
	q.triggerDispatch()
}

// IsPaused reports whether dispatch is currently suspended
func (q *Queue) IsPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

// Shutdown disables the scheduler, waits up to DrainTimeout for
// in-flight jobs to finish and performs a final full persist. Jobs
// still processing after the drain window are left as-is; the next
// startup rewrites them to retrying.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	alreadyStarted := q.started
	q.mu.Unlock()

	if alreadyStarted {
		close(q.stopCh)
		<-q.loopDone
	}

	drained := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(q.config.DrainTimeout):
		q.logger.Warn().Msg("Drain timeout elapsed with jobs still in flight")
	case <-ctx.Done():
		q.logger.Warn().Msg("Shutdown context cancelled before drain completed")
	}

	q.persistAll(context.Background())
	q.logger.Info().Msg("Index job queue stopped")
	return nil
}

// persistAll writes every job record to durable storage
func (q *Queue) persistAll(ctx context.Context) {
	q.mu.Lock()
	snapshots := make([]*models.IndexJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		snapshots = append(snapshots, job.Clone())
	}
	q.mu.Unlock()

	for _, snapshot := range snapshots {
		if err := q.storage.SaveJob(ctx, snapshot); err != nil {
			q.logger.Warn().Err(err).Str("job_id", snapshot.ID).Msg("Failed to sync job record")
		}
	}
}

func (q *Queue) triggerDispatch() {
	select {
	case q.dispatchCh <- struct{}{}:
	default:
	}
}

// publishEvent announces a queue event. Best-effort: failures are
// logged and never surfaced to the caller.
func (q *Queue) publishEvent(eventType interfaces.EventType, payload interface{}) {
	if q.events == nil {
		return
	}
	event := interfaces.Event{Type: eventType, Payload: payload}
	if err := q.events.Publish(context.Background(), event); err != nil {
		q.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to publish queue event")
	}
}
