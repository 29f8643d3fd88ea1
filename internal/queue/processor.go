// -------------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// JobHandler executes one job attempt. A nil return completes the job;
// any error counts the attempt as failed and either schedules a retry
// or fails the job permanently.
type JobHandler func(ctx context.Context, jc *JobContext) error

// HandlerRegistry maps job types to their handlers
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[models.JobType]JobHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[models.JobType]JobHandler),
	}
}

// Register sets the handler for a job type, replacing any existing one
func (r *HandlerRegistry) Register(jobType models.JobType, handler JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

// HandlerFor returns the handler for a job type, or nil when none is
// registered
func (r *HandlerRegistry) HandlerFor(jobType models.JobType) JobHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[jobType]
}

// JobContext is the handler's view of a running job. Job is a working
// copy; mutations to its Progress and IndexID only become visible once
// SaveProgress is called.
type JobContext struct {
	Job   *models.IndexJob
	queue *Queue
}

// SaveProgress merges the working copy's progress and index id back
// into the tracked job, persists the record and publishes a progress
// event. Handlers call it at batch boundaries during long builds.
func (jc *JobContext) SaveProgress(ctx context.Context) {
	q := jc.queue

	q.mu.Lock()
	tracked, ok := q.jobs[jc.Job.ID]
	if !ok {
		q.mu.Unlock()
		return
	}
	tracked.Progress = jc.Job.Progress
	tracked.IndexID = jc.Job.IndexID
	snapshot := tracked.Clone()
	q.mu.Unlock()

	if err := q.storage.SaveJob(ctx, snapshot); err != nil {
		q.logger.Warn().Err(err).Str("job_id", snapshot.ID).Msg("Failed to persist job progress")
	}
	q.publishEvent(interfaces.EventJobProgress, snapshot)
}

// runJob executes one attempt on its own goroutine and applies the
// resulting state transition
func (q *Queue) runJob(snapshot *models.IndexJob) {
	defer q.workers.Done()

	ctx := context.Background()
	jc := &JobContext{Job: snapshot, queue: q}

	handler := q.handlers.HandlerFor(snapshot.JobType)
	if handler == nil {
		q.completeJob(ctx, jc, fmt.Errorf("no handler registered for job type %s", snapshot.JobType))
		return
	}

	q.completeJob(ctx, jc, handler(ctx, jc))
}

// completeJob applies the post-attempt transition: completed on
// success, retrying while attempts remain, failed once the budget is
// exhausted. The final progress and index id from the working copy are
// merged back in the same step.
func (q *Queue) completeJob(ctx context.Context, jc *JobContext, jobErr error) {
	now := q.clock.Now()

	q.mu.Lock()
	job, ok := q.jobs[jc.Job.ID]
	if !ok {
		// Removed while processing should not happen; tolerate it
		delete(q.inFlight, jc.Job.ID)
		q.mu.Unlock()
		return
	}

	job.Progress = jc.Job.Progress
	job.IndexID = jc.Job.IndexID

	var eventType interfaces.EventType
	switch {
	case jobErr == nil:
		job.Status = models.JobStatusCompleted
		t := now
		job.CompletedAt = &t
		eventType = interfaces.EventJobCompleted
	case job.Attempts >= job.MaxAttempts:
		job.Status = models.JobStatusFailed
		job.Error = jobErr.Error()
		t := now
		job.CompletedAt = &t
		eventType = interfaces.EventJobFailed
	default:
		job.Status = models.JobStatusRetrying
		job.Error = jobErr.Error()
		q.delays.Schedule(job.ID, now.Add(q.config.RetryDelay))
		eventType = interfaces.EventJobRetrying
	}

	delete(q.inFlight, job.ID)
	snapshot := job.Clone()
	q.mu.Unlock()

	if err := q.storage.SaveJob(ctx, snapshot); err != nil {
		q.logger.Warn().Err(err).Str("job_id", snapshot.ID).Msg("Failed to persist job completion")
	}
	q.publishEvent(eventType, snapshot)

	switch snapshot.Status {
	case models.JobStatusCompleted:
		q.logger.Info().
			Str("job_id", snapshot.ID).
			Str("job_type", string(snapshot.JobType)).
			Int("indexed", snapshot.Progress.Indexed).
			Msg("Job completed")
	case models.JobStatusRetrying:
		q.logger.Warn().
			Str("job_id", snapshot.ID).
			Int("attempt", snapshot.Attempts).
			Int("max_attempts", snapshot.MaxAttempts).
			Str("error", snapshot.Error).
			Msg("Job failed, retry scheduled")
	case models.JobStatusFailed:
		q.logger.Error().
			Str("job_id", snapshot.ID).
			Int("attempts", snapshot.Attempts).
			Str("error", snapshot.Error).
			Msg("Job failed permanently")
	}

	// A freed slot may let a queued job start before the next tick
	q.triggerDispatch()
}
