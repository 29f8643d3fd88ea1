package interfaces

import (
	"context"

	"github.com/ternarybob/indago/internal/models"
)

// SubmitOptions carries optional submission parameters
type SubmitOptions struct {
	// Priority defaults to normal when empty
	Priority models.JobPriority
}

// QueueService is the persistent index job queue: submission,
// inspection and lifecycle control. All submission methods validate
// synchronously and return the new job's id.
type QueueService interface {
	// SubmitUpdate enqueues a single-entity update job.
	// Returns ErrIndexNotFound when indexID does not resolve.
	SubmitUpdate(ctx context.Context, indexID, entityType, entityID string, opts *SubmitOptions) (string, error)

	// SubmitRebuild enqueues a full rebuild of an existing index.
	// Returns ErrIndexNotFound when indexID does not resolve.
	SubmitRebuild(ctx context.Context, indexID string, opts *SubmitOptions) (string, error)

	// SubmitCreate enqueues creation and initial build of a new index.
	// The spec is validated synchronously; the metadata record is only
	// created when the job runs.
	SubmitCreate(ctx context.Context, spec *models.IndexSpec, opts *SubmitOptions) (string, error)

	// Get returns a snapshot of one job, or nil when unknown
	Get(jobID string) *models.IndexJob

	// GetAll returns snapshots of all jobs, filtered by status when
	// status is non-empty, ordered by creation time descending
	GetAll(status models.JobStatus) []*models.IndexJob

	// GetCounts returns the number of jobs per status
	GetCounts() map[models.JobStatus]int

	// Remove deletes a job that is not currently processing.
	// Returns false when the job is unknown or in flight.
	Remove(ctx context.Context, jobID string) bool

	// Cleanup removes terminal jobs older than the retention window and
	// returns how many were removed
	Cleanup(ctx context.Context) int

	// Pause stops dispatching without discarding queued jobs
	Pause()

	// Resume re-enables dispatch and immediately triggers a pass
	Resume()

	// Shutdown disables the scheduler, waits a bounded interval for
	// in-flight jobs to drain and performs a final full persist
	Shutdown(ctx context.Context) error
}
