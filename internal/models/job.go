package models

import (
	"time"
)

// JobStatus represents the state of an index job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusRetrying   JobStatus = "retrying"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions occur from this status
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobType represents the kind of index maintenance a job performs
type JobType string

const (
	JobTypeUpdate  JobType = "update"  // Re-index one entity in an existing index
	JobTypeRebuild JobType = "rebuild" // Full scan rebuild of an existing index
	JobTypeCreate  JobType = "create"  // Create index metadata, then full build
)

// JobPriority orders dispatch within a tick. Lower sort key runs first.
type JobPriority string

const (
	PriorityHigh   JobPriority = "high"
	PriorityNormal JobPriority = "normal"
	PriorityLow    JobPriority = "low"
)

// SortKey returns the dispatch ordering key for a priority.
// Unknown priorities sort with normal.
func (p JobPriority) SortKey() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Valid reports whether p is one of the known priorities
func (p JobPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// JobProgress tracks per-entity counters for an index job.
// Counters are monotonically non-decreasing while the job is processing.
type JobProgress struct {
	Total     int `json:"total"`     // Entities the job covers (0 until known for rebuild/create)
	Processed int `json:"processed"` // Entities visited, including per-entity failures
	Indexed   int `json:"indexed"`   // Entities successfully written to the index
}

// IndexJob is one unit of index-maintenance work tracked by the queue.
// ID and JobType never change after creation; only Status, Attempts,
// Error, Progress and the lifecycle timestamps mutate, and only the job
// processor or cleanup routine may mutate a job already inserted.
//
// A create job's IndexID starts as a "pending-" placeholder and is
// rewritten in place once the index metadata record exists.
type IndexJob struct {
	ID          string      `json:"id"`
	IndexID     string      `json:"index_id"`
	EntityType  string      `json:"entity_type"`
	EntityID    string      `json:"entity_id,omitempty"` // Only set for single-entity update jobs
	JobType     JobType     `json:"job_type"`
	Status      JobStatus   `json:"status"`
	Priority    JobPriority `json:"priority"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`   // Set once, on first entry into processing
	CompletedAt *time.Time  `json:"completed_at,omitempty"` // Set once, on reaching a terminal state
	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"max_attempts"`
	// Error contains the most recent failure message. Cleared only by a
	// new job; retries overwrite it, success leaves the last value in place.
	Error    string      `json:"error,omitempty"`
	Progress JobProgress `json:"progress"`
	// IndexSpec carries the requested index definition for create jobs
	// so the job record is self-contained across restarts.
	IndexSpec *IndexSpec `json:"index_spec,omitempty"`
}

// Clone returns a copy of the job safe to hand outside the queue's lock
func (j *IndexJob) Clone() *IndexJob {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.IndexSpec != nil {
		spec := *j.IndexSpec
		c.IndexSpec = &spec
	}
	return &c
}
