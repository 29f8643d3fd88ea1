package common

import (
	"strings"

	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewIndexID generates a unique index ID with the "idx_" prefix
// Format: idx_<uuid>
func NewIndexID() string {
	return "idx_" + uuid.New().String()
}

// NewEntityID generates a unique catalog entity ID with the "ent_" prefix
// Format: ent_<uuid>
func NewEntityID() string {
	return "ent_" + uuid.New().String()
}

// NewPendingIndexID generates a placeholder index ID for create jobs.
// The placeholder is replaced with a real index ID when the job runs.
// Format: pending-<uuid>
func NewPendingIndexID() string {
	return "pending-" + uuid.New().String()
}

// IsPendingIndexID reports whether an index ID is a create-job placeholder
func IsPendingIndexID(id string) bool {
	return strings.HasPrefix(id, "pending-")
}
