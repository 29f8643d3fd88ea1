package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger.
// One durable record per job id; the record is the sole source of
// truth on restart.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.IndexJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.IndexJob, error) {
	var job models.IndexJob
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) LoadAll(ctx context.Context) ([]*models.IndexJob, error) {
	var jobs []models.IndexJob
	if err := s.db.Store().Find(&jobs, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	result := make([]*models.IndexJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().Delete(jobID, &models.IndexJob{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// MarkInterruptedJobs rewrites processing records to retrying. The
// process cannot know whether an interrupted attempt completed, so it
// must be treated as interrupted rather than lost or double-counted.
func (s *JobStorage) MarkInterruptedJobs(ctx context.Context) (int, error) {
	var jobs []models.IndexJob
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(models.JobStatusProcessing)); err != nil {
		return 0, fmt.Errorf("failed to find interrupted jobs: %w", err)
	}

	count := 0
	for i := range jobs {
		jobs[i].Status = models.JobStatusRetrying
		if err := s.SaveJob(ctx, &jobs[i]); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("Failed to mark interrupted job as retrying")
			continue
		}
		count++
	}

	if count > 0 {
		s.logger.Info().Int("count", count).Msg("Marked interrupted jobs as retrying")
	}
	return count, nil
}
