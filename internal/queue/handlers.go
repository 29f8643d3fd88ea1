// -------------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package queue

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// handleUpdate re-indexes one entity in an existing index
func (q *Queue) handleUpdate(ctx context.Context, jc *JobContext) error {
	job := jc.Job

	index, err := q.indexes.Get(ctx, job.IndexID)
	if err != nil {
		return fmt.Errorf("failed to load index %s: %w", job.IndexID, err)
	}

	builder := q.builders.BuilderFor(index.Kind)
	if builder == nil {
		return fmt.Errorf("no builder for index kind %s", index.Kind)
	}

	entity, err := q.entities.Get(ctx, job.EntityType, job.EntityID)
	if err != nil {
		return fmt.Errorf("failed to load entity %s/%s: %w", job.EntityType, job.EntityID, err)
	}

	job.Progress.Total = 1
	if err := builder.Apply(ctx, index, entity); err != nil {
		job.Progress.Processed = 1
		return fmt.Errorf("failed to index entity %s: %w", entity.ID, err)
	}
	job.Progress.Processed = 1
	job.Progress.Indexed = 1

	now := q.clock.Now()
	patch := &models.IndexPatch{LastUpdateTime: &now}
	if err := q.indexes.Update(ctx, index.ID, patch); err != nil {
		return fmt.Errorf("failed to update index record: %w", err)
	}

	return nil
}

// handleRebuild runs a full batch scan of the index's entity type
func (q *Queue) handleRebuild(ctx context.Context, jc *JobContext) error {
	index, err := q.indexes.Get(ctx, jc.Job.IndexID)
	if err != nil {
		return fmt.Errorf("failed to load index %s: %w", jc.Job.IndexID, err)
	}
	return q.buildIndex(ctx, jc, index)
}

// handleCreate creates the index metadata record, rewrites the job's
// placeholder index id and runs the initial build. A retry after the
// record already exists skips straight to the build.
func (q *Queue) handleCreate(ctx context.Context, jc *JobContext) error {
	job := jc.Job

	var index *models.IndexDefinition
	if common.IsPendingIndexID(job.IndexID) {
		if job.IndexSpec == nil {
			return fmt.Errorf("create job %s has no index spec", job.ID)
		}
		created, err := q.indexes.Create(ctx, job.IndexSpec)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		job.IndexID = created.ID
		jc.SaveProgress(ctx)
		index = created

		q.logger.Info().
			Str("job_id", job.ID).
			Str("index_id", created.ID).
			Str("kind", string(created.Kind)).
			Msg("Index record created")
	} else {
		existing, err := q.indexes.Get(ctx, job.IndexID)
		if err != nil {
			return fmt.Errorf("failed to load index %s: %w", job.IndexID, err)
		}
		index = existing
	}

	return q.buildIndex(ctx, jc, index)
}

// buildIndex scans every entity of the index's type in stable ID order
// and applies the builder to each. Per-entity failures are logged and
// skipped; only infrastructure errors fail the attempt.
func (q *Queue) buildIndex(ctx context.Context, jc *JobContext, index *models.IndexDefinition) error {
	job := jc.Job

	builder := q.builders.BuilderFor(index.Kind)
	if builder == nil {
		return fmt.Errorf("no builder for index kind %s", index.Kind)
	}

	total, err := q.entities.Count(ctx, index.EntityType)
	if err != nil {
		return fmt.Errorf("failed to count entities: %w", err)
	}

	job.Progress = models.JobProgress{Total: total}
	jc.SaveProgress(ctx)

	now := q.clock.Now()
	if total == 0 {
		ready := models.IndexStatusReady
		count := 0
		patch := &models.IndexPatch{Status: &ready, DocumentCount: &count, LastBuildTime: &now}
		if err := q.indexes.Update(ctx, index.ID, patch); err != nil {
			return fmt.Errorf("failed to mark index ready: %w", err)
		}
		q.publishEvent(interfaces.EventIndexReady, index.ID)
		return nil
	}

	var limiter *rate.Limiter
	if q.config.BuildRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(q.config.BuildRate), q.config.BuildRate)
	}

	batchSize := q.config.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	for offset := 0; offset < total; offset += batchSize {
		entities, err := q.entities.Page(ctx, index.EntityType, offset, batchSize)
		if err != nil {
			return fmt.Errorf("failed to page entities at offset %d: %w", offset, err)
		}
		if len(entities) == 0 {
			break
		}

		for _, entity := range entities {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return fmt.Errorf("build rate limiter: %w", err)
				}
			}

			if err := builder.Apply(ctx, index, entity); err != nil {
				job.Progress.Processed++
				q.logger.Warn().
					Err(err).
					Str("job_id", job.ID).
					Str("entity_id", entity.ID).
					Msg("Failed to index entity, skipping")
				continue
			}
			job.Progress.Processed++
			job.Progress.Indexed++
		}

		jc.SaveProgress(ctx)
	}

	buildTime := q.clock.Now()
	ready := models.IndexStatusReady
	count := job.Progress.Indexed
	patch := &models.IndexPatch{Status: &ready, DocumentCount: &count, LastBuildTime: &buildTime}
	if err := q.indexes.Update(ctx, index.ID, patch); err != nil {
		return fmt.Errorf("failed to mark index ready: %w", err)
	}
	q.publishEvent(interfaces.EventIndexReady, index.ID)

	q.logger.Info().
		Str("job_id", job.ID).
		Str("index_id", index.ID).
		Int("total", job.Progress.Total).
		Int("indexed", job.Progress.Indexed).
		Msg("Index build finished")

	return nil
}
