// -------------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// jobEntry is one registered maintenance job
type jobEntry struct {
	name      string
	schedule  string
	handler   func(ctx context.Context) error
	cronID    cron.EntryID
	lastRun   *time.Time
	lastError string
}

// Service runs cron-driven maintenance: terminal job cleanup on the
// retention window and refresh rebuilds for stale indexes
type Service struct {
	config  *common.Config
	queue   interfaces.QueueService
	indexes interfaces.IndexService
	cron    *cron.Cron
	logger  arbor.ILogger

	mu      sync.Mutex
	jobs    map[string]*jobEntry
	running bool
}

// NewService creates a maintenance scheduler with the cleanup and
// stale-refresh jobs registered from config
func NewService(config *common.Config, queue interfaces.QueueService, indexes interfaces.IndexService, logger arbor.ILogger) *Service {
	s := &Service{
		config:  config,
		queue:   queue,
		indexes: indexes,
		cron:    cron.New(),
		logger:  logger,
		jobs:    make(map[string]*jobEntry),
	}

	s.register("job-cleanup", config.Maintenance.CleanupSchedule, s.runCleanup)
	s.register("stale-index-refresh", config.Maintenance.RefreshSchedule, s.runStaleRefresh)

	return s
}

func (s *Service) register(name, schedule string, handler func(ctx context.Context) error) {
	s.jobs[name] = &jobEntry{
		name:     name,
		schedule: schedule,
		handler:  handler,
	}
}

// Start schedules all registered jobs and starts the cron runner
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	for _, entry := range s.jobs {
		entry := entry
		id, err := s.cron.AddFunc(entry.schedule, func() {
			s.runJob(entry)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", entry.name, err)
		}
		entry.cronID = id

		s.logger.Info().
			Str("job", entry.name).
			Str("schedule", entry.schedule).
			Msg("Maintenance job scheduled")
	}

	s.cron.Start()
	s.running = true
	return nil
}

// Stop halts the cron runner, waiting for a running job to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info().Msg("Maintenance scheduler stopped")
	return nil
}

// IsRunning reports whether the cron runner is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Jobs returns the status of every registered maintenance job
func (s *Service) Jobs() []interfaces.MaintenanceJobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]interfaces.MaintenanceJobStatus, 0, len(s.jobs))
	for _, entry := range s.jobs {
		status := interfaces.MaintenanceJobStatus{
			Name:      entry.name,
			Schedule:  entry.schedule,
			LastError: entry.lastError,
		}
		if entry.lastRun != nil {
			t := *entry.lastRun
			status.LastRun = &t
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (s *Service) runJob(entry *jobEntry) {
	now := time.Now()
	err := entry.handler(context.Background())

	s.mu.Lock()
	entry.lastRun = &now
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("job", entry.name).Msg("Maintenance job failed")
	}
}

// runCleanup removes terminal jobs past the retention window
func (s *Service) runCleanup(ctx context.Context) error {
	removed := s.queue.Cleanup(ctx)
	s.logger.Info().Int("removed", removed).Msg("Scheduled job cleanup finished")
	return nil
}

// runStaleRefresh submits low-priority rebuilds for ready indexes whose
// last build is older than the staleness window
func (s *Service) runStaleRefresh(ctx context.Context) error {
	staleAfter := common.Duration(s.config.Catalog.StaleAfter)
	if staleAfter <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-staleAfter)

	indexes, err := s.indexes.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	submitted := 0
	for _, index := range indexes {
		if index.Status != models.IndexStatusReady {
			continue
		}
		if index.LastBuildTime != nil && index.LastBuildTime.After(cutoff) {
			continue
		}

		opts := &interfaces.SubmitOptions{Priority: models.PriorityLow}
		if _, err := s.queue.SubmitRebuild(ctx, index.ID, opts); err != nil {
			s.logger.Warn().Err(err).Str("index_id", index.ID).Msg("Failed to submit refresh rebuild")
			continue
		}
		submitted++
	}

	if submitted > 0 {
		s.logger.Info().Int("submitted", submitted).Msg("Stale index refresh rebuilds submitted")
	}
	return nil
}
