// -------------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/handlers"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/queue"
	"github.com/ternarybob/indago/internal/services/builder"
	"github.com/ternarybob/indago/internal/services/catalog"
	"github.com/ternarybob/indago/internal/services/events"
	indexsvc "github.com/ternarybob/indago/internal/services/index"
	"github.com/ternarybob/indago/internal/services/scheduler"
	"github.com/ternarybob/indago/internal/services/search"
	badgerstore "github.com/ternarybob/indago/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	EventService     interfaces.EventService
	IndexService     interfaces.IndexService
	EntityService    interfaces.EntityService
	BuilderRegistry  interfaces.BuilderRegistry
	SearchService    interfaces.SearchService
	Queue            *queue.Queue
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	JobHandler    *handlers.JobHandler
	IndexHandler  *handlers.IndexHandler
	EntityHandler *handlers.EntityHandler
	SearchHandler *handlers.SearchHandler
	StatusHandler *handlers.StatusHandler
	WSHandler     *handlers.WebSocketHandler
}

// New wires the application together: storage, services, the job
// queue and the HTTP handlers
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := badgerstore.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.StorageManager = storageManager

	a.EventService = events.NewService(logger)
	a.IndexService = indexsvc.NewService(storageManager.IndexStorage(), storageManager.SearchStorage(), logger)
	a.EntityService = catalog.NewService(storageManager.EntityStorage(), logger)
	a.BuilderRegistry = builder.NewRegistry(storageManager.SearchStorage(), logger)
	a.SearchService = search.NewService(a.IndexService, a.EntityService, storageManager.SearchStorage(), logger)

	q, err := queue.NewQueue(queue.ConfigFromApp(config), queue.Deps{
		Storage:  storageManager.JobStorage(),
		Indexes:  a.IndexService,
		Entities: a.EntityService,
		Builders: a.BuilderRegistry,
		Events:   a.EventService,
		Logger:   logger,
	})
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to create queue: %w", err)
	}
	a.Queue = q

	if config.Maintenance.Enabled {
		a.SchedulerService = scheduler.NewService(config, q, a.IndexService, logger)
	}

	a.JobHandler = handlers.NewJobHandler(q, logger)
	a.IndexHandler = handlers.NewIndexHandler(a.IndexService, q, logger)
	a.EntityHandler = handlers.NewEntityHandler(a.EntityService, logger)
	a.SearchHandler = handlers.NewSearchHandler(a.SearchService, config.Catalog.DefaultLimit, logger)
	a.StatusHandler = handlers.NewStatusHandler(q, a.SchedulerService, logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, logger)

	return a, nil
}

// Start recovers the queue and launches background services
func (a *App) Start(ctx context.Context) error {
	if err := a.Queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue: %w", err)
	}

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	return nil
}

// Shutdown stops background services, drains the queue and closes
// storage
func (a *App) Shutdown(ctx context.Context) error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
		}
	}

	if err := a.Queue.Shutdown(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Queue shutdown failed")
	}

	a.WSHandler.Close()

	if err := a.EventService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Event service close failed")
	}

	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
