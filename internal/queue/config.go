package queue

import (
	"time"

	"github.com/ternarybob/indago/internal/common"
)

// Config holds tunables for the index job queue. Supplied once at
// construction; immutable for the life of the queue instance.
type Config struct {
	// TickInterval is the scheduler dispatch tick
	TickInterval time.Duration

	// MaxConcurrent is the hard ceiling on simultaneously processing jobs
	MaxConcurrent int

	// RetryDelay is the fixed interval before a retrying job becomes
	// eligible for re-dispatch
	RetryDelay time.Duration

	// MaxAttempts is the default attempt budget per job
	MaxAttempts int

	// Retention is how long terminal jobs are kept before Cleanup
	// removes them
	Retention time.Duration

	// SyncInterval drives the background full resync of job records to
	// durable storage
	SyncInterval time.Duration

	// DrainTimeout bounds how long Shutdown waits for in-flight jobs
	DrainTimeout time.Duration

	// BatchSize is entities per page during rebuild scans
	BatchSize int

	// BuildRate caps builder invocations per second during rebuilds
	// (0 = unlimited)
	BuildRate int
}

// NewDefaultConfig creates a queue configuration with sensible defaults
func NewDefaultConfig() Config {
	return Config{
		TickInterval:  1 * time.Second,
		MaxConcurrent: 4,
		RetryDelay:    30 * time.Second,
		MaxAttempts:   3,
		Retention:     24 * time.Hour,
		SyncInterval:  30 * time.Second,
		DrainTimeout:  30 * time.Second,
		BatchSize:     100,
		BuildRate:     0,
	}
}

// ConfigFromApp builds a queue configuration from the application
// config. Duration strings were validated at config load time.
func ConfigFromApp(cfg *common.Config) Config {
	return Config{
		TickInterval:  common.Duration(cfg.Queue.TickInterval),
		MaxConcurrent: cfg.Queue.MaxConcurrent,
		RetryDelay:    common.Duration(cfg.Queue.RetryDelay),
		MaxAttempts:   cfg.Queue.MaxAttempts,
		Retention:     common.Duration(cfg.Queue.Retention),
		SyncInterval:  common.Duration(cfg.Queue.SyncInterval),
		DrainTimeout:  common.Duration(cfg.Queue.DrainTimeout),
		BatchSize:     cfg.Catalog.BatchSize,
		BuildRate:     cfg.Catalog.BuildRate,
	}
}
