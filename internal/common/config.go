// -----------------------------------------------------------------------
// Last Modified: Friday, 21st August 2026 10:42:17 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Queue       QueueConfig       `toml:"queue"`
	Storage     StorageConfig     `toml:"storage"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
	Logging     LoggingConfig     `toml:"logging"`
	Search      SearchConfig      `toml:"search"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// QueueConfig contains index job queue tunables
type QueueConfig struct {
	TickInterval  string `toml:"tick_interval"`  // e.g., "1s" - scheduler dispatch tick
	MaxConcurrent int    `toml:"max_concurrent"` // Hard ceiling on simultaneously processing jobs
	RetryDelay    string `toml:"retry_delay"`    // Fixed delay before a retrying job is re-dispatched
	MaxAttempts   int    `toml:"max_attempts"`   // Default attempt budget per job
	Retention     string `toml:"retention"`      // How long terminal jobs are kept before cleanup
	SyncInterval  string `toml:"sync_interval"`  // Background full resync of job records to storage
	DrainTimeout  string `toml:"drain_timeout"`  // How long Shutdown waits for in-flight jobs
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// CatalogConfig contains entity catalog behavior
type CatalogConfig struct {
	BatchSize    int    `toml:"batch_size"`    // Entities per page during rebuild scans
	BuildRate    int    `toml:"build_rate"`    // Builder invocations per second during rebuilds (0 = unlimited)
	DefaultLimit int    `toml:"default_limit"` // Default page size for catalog listings
	StaleAfter   string `toml:"stale_after"`   // Age at which a ready index is considered stale
}

// MaintenanceConfig contains cron-driven maintenance schedules
type MaintenanceConfig struct {
	Enabled         bool   `toml:"enabled"`          // Enable the maintenance scheduler
	CleanupSchedule string `toml:"cleanup_schedule"` // Cron schedule for terminal job cleanup
	RefreshSchedule string `toml:"refresh_schedule"` // Cron schedule for stale index refresh
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// SearchConfig contains configuration for query behavior
type SearchConfig struct {
	MaxResults int `toml:"max_results"` // Result cap per query (default: 50)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings should be exposed in indago.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Queue: QueueConfig{
			TickInterval:  "1s",
			MaxConcurrent: 4,
			RetryDelay:    "30s",
			MaxAttempts:   3,
			Retention:     "24h",
			SyncInterval:  "30s",
			DrainTimeout:  "30s",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Catalog: CatalogConfig{
			BatchSize:    100,
			BuildRate:    0, // Unlimited - embedded builders are cheap
			DefaultLimit: 50,
			StaleAfter:   "168h", // One week
		},
		Maintenance: MaintenanceConfig{
			Enabled:         true,
			CleanupSchedule: "0 * * * *",  // Hourly terminal job cleanup
			RefreshSchedule: "30 3 * * *", // Nightly stale index refresh
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Search: SearchConfig{
			MaxResults: 50,
		},
	}
}

// LoadFromFiles loads configuration from multiple files.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks duration fields and value ranges after merging
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, value := range map[string]string{
		"queue.tick_interval": c.Queue.TickInterval,
		"queue.retry_delay":   c.Queue.RetryDelay,
		"queue.retention":     c.Queue.Retention,
		"queue.sync_interval": c.Queue.SyncInterval,
		"queue.drain_timeout": c.Queue.DrainTimeout,
		"catalog.stale_after": c.Catalog.StaleAfter,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if c.Queue.MaxConcurrent < 1 {
		return fmt.Errorf("queue.max_concurrent must be at least 1, got %d", c.Queue.MaxConcurrent)
	}
	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("queue.max_attempts must be at least 1, got %d", c.Queue.MaxAttempts)
	}
	if c.Catalog.BatchSize < 1 {
		return fmt.Errorf("catalog.batch_size must be at least 1, got %d", c.Catalog.BatchSize)
	}

	return nil
}

// Duration parses a duration config value that was already validated
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INDAGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("INDAGO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("INDAGO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if tick := os.Getenv("INDAGO_QUEUE_TICK_INTERVAL"); tick != "" {
		config.Queue.TickInterval = tick
	}
	if concurrent := os.Getenv("INDAGO_QUEUE_MAX_CONCURRENT"); concurrent != "" {
		if c, err := strconv.Atoi(concurrent); err == nil {
			config.Queue.MaxConcurrent = c
		}
	}
	if delay := os.Getenv("INDAGO_QUEUE_RETRY_DELAY"); delay != "" {
		config.Queue.RetryDelay = delay
	}
	if attempts := os.Getenv("INDAGO_QUEUE_MAX_ATTEMPTS"); attempts != "" {
		if a, err := strconv.Atoi(attempts); err == nil {
			config.Queue.MaxAttempts = a
		}
	}

	if badgerPath := os.Getenv("INDAGO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("INDAGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("INDAGO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
