package interfaces

import "time"

// MaintenanceJobStatus describes one registered maintenance job
type MaintenanceJobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// SchedulerService runs cron-driven maintenance jobs (terminal job
// cleanup, stale index refresh)
type SchedulerService interface {
	Start() error
	Stop() error
	IsRunning() bool
	// Jobs returns the status of every registered maintenance job
	Jobs() []MaintenanceJobStatus
}
