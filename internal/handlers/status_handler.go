package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// StatusHandler reports application health and queue state
type StatusHandler struct {
	queue     interfaces.QueueService
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

// NewStatusHandler creates a status handler. Scheduler may be nil when
// maintenance is disabled.
func NewStatusHandler(queue interfaces.QueueService, scheduler interfaces.SchedulerService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		queue:     queue,
		scheduler: scheduler,
		logger:    logger,
	}
}

// GetStatusHandler returns version, queue counts and scheduler state
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status := map[string]interface{}{
		"status":  "ok",
		"version": common.GetVersion(),
		"queue":   h.queue.GetCounts(),
	}
	if h.scheduler != nil {
		status["scheduler"] = map[string]interface{}{
			"running": h.scheduler.IsRunning(),
			"jobs":    h.scheduler.Jobs(),
		}
	}

	WriteJSON(w, http.StatusOK, status)
}

// HealthHandler is a bare liveness probe
// GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// VersionHandler returns build information
// GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetFullVersion(),
	})
}
