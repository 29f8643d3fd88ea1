package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket event stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Jobs
	mux.HandleFunc("/api/jobs/update", s.app.JobHandler.SubmitUpdateHandler)
	mux.HandleFunc("/api/jobs/rebuild", s.app.JobHandler.SubmitRebuildHandler)
	mux.HandleFunc("/api/jobs/stats", s.app.JobHandler.StatsHandler)
	mux.HandleFunc("/api/jobs/cleanup", s.app.JobHandler.CleanupHandler)
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.JobByIDHandler) // GET/DELETE /{id}

	// Queue control
	mux.HandleFunc("/api/queue/pause", s.app.JobHandler.PauseHandler)
	mux.HandleFunc("/api/queue/resume", s.app.JobHandler.ResumeHandler)

	// Indexes
	mux.HandleFunc("/api/indexes", s.app.IndexHandler.IndexesHandler)    // GET (list), POST (create job)
	mux.HandleFunc("/api/indexes/", s.app.IndexHandler.IndexByIDHandler) // GET/DELETE /{id}

	// Catalog entities
	mux.HandleFunc("/api/entities", s.app.EntityHandler.SaveEntityHandler)
	mux.HandleFunc("/api/entities/", s.app.EntityHandler.EntityByPathHandler) // GET/DELETE /{type}/{id}

	// Search
	mux.HandleFunc("/api/search", s.app.SearchHandler.SearchHandler)

	// System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)

	return mux
}
