// -------------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// JobHandler exposes the index job queue over HTTP
type JobHandler struct {
	queue  interfaces.QueueService
	logger arbor.ILogger
}

// NewJobHandler creates a job handler
func NewJobHandler(queue interfaces.QueueService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		queue:  queue,
		logger: logger,
	}
}

type submitUpdateRequest struct {
	IndexID    string `json:"index_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Priority   string `json:"priority,omitempty"`
}

type submitRebuildRequest struct {
	IndexID  string `json:"index_id"`
	Priority string `json:"priority,omitempty"`
}

// SubmitUpdateHandler enqueues a single-entity update job
// POST /api/jobs/update
func (h *JobHandler) SubmitUpdateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req submitUpdateRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	opts := &interfaces.SubmitOptions{Priority: models.JobPriority(req.Priority)}
	jobID, err := h.queue.SubmitUpdate(r.Context(), req.IndexID, req.EntityType, req.EntityID, opts)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// SubmitRebuildHandler enqueues a full rebuild job
// POST /api/jobs/rebuild
func (h *JobHandler) SubmitRebuildHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req submitRebuildRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	opts := &interfaces.SubmitOptions{Priority: models.JobPriority(req.Priority)}
	jobID, err := h.queue.SubmitRebuild(r.Context(), req.IndexID, opts)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// ListJobsHandler returns all jobs, optionally filtered by status
// GET /api/jobs?status=pending
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status := models.JobStatus(r.URL.Query().Get("status"))
	jobs := h.queue.GetAll(status)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// JobByIDHandler serves GET and DELETE for /api/jobs/{id}
func (h *JobHandler) JobByIDHandler(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job := h.queue.Get(jobID)
		if job == nil {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		WriteJSON(w, http.StatusOK, job)

	case http.MethodDelete:
		if !h.queue.Remove(r.Context(), jobID) {
			WriteError(w, http.StatusConflict, "Job is processing or does not exist")
			return
		}
		WriteSuccess(w, "Job removed")

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// StatsHandler returns job counts per status
// GET /api/jobs/stats
func (h *JobHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.queue.GetCounts())
}

// CleanupHandler removes terminal jobs past the retention window
// POST /api/jobs/cleanup
func (h *JobHandler) CleanupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	removed := h.queue.Cleanup(r.Context())
	WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// PauseHandler suspends job dispatch
// POST /api/queue/pause
func (h *JobHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	h.queue.Pause()
	WriteSuccess(w, "Queue paused")
}

// ResumeHandler re-enables job dispatch
// POST /api/queue/resume
func (h *JobHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	h.queue.Resume()
	WriteSuccess(w, "Queue resumed")
}

func (h *JobHandler) writeSubmitError(w http.ResponseWriter, err error) {
	if errors.Is(err, interfaces.ErrIndexNotFound) {
		WriteError(w, http.StatusNotFound, "Index not found")
		return
	}
	h.logger.Warn().Err(err).Msg("Job submission rejected")
	WriteError(w, http.StatusBadRequest, err.Error())
}
