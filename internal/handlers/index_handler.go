package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// IndexHandler exposes index metadata over HTTP. Creation goes through
// the queue as an asynchronous create job.
type IndexHandler struct {
	indexes interfaces.IndexService
	queue   interfaces.QueueService
	logger  arbor.ILogger
}

// NewIndexHandler creates an index handler
func NewIndexHandler(indexes interfaces.IndexService, queue interfaces.QueueService, logger arbor.ILogger) *IndexHandler {
	return &IndexHandler{
		indexes: indexes,
		queue:   queue,
		logger:  logger,
	}
}

type createIndexRequest struct {
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
	Kind       string `json:"kind"`
	Priority   string `json:"priority,omitempty"`
}

// IndexesHandler serves GET (list) and POST (create) for /api/indexes
func (h *IndexHandler) IndexesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		indexes, err := h.indexes.List(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list indexes")
			WriteError(w, http.StatusInternalServerError, "Failed to list indexes")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"indexes": indexes,
			"count":   len(indexes),
		})

	case http.MethodPost:
		var req createIndexRequest
		if !DecodeBody(w, r, &req) {
			return
		}

		spec := &models.IndexSpec{
			Name:       req.Name,
			EntityType: req.EntityType,
			Kind:       models.IndexKind(req.Kind),
		}
		opts := &interfaces.SubmitOptions{Priority: models.JobPriority(req.Priority)}

		jobID, err := h.queue.SubmitCreate(r.Context(), spec, opts)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// IndexByIDHandler serves GET and DELETE for /api/indexes/{id}
func (h *IndexHandler) IndexByIDHandler(w http.ResponseWriter, r *http.Request) {
	indexID := strings.TrimPrefix(r.URL.Path, "/api/indexes/")
	if indexID == "" || strings.Contains(indexID, "/") {
		WriteError(w, http.StatusBadRequest, "Index ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		index, err := h.indexes.Get(r.Context(), indexID)
		if err != nil {
			if errors.Is(err, interfaces.ErrIndexNotFound) {
				WriteError(w, http.StatusNotFound, "Index not found")
				return
			}
			h.logger.Error().Err(err).Str("index_id", indexID).Msg("Failed to load index")
			WriteError(w, http.StatusInternalServerError, "Failed to load index")
			return
		}
		WriteJSON(w, http.StatusOK, index)

	case http.MethodDelete:
		if err := h.indexes.Delete(r.Context(), indexID); err != nil {
			if errors.Is(err, interfaces.ErrIndexNotFound) {
				WriteError(w, http.StatusNotFound, "Index not found")
				return
			}
			h.logger.Error().Err(err).Str("index_id", indexID).Msg("Failed to delete index")
			WriteError(w, http.StatusInternalServerError, "Failed to delete index")
			return
		}
		WriteSuccess(w, "Index deleted")

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
