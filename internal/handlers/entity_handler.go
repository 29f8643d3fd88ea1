package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// EntityHandler manages catalog entities over HTTP
type EntityHandler struct {
	entities interfaces.EntityService
	logger   arbor.ILogger
}

// NewEntityHandler creates an entity handler
func NewEntityHandler(entities interfaces.EntityService, logger arbor.ILogger) *EntityHandler {
	return &EntityHandler{
		entities: entities,
		logger:   logger,
	}
}

// SaveEntityHandler upserts a catalog entity
// POST /api/entities
func (h *EntityHandler) SaveEntityHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var entity models.CatalogEntity
	if !DecodeBody(w, r, &entity) {
		return
	}

	saved, err := h.entities.Save(r.Context(), &entity)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

// EntityByPathHandler serves GET and DELETE for /api/entities/{type}/{id}
func (h *EntityHandler) EntityByPathHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/entities/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		WriteError(w, http.StatusBadRequest, "Entity type and ID are required")
		return
	}
	entityType, entityID := parts[0], parts[1]

	switch r.Method {
	case http.MethodGet:
		entity, err := h.entities.Get(r.Context(), entityType, entityID)
		if err != nil {
			if errors.Is(err, interfaces.ErrEntityNotFound) {
				WriteError(w, http.StatusNotFound, "Entity not found")
				return
			}
			h.logger.Error().Err(err).Str("entity_id", entityID).Msg("Failed to load entity")
			WriteError(w, http.StatusInternalServerError, "Failed to load entity")
			return
		}
		WriteJSON(w, http.StatusOK, entity)

	case http.MethodDelete:
		if err := h.entities.Delete(r.Context(), entityType, entityID); err != nil {
			if errors.Is(err, interfaces.ErrEntityNotFound) {
				WriteError(w, http.StatusNotFound, "Entity not found")
				return
			}
			h.logger.Error().Err(err).Str("entity_id", entityID).Msg("Failed to delete entity")
			WriteError(w, http.StatusInternalServerError, "Failed to delete entity")
			return
		}
		WriteSuccess(w, "Entity deleted")

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
