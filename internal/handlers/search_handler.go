package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
)

// SearchHandler exposes index queries over HTTP
type SearchHandler struct {
	search       interfaces.SearchService
	defaultLimit int
	logger       arbor.ILogger
}

// NewSearchHandler creates a search handler
func NewSearchHandler(search interfaces.SearchService, defaultLimit int, logger arbor.ILogger) *SearchHandler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &SearchHandler{
		search:       search,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// SearchHandler runs a query against one index
// GET /api/search?index_id=idx_...&q=terms&limit=10
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	indexID := r.URL.Query().Get("index_id")
	query := r.URL.Query().Get("q")
	if indexID == "" || query == "" {
		WriteError(w, http.StatusBadRequest, "index_id and q are required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	results, err := h.search.Search(r.Context(), indexID, query, limit)
	if err != nil {
		if errors.Is(err, interfaces.ErrIndexNotFound) {
			WriteError(w, http.StatusNotFound, "Index not found")
			return
		}
		h.logger.Error().Err(err).Str("index_id", indexID).Msg("Search failed")
		WriteError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}
