package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/dartlens/backend/pkg/logger"
)

// MappingReloader reloads the account mapping reference data
type MappingReloader interface {
	Reload(ctx context.Context) (int, error)
}

// MappingsHandler exposes mapping administration
type MappingsHandler struct {
	reloader MappingReloader
	logger   *logger.Logger
}

// NewMappingsHandler creates a new mappings handler
func NewMappingsHandler(reloader MappingReloader, log *logger.Logger) *MappingsHandler {
	return &MappingsHandler{
		reloader: reloader,
		logger:   log,
	}
}

// Reload re-reads the mapping table
// POST /api/admin/mappings/reload
func (h *MappingsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	n, err := h.reloader.Reload(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to reload account mappings")
		respondError(w, http.StatusInternalServerError, "Failed to reload account mappings")
		return
	}

	h.logger.WithField("mappings", n).Info("Account mappings reloaded")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"mappings": n,
	})
}
