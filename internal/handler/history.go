package handler

import (
	"log/slog"
	"net/http"

	"h1nted/internal/domain/services"
	"h1nted/internal/httputil"
)

type HistoryHandler struct {
	service services.ChatHistoryService
	logger  *slog.Logger
}

func NewHistoryHandler(service services.ChatHistoryService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{service: service, logger: logger}
}

// Recent returns the profile's recent chat rows
// GET /api/profiles/{id}/messages
func (h *HistoryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Recent(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rows)
}
