package handler

import (
	"log/slog"
	"net/http"

	"h1nted/internal/config"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/services"
	"h1nted/internal/httputil"
)

// SavedReportHandler handles saved report HTTP requests
type SavedReportHandler struct {
	service services.SavedReportService
	logger  *slog.Logger
}

// NewSavedReportHandler creates a new saved report handler
func NewSavedReportHandler(service services.SavedReportService, logger *slog.Logger) *SavedReportHandler {
	return &SavedReportHandler{service: service, logger: logger}
}

// List returns the user's saved reports
// GET /api/saved-chats?folder=
func (h *SavedReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.List(r.Context(), httputil.GetUserID(r), r.URL.Query().Get("folder"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, reports)
}

// Create saves a report
// POST /api/saved-chats
func (h *SavedReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSavedReportRequest
	if !parseBody(w, r, &req, config.MaxRequestBodyBytes) {
		return
	}

	report, err := h.service.Create(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, report)
}

// Delete removes a report
// DELETE /api/saved-chats/{id}
func (h *SavedReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
