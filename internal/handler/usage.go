package handler

import (
	"log/slog"
	"net/http"

	"h1nted/internal/domain/models"
	"h1nted/internal/domain/services"
	"h1nted/internal/httputil"
)

const maxUsageBodyBytes = 4 << 10

// UsageHandler records and reports daily usage
type UsageHandler struct {
	service services.UsageService
	logger  *slog.Logger
}

func NewUsageHandler(service services.UsageService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{service: service, logger: logger}
}

// Increment adds one request for a mode
// POST /api/usage/increment
func (h *UsageHandler) Increment(w http.ResponseWriter, r *http.Request) {
	var req models.IncrementUsageRequest
	if !parseBody(w, r, &req, maxUsageBodyBytes) {
		return
	}

	counter, err := h.service.Increment(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, counter)
}

// Today lists today's counters
// GET /api/usage
func (h *UsageHandler) Today(w http.ResponseWriter, r *http.Request) {
	counters, err := h.service.Today(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, counters)
}
