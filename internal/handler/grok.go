package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"h1nted/internal/config"
	"h1nted/internal/domain"
	"h1nted/internal/domain/services"
	"h1nted/internal/handler/sse"
	"h1nted/internal/httputil"
)

// GrokHandler serves the grok-3 completion route
type GrokHandler struct {
	service   services.GrokService
	sseConfig *sse.Config
	logger    *slog.Logger
}

func NewGrokHandler(service services.GrokService, sseConfig *sse.Config, logger *slog.Logger) *GrokHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &GrokHandler{service: service, sseConfig: sseConfig, logger: logger}
}

// Complete runs one grok-3 request
// POST /api/ai/grok-3
func (h *GrokHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req services.GrokRequest
	if !parseBody(w, r, &req, config.MaxRequestBodyBytes) {
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.AuthToken = httputil.GetAuthToken(r)

	out, err := h.service.Complete(r.Context(), &req)
	if out != nil {
		setMetaHeaders(w.Header(), out.Meta)
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	if out.Stream != nil {
		h.stream(w, r, out.Stream)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, out.Response)
}

// stream relays the upstream event stream with heartbeats. Errors after
// the headers are sent can only be logged.
func (h *GrokHandler) stream(w http.ResponseWriter, r *http.Request, relay services.StreamRelay) {
	logger := httputil.Logger(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("response writer does not support flushing")
		httputil.RespondError(w, r, http.StatusInternalServerError, domain.CodeInternal, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	writer := sse.NewWriter(w, flusher)
	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.HeartbeatInterval)
	stopped := keepAlive.Start(writer, logger)
	defer func() {
		keepAlive.Stop()
		<-stopped
		writer.Close()
	}()

	if err := relay.Relay(r.Context(), writer); err != nil {
		logger.Warn("stream relay ended early", "error", err)
	}
}

func setMetaHeaders(h http.Header, meta services.ContextMeta) {
	if meta.Branch != "" {
		h.Set("x-branch", meta.Branch)
	}
	h.Set("x-history-count", strconv.Itoa(meta.HistoryCount))
	if meta.CDRsFormula != "" {
		h.Set("x-cdrs-formula", meta.CDRsFormula)
	}
	h.Set("x-prof-sig", strconv.FormatBool(meta.ProfilingSignature))
}
