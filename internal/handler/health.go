package handler

import (
	"context"
	"net/http"
	"time"

	"h1nted/internal/httputil"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness and database reachability
// GET /health
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			httputil.Logger(r.Context()).Warn("health check database ping failed", "error", err)
			httputil.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
