package middleware

import (
	"net/http"
	"runtime/debug"

	"h1nted/internal/domain"
	"h1nted/internal/httputil"
)

// Recovery middleware recovers from panics and returns a 500 error
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					httputil.Logger(r.Context()).Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"method", r.Method,
						"stack", string(debug.Stack()),
					)

					httputil.RespondError(w, r, http.StatusInternalServerError, domain.CodeInternal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
