package middleware

import (
	"net/http"
	"strings"

	"h1nted/internal/auth"
	"h1nted/internal/domain"
	"h1nted/internal/httputil"
)

// AuthMiddleware requires a valid Supabase bearer token on every route
// except CORS pre-flight and the health check. The user id and the raw
// token are stored in the request context.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				httputil.RespondError(w, r, http.StatusUnauthorized, domain.CodeUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, r, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid or expired token")
				return
			}

			r = httputil.WithUserID(r, claims.GetUserID())
			r = httputil.WithAuthToken(r, token)
			r = httputil.WithLogger(r, httputil.Logger(r.Context()).With("user_id", claims.GetUserID()))
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
