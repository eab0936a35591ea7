package httputil

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	authTokenKey contextKey = "authToken"
	traceIDKey   contextKey = "traceID"
	loggerKey    contextKey = "logger"
)

// WithUserID adds userID to the request context
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// WithAuthToken keeps the caller's bearer token for calls made on their behalf
func WithAuthToken(r *http.Request, token string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authTokenKey, token))
}

func GetAuthToken(r *http.Request) string {
	token, _ := r.Context().Value(authTokenKey).(string)
	return token
}

// WithTraceID adds the request trace id
func WithTraceID(r *http.Request, traceID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), traceIDKey, traceID))
}

func GetTraceID(r *http.Request) string {
	traceID, _ := r.Context().Value(traceIDKey).(string)
	return traceID
}

// WithLogger stores a request-scoped logger
func WithLogger(r *http.Request, logger *slog.Logger) *http.Request {
	return r.WithContext(ContextWithLogger(r.Context(), logger))
}

func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request-scoped logger, falling back to slog.Default
func Logger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
