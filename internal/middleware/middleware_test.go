package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"h1nted/internal/domain"
	"h1nted/internal/domain/models"
	"h1nted/internal/httputil"
)

type stubVerifier struct {
	token string
}

func (s *stubVerifier) VerifyToken(token string) (*models.SupabaseClaims, error) {
	if token != s.token {
		return nil, domain.ErrUnauthorized
	}
	claims := &models.SupabaseClaims{Role: "authenticated"}
	claims.Subject = "user-1"
	return claims, nil
}

func (s *stubVerifier) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestAuthMiddleware covers header parsing, skips and context propagation
func TestAuthMiddleware(t *testing.T) {
	var gotUser, gotToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = httputil.GetUserID(r)
		gotToken = httputil.GetAuthToken(r)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := AuthMiddleware(&stubVerifier{token: "good"})(next)

	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid token", http.MethodPost, "/api/ai/grok-3", "Bearer good", http.StatusNoContent, "user-1"},
		{"lowercase scheme", http.MethodGet, "/api/usage", "bearer good", http.StatusNoContent, "user-1"},
		{"missing header", http.MethodPost, "/api/ai/grok-3", "", http.StatusUnauthorized, ""},
		{"wrong scheme", http.MethodPost, "/api/ai/grok-3", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", http.MethodPost, "/api/ai/grok-3", "Bearer nope", http.StatusUnauthorized, ""},
		{"health skipped", http.MethodGet, "/health", "", http.StatusNoContent, ""},
		{"preflight skipped", http.MethodOptions, "/api/ai/grok-3", "", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotToken = "", ""
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUser != tt.wantUser {
				t.Errorf("user = %q, want %q", gotUser, tt.wantUser)
			}
			if tt.wantUser != "" && gotToken != "good" {
				t.Errorf("token = %q, want forwarded bearer token", gotToken)
			}
			if rec.Code == http.StatusUnauthorized {
				var body httputil.ErrorBody
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				if body.Code != domain.CodeUnauthorized {
					t.Errorf("code = %q", body.Code)
				}
			}
		})
	}
}

// TestTraceAssignsID verifies a fresh id is generated and exposed
func TestTraceAssignsID(t *testing.T) {
	var ctxTrace string
	handler := Trace(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxTrace = httputil.GetTraceID(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	header := rec.Header().Get(TraceHeader)
	if _, err := uuid.Parse(header); err != nil {
		t.Fatalf("x-trace-id = %q, want uuid", header)
	}
	if ctxTrace != header {
		t.Errorf("context trace = %q, header = %q", ctxTrace, header)
	}
}

// TestTraceReusesIncomingID keeps a caller-supplied uuid
func TestTraceReusesIncomingID(t *testing.T) {
	id := uuid.NewString()
	handler := Trace(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(TraceHeader, id)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(TraceHeader); got != id {
		t.Errorf("x-trace-id = %q, want %q", got, id)
	}
}

// TestRecoveryReturnsErrorBody turns a panic into INTERNAL_ERROR with the trace id
func TestRecoveryReturnsErrorBody(t *testing.T) {
	handler := Trace(discardLogger())(Recovery()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/usage", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body httputil.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != domain.CodeInternal || body.TraceID == "" {
		t.Errorf("body = %+v", body)
	}
	if body.TraceID != rec.Header().Get(TraceHeader) {
		t.Errorf("traceId %q does not match header", body.TraceID)
	}
}
