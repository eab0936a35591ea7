package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	TraceID string         `json:"traceId,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// RespondJSON writes a JSON response with the given status code.
// It marshals first so an encoding failure never leaves a partial body.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("failed to encode response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondError writes {error, code, traceId}
func RespondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	RespondErrorWithDetails(w, r, status, code, message, nil)
}

// RespondErrorWithDetails writes an error body with extra details
func RespondErrorWithDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	RespondJSON(w, status, ErrorBody{
		Error:   message,
		Code:    code,
		TraceID: GetTraceID(r),
		Details: details,
	})
}
