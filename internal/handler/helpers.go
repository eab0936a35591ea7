package handler

import (
	"context"
	"errors"
	"net/http"

	"h1nted/internal/domain"
	"h1nted/internal/httputil"
)

// handleError converts domain errors to HTTP responses. APIErrors carry
// their own status and code; bare sentinels map to the generic codes.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *domain.APIError

	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= http.StatusInternalServerError {
			httputil.Logger(r.Context()).Error("request failed",
				"code", apiErr.Code,
				"status", apiErr.Status,
				"error", err,
			)
		}
		httputil.RespondErrorWithDetails(w, r, apiErr.Status, apiErr.Code, apiErr.Message, apiErr.Details)
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, r, http.StatusBadRequest, domain.CodePayloadInvalid, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, r, http.StatusNotFound, domain.CodeNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, r, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body
		httputil.Logger(r.Context()).Info("request canceled by client")
	default:
		httputil.Logger(r.Context()).Error("unhandled error", "error", err)
		httputil.RespondError(w, r, http.StatusInternalServerError, domain.CodeInternal, "internal server error")
	}
}

// parseBody decodes a JSON body, mapping oversize bodies to 413
func parseBody(w http.ResponseWriter, r *http.Request, dest any, limit int64) bool {
	if err := httputil.ParseJSON(w, r, dest, limit); err != nil {
		if httputil.IsBodyTooLarge(err) {
			httputil.RespondError(w, r, http.StatusRequestEntityTooLarge, domain.CodePayloadTooLarge, "request body too large")
			return false
		}
		httputil.RespondError(w, r, http.StatusBadRequest, domain.CodePayloadInvalid, "invalid request body")
		return false
	}
	return true
}
