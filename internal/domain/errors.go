package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Machine-readable error codes returned in the "code" field of error bodies.
const (
	CodePayloadInvalid       = "PAYLOAD_INVALID"
	CodeModeConflict         = "MODE_CONFLICT"
	CodeCDRsMinItemsNotMet   = "CDRS_MIN_ITEMS_NOT_MET"
	CodeImageCountExceeded   = "IMG_COUNT_EXCEEDED"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeUpstreamTimeout      = "UPSTREAM_TIMEOUT"
	CodeUpstreamError        = "UPSTREAM_ERROR"
	CodeUpstreamBadResponse  = "UPSTREAM_BAD_RESPONSE"
	CodeInternal             = "INTERNAL_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeNotFound             = "NOT_FOUND"
)

// APIError is an error that already knows its status, code and client message.
// Err keeps the underlying cause for logs; it is never sent to the client.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// NewAPIError creates an APIError without a wrapped cause
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// Invalid is the common 400 PAYLOAD_INVALID shape
func Invalid(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, CodePayloadInvalid, message)
}

// Internal wraps an unexpected failure as 500 INTERNAL_ERROR
func Internal(message string, err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message, Err: err}
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error   { return e.Err }
func (e *APIError) StatusCode() int { return e.Status }

// WithDetail returns the error with key set in Details.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Is allows errors.Is() to match the sentinel for the same class of failure
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Status == http.StatusBadRequest
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}
