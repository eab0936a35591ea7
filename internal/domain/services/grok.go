package services

import "context"

// GrokRequest is the body of POST /api/ai/grok-3. UserID and AuthToken come
// from the authenticated request, never from the body.
type GrokRequest struct {
	ProfileID       string   `json:"profileId"`
	Prompt          string   `json:"prompt"`
	ImageBase64     string   `json:"imageBase64"`
	Images          []string `json:"images"`
	Profiling       bool     `json:"profiling"`
	UserLanguage    string   `json:"userLanguage"`
	Mode            string   `json:"mode"`
	SavedMessageIDs []string `json:"savedMessageIds"`
	Stream          bool     `json:"stream"`

	UserID    string `json:"-"`
	AuthToken string `json:"-"`
}

// GrokResponse is the non-streaming success body
type GrokResponse struct {
	Result string `json:"result"`
	Model  string `json:"model"`
}

// ContextMeta describes how the request was assembled. The handler exposes
// it as x-branch, x-history-count, x-cdrs-formula and x-prof-sig headers.
type ContextMeta struct {
	Branch             string
	HistoryCount       int
	CDRsFormula        string // storage, fallback or none; empty outside CDRs
	ProfilingSignature bool
}

// CDRs formula sources reported in ContextMeta
const (
	FormulaStorage  = "storage"
	FormulaFallback = "fallback"
	FormulaNone     = "none"
)

// EventWriter receives relayed SSE data payloads
type EventWriter interface {
	WriteEvent(data []byte) error
}

// StreamRelay forwards an upstream event stream to the caller and persists
// the assembled text once the stream completes.
type StreamRelay interface {
	Relay(ctx context.Context, w EventWriter) error
}

// GrokOutcome holds exactly one of Response and Stream on success
type GrokOutcome struct {
	Meta     ContextMeta
	Response *GrokResponse
	Stream   StreamRelay
}

// GrokService runs the grok-3 route
type GrokService interface {
	// Complete validates, assembles and sends the request. On failures after
	// assembly the returned outcome still carries Meta.
	Complete(ctx context.Context, req *GrokRequest) (*GrokOutcome, error)
}
