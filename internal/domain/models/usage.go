package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Usage modes. Profiling is billed separately from the chat/image request
// that carried it.
const (
	UsageModeChat      = "chat"
	UsageModeImage     = "image"
	UsageModeCDRs      = "cdrs"
	UsageModeProfiling = "profiling"
)

// UsageCounter is one user's daily tally for a mode
type UsageCounter struct {
	UserID    string          `json:"userId" db:"user_id"`
	Day       time.Time       `json:"day" db:"day"`
	Mode      string          `json:"mode" db:"mode"`
	Requests  int64           `json:"requests" db:"requests"`
	Credits   decimal.Decimal `json:"credits" db:"credits"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// IncrementUsageRequest is the body of POST /api/usage/increment
type IncrementUsageRequest struct {
	Mode      string `json:"mode"`
	ProfileID string `json:"profileId"`
}
