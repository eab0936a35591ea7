package models

import "time"

// Chat row roles
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// MessageTypeSystemMarker tags rows that record an event (profiling context
// loaded) rather than conversation text. History reload skips them.
const MessageTypeSystemMarker = "system_marker"

// ChatMessage is one append-only row of a profile's conversation.
// Type carries the branch that produced it (chat, image, cdrs, profiling).
type ChatMessage struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	ProfileID string    `json:"profileId" db:"profile_id"`
	Role      string    `json:"role" db:"role"`
	Type      string    `json:"type" db:"type"`
	Content   string    `json:"content" db:"content"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
