package repositories

import (
	"context"
	"time"

	"h1nted/internal/domain/models"
)

// ChatMessageRepository defines data access for per-profile chat rows
type ChatMessageRepository interface {
	// Insert appends a row and fills in its ID and Timestamp
	Insert(ctx context.Context, msg *models.ChatMessage) error

	// ListRecent returns the user's rows for a profile newer than since,
	// oldest first, without system markers.
	ListRecent(ctx context.Context, userID, profileID string, since time.Time) ([]models.ChatMessage, error)
}
