package services

import (
	"context"

	"h1nted/internal/domain/models"
)

// ChatHistoryService reads the recent conversation for a profile
type ChatHistoryService interface {
	Recent(ctx context.Context, userID, profileID string) ([]models.ChatMessage, error)
}
