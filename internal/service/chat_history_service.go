package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"h1nted/internal/domain"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/repositories"
	"h1nted/internal/domain/services"
)

// ChatHistoryService reads back the rows the grok route replays
type ChatHistoryService struct {
	repo   repositories.ChatMessageRepository
	window time.Duration
	logger *slog.Logger
}

func NewChatHistoryService(repo repositories.ChatMessageRepository, window time.Duration, logger *slog.Logger) services.ChatHistoryService {
	return &ChatHistoryService{repo: repo, window: window, logger: logger}
}

// Recent returns the profile's rows inside the history window, oldest first
func (s *ChatHistoryService) Recent(ctx context.Context, userID, profileID string) ([]models.ChatMessage, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, domain.Invalid("profile id is required")
	}

	rows, err := s.repo.ListRecent(ctx, userID, profileID, time.Now().Add(-s.window))
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	if rows == nil {
		rows = []models.ChatMessage{}
	}
	return rows, nil
}
