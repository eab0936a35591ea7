package services

import (
	"context"

	"h1nted/internal/domain/models"
)

// UsageService records and reports per-mode usage
type UsageService interface {
	Increment(ctx context.Context, userID string, req *models.IncrementUsageRequest) (*models.UsageCounter, error)
	Today(ctx context.Context, userID string) ([]models.UsageCounter, error)
}

// UsageNotifier reports a completed upstream call without blocking the caller
type UsageNotifier interface {
	Notify(authToken, mode, profileID string)
}
