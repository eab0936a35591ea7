package services

import (
	"context"

	"h1nted/internal/domain/models"
)

// SavedReportService defines the business logic for saved reports
type SavedReportService interface {
	List(ctx context.Context, userID, folder string) ([]models.SavedReport, error)
	Create(ctx context.Context, userID string, req *models.CreateSavedReportRequest) (*models.SavedReport, error)
	Delete(ctx context.Context, userID, id string) error
}
