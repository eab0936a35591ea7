package repositories

import (
	"context"

	"h1nted/internal/domain/models"
)

// SavedReportRepository defines data access for saved reports
type SavedReportRepository interface {
	Insert(ctx context.Context, report *models.SavedReport) error

	// GetByIDs returns the user's reports among ids in the order given.
	// Unknown or foreign ids are skipped, not reported.
	GetByIDs(ctx context.Context, userID string, ids []string) ([]models.SavedReport, error)

	// List returns the user's reports newest first, optionally for one folder
	List(ctx context.Context, userID, folder string) ([]models.SavedReport, error)

	// Delete removes a report. Returns ErrNotFound when absent or not owned.
	Delete(ctx context.Context, userID, id string) error
}
