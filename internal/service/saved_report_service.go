package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"h1nted/internal/config"
	"h1nted/internal/domain"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/repositories"
	"h1nted/internal/domain/services"
)

// SavedReportService implements the SavedReportService interface
type SavedReportService struct {
	repo   repositories.SavedReportRepository
	logger *slog.Logger
}

// NewSavedReportService creates a new saved report service
func NewSavedReportService(repo repositories.SavedReportRepository, logger *slog.Logger) services.SavedReportService {
	return &SavedReportService{repo: repo, logger: logger}
}

// List returns the user's reports, optionally filtered by folder
func (s *SavedReportService) List(ctx context.Context, userID, folder string) ([]models.SavedReport, error) {
	reports, err := s.repo.List(ctx, userID, strings.TrimSpace(folder))
	if err != nil {
		return nil, fmt.Errorf("list saved reports: %w", err)
	}
	if reports == nil {
		reports = []models.SavedReport{}
	}
	return reports, nil
}

// Create validates and stores a report. A blank folder becomes the default.
func (s *SavedReportService) Create(ctx context.Context, userID string, req *models.CreateSavedReportRequest) (*models.SavedReport, error) {
	req.ProfileName = strings.TrimSpace(req.ProfileName)
	req.Folder = strings.TrimSpace(req.Folder)

	if err := validation.ValidateStruct(req,
		validation.Field(&req.ProfileName, validation.Required, validation.RuneLength(1, config.MaxProfileNameLength)),
		validation.Field(&req.Folder, validation.RuneLength(0, config.MaxFolderNameLength)),
		validation.Field(&req.ChatJSON, validation.Required, validation.By(validJSON)),
	); err != nil {
		return nil, domain.Invalid("invalid saved report").WithDetail("fields", err)
	}

	if req.Folder == "" {
		req.Folder = models.DefaultReportFolder
	}

	report := &models.SavedReport{
		UserID:      userID,
		ProfileName: req.ProfileName,
		ChatJSON:    req.ChatJSON,
		Folder:      req.Folder,
	}
	if err := s.repo.Insert(ctx, report); err != nil {
		return nil, fmt.Errorf("create saved report: %w", err)
	}

	s.logger.Info("saved report created", "id", report.ID, "user_id", userID, "folder", report.Folder)
	return report, nil
}

// Delete removes one of the user's reports
func (s *SavedReportService) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.Invalid("id is required")
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete saved report: %w", err)
	}
	s.logger.Info("saved report deleted", "id", id, "user_id", userID)
	return nil
}

func validJSON(value any) error {
	raw, _ := value.(json.RawMessage)
	if !json.Valid(raw) {
		return validation.NewError("validation_invalid_json", "must be valid JSON")
	}
	return nil
}
