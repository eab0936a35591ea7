package usage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"h1nted/internal/domain"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/repositories"
	"h1nted/internal/domain/services"
)

// Costs is the credit price of one request per mode
type Costs struct {
	Chat      decimal.Decimal
	Image     decimal.Decimal
	CDRs      decimal.Decimal
	Profiling decimal.Decimal
}

func (c Costs) forMode(mode string) decimal.Decimal {
	switch mode {
	case models.UsageModeImage:
		return c.Image
	case models.UsageModeCDRs:
		return c.CDRs
	case models.UsageModeProfiling:
		return c.Profiling
	}
	return c.Chat
}

// Service implements services.UsageService
type Service struct {
	repo   repositories.UsageRepository
	costs  Costs
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo repositories.UsageRepository, costs Costs, logger *slog.Logger) services.UsageService {
	return &Service{repo: repo, costs: costs, logger: logger, now: time.Now}
}

// Increment adds one request and the mode's cost to today's UTC counter
func (s *Service) Increment(ctx context.Context, userID string, req *models.IncrementUsageRequest) (*models.UsageCounter, error) {
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Mode,
			validation.Required,
			validation.In(models.UsageModeChat, models.UsageModeImage, models.UsageModeCDRs, models.UsageModeProfiling),
		),
	); err != nil {
		return nil, domain.Invalid("invalid usage mode").WithDetail("fields", err)
	}

	counter, err := s.repo.Increment(ctx, userID, s.today(), req.Mode, s.costs.forMode(req.Mode))
	if err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}

	s.logger.Debug("usage incremented",
		"user_id", userID,
		"mode", req.Mode,
		"profile_id", req.ProfileID,
		"requests", counter.Requests,
		"credits", counter.Credits.String(),
	)
	return counter, nil
}

// Today returns the user's counters for the current UTC day
func (s *Service) Today(ctx context.Context, userID string) ([]models.UsageCounter, error) {
	counters, err := s.repo.ListByDay(ctx, userID, s.today())
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	if counters == nil {
		counters = []models.UsageCounter{}
	}
	return counters, nil
}

func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
