package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"h1nted/internal/domain/models"
)

// UsageRepository defines data access for daily usage counters
type UsageRepository interface {
	// Increment upserts the (user, day, mode) counter, adding one request
	// and credits, and returns the updated row.
	Increment(ctx context.Context, userID string, day time.Time, mode string, credits decimal.Decimal) (*models.UsageCounter, error)

	// ListByDay returns the user's counters for one day
	ListByDay(ctx context.Context, userID string, day time.Time) ([]models.UsageCounter, error)
}
