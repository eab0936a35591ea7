package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/repositories"
)

// PostgresUsageRepository implements repositories.UsageRepository
type PostgresUsageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewUsageRepository creates a new PostgresUsageRepository
func NewUsageRepository(config *RepositoryConfig) repositories.UsageRepository {
	return &PostgresUsageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Credits cross the wire as text so decimal precision never passes through
// a float.
const usageColumns = `user_id, day, mode, requests, credits::text, updated_at`

// Increment upserts the day's counter
func (r *PostgresUsageRepository) Increment(ctx context.Context, userID string, day time.Time, mode string, credits decimal.Decimal) (*models.UsageCounter, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s AS u (user_id, day, mode, requests, credits, updated_at)
		VALUES ($1, $2::date, $3, 1, $4::numeric, now())
		ON CONFLICT (user_id, day, mode) DO UPDATE SET
			requests = u.requests + 1,
			credits = u.credits + EXCLUDED.credits,
			updated_at = now()
		RETURNING %s
	`, r.tables.UsageCounters, usageColumns)

	executor := GetExecutor(ctx, r.pool)
	row := executor.QueryRow(ctx, query, userID, day.Format(time.DateOnly), mode, credits.String())

	counter, err := scanUsage(row)
	if err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}

	return counter, nil
}

// ListByDay returns every mode's counter for the day
func (r *PostgresUsageRepository) ListByDay(ctx context.Context, userID string, day time.Time) ([]models.UsageCounter, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND day = $2::date
		ORDER BY mode
	`, usageColumns, r.tables.UsageCounters)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, day.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	counters := []models.UsageCounter{}
	for rows.Next() {
		counter, err := scanUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		counters = append(counters, *counter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage: %w", err)
	}

	return counters, nil
}

func scanUsage(row pgx.Row) (*models.UsageCounter, error) {
	var (
		counter models.UsageCounter
		credits string
	)
	if err := row.Scan(
		&counter.UserID,
		&counter.Day,
		&counter.Mode,
		&counter.Requests,
		&credits,
		&counter.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(credits)
	if err != nil {
		return nil, fmt.Errorf("parse credits %q: %w", credits, err)
	}
	counter.Credits = parsed

	return &counter, nil
}
