package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"h1nted/internal/domain"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/repositories"
)

// PostgresSavedReportRepository implements repositories.SavedReportRepository
type PostgresSavedReportRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewSavedReportRepository creates a new PostgresSavedReportRepository
func NewSavedReportRepository(config *RepositoryConfig) repositories.SavedReportRepository {
	return &PostgresSavedReportRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Chat JSON travels as text and is cast in SQL, so malformed JSON is
// rejected by Postgres rather than by driver encoding rules.
const reportColumns = `id, user_id, profile_name, chat_json::text, folder, saved_at`

// Insert creates a saved report and fills in ID and SavedAt
func (r *PostgresSavedReportRepository) Insert(ctx context.Context, report *models.SavedReport) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, profile_name, chat_json, folder)
		VALUES ($1, $2, $3::jsonb, $4)
		RETURNING id, saved_at
	`, r.tables.SavedReports)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		report.UserID,
		report.ProfileName,
		string(report.ChatJSON),
		report.Folder,
	).Scan(&report.ID, &report.SavedAt)
	if err != nil {
		return fmt.Errorf("insert saved report: %w", err)
	}

	return nil
}

// GetByIDs returns the user's reports among ids, in the order of ids.
// Ids are compared as text so a malformed id simply matches nothing.
func (r *PostgresSavedReportRepository) GetByIDs(ctx context.Context, userID string, ids []string) ([]models.SavedReport, error) {
	if len(ids) == 0 {
		return []models.SavedReport{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND id::text = ANY($2::text[])
		ORDER BY array_position($2::text[], id::text)
	`, reportColumns, r.tables.SavedReports)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("get saved reports: %w", err)
	}

	return collectReports(rows)
}

// List returns the user's reports newest first. An empty folder means all.
func (r *PostgresSavedReportRepository) List(ctx context.Context, userID, folder string) ([]models.SavedReport, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND ($2 = '' OR folder = $2)
		ORDER BY saved_at DESC
	`, reportColumns, r.tables.SavedReports)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, folder)
	if err != nil {
		return nil, fmt.Errorf("list saved reports: %w", err)
	}

	return collectReports(rows)
}

// Delete removes the user's report. A malformed id is reported as not found.
func (r *PostgresSavedReportRepository) Delete(ctx context.Context, userID, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1::text::uuid AND user_id = $2
		RETURNING id
	`, r.tables.SavedReports)

	executor := GetExecutor(ctx, r.pool)
	var deleted string
	err := executor.QueryRow(ctx, query, id, userID).Scan(&deleted)
	if rowMissing(err) {
		return fmt.Errorf("saved report %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete saved report: %w", err)
	}

	return nil
}

func collectReports(rows pgx.Rows) ([]models.SavedReport, error) {
	defer rows.Close()

	reports := []models.SavedReport{}
	for rows.Next() {
		var (
			report   models.SavedReport
			chatJSON string
		)
		if err := rows.Scan(
			&report.ID,
			&report.UserID,
			&report.ProfileName,
			&chatJSON,
			&report.Folder,
			&report.SavedAt,
		); err != nil {
			return nil, fmt.Errorf("scan saved report: %w", err)
		}
		report.ChatJSON = json.RawMessage(chatJSON)
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved reports: %w", err)
	}

	return reports, nil
}
