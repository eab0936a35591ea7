package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/repositories"
)

// PostgresChatMessageRepository implements repositories.ChatMessageRepository
type PostgresChatMessageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewChatMessageRepository creates a new PostgresChatMessageRepository
func NewChatMessageRepository(config *RepositoryConfig) repositories.ChatMessageRepository {
	return &PostgresChatMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Insert appends a chat row. A zero Timestamp lets the database pick now().
func (r *PostgresChatMessageRepository) Insert(ctx context.Context, msg *models.ChatMessage) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, profile_id, role, type, content, "timestamp")
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		RETURNING id, "timestamp"
	`, r.tables.ChatMessages)

	var ts *time.Time
	if !msg.Timestamp.IsZero() {
		ts = &msg.Timestamp
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		msg.UserID,
		msg.ProfileID,
		msg.Role,
		msg.Type,
		msg.Content,
		ts,
	).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}

	return nil
}

// ListRecent returns non-marker rows newer than since, oldest first
func (r *PostgresChatMessageRepository) ListRecent(ctx context.Context, userID, profileID string, since time.Time) ([]models.ChatMessage, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, profile_id, role, type, content, "timestamp"
		FROM %s
		WHERE user_id = $1
		  AND profile_id = $2
		  AND "timestamp" >= $3
		  AND type <> $4
		ORDER BY "timestamp" ASC, id ASC
	`, r.tables.ChatMessages)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, profileID, since, models.MessageTypeSystemMarker)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.UserID,
			&msg.ProfileID,
			&msg.Role,
			&msg.Type,
			&msg.Content,
			&msg.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	return messages, nil
}
