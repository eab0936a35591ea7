package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"h1nted/internal/domain/models"
	"h1nted/internal/domain/repositories"
	"h1nted/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportSeeder creates sample saved reports and a short chat history so the
// CDRs and history paths can be exercised against a fresh database.
type ReportSeeder struct {
	pool     *pgxpool.Pool
	tables   *postgres.TableNames
	reports  repositories.SavedReportRepository
	messages repositories.ChatMessageRepository
	logger   *slog.Logger
}

func NewReportSeeder(pool *pgxpool.Pool, config *postgres.RepositoryConfig, logger *slog.Logger) *ReportSeeder {
	return &ReportSeeder{
		pool:     pool,
		tables:   config.Tables,
		reports:  postgres.NewSavedReportRepository(config),
		messages: postgres.NewChatMessageRepository(config),
		logger:   logger,
	}
}

type sampleReport struct {
	name    string
	folder  string
	summary string
	traits  map[string]int
}

var sampleReports = []sampleReport{
	{
		name:    "Alice Moreau",
		folder:  "Team",
		summary: "Analytical and reserved; prefers written communication and clear plans.",
		traits:  map[string]int{"openness": 7, "conscientiousness": 9, "extraversion": 3},
	},
	{
		name:    "Bruno Silva",
		folder:  "Team",
		summary: "Energetic networker who improvises well and dislikes long meetings.",
		traits:  map[string]int{"openness": 8, "conscientiousness": 4, "extraversion": 9},
	},
	{
		name:    "Chen Wei",
		folder:  models.DefaultReportFolder,
		summary: "Calm mediator; steady under pressure, slow to commit to change.",
		traits:  map[string]int{"openness": 5, "conscientiousness": 7, "extraversion": 5},
	},
}

// SeedReports inserts the sample reports for userID and returns their ids
func (s *ReportSeeder) SeedReports(ctx context.Context, userID string) ([]string, error) {
	ids := make([]string, 0, len(sampleReports))
	for _, r := range sampleReports {
		chatJSON, err := json.Marshal(map[string]any{
			"messages": []map[string]string{
				{"role": "user", "content": "Build the profile of " + r.name},
				{"role": "assistant", "content": r.summary},
			},
			"traits": r.traits,
		})
		if err != nil {
			return nil, err
		}

		report := &models.SavedReport{
			UserID:      userID,
			ProfileName: r.name,
			ChatJSON:    chatJSON,
			Folder:      r.folder,
		}
		if err := s.reports.Insert(ctx, report); err != nil {
			return nil, fmt.Errorf("insert report %s: %w", r.name, err)
		}
		s.logger.Info("seeded report", "id", report.ID, "name", r.name)
		ids = append(ids, report.ID)
	}
	return ids, nil
}

// SeedHistory writes a two-turn conversation for profileID
func (s *ReportSeeder) SeedHistory(ctx context.Context, userID, profileID string) error {
	now := time.Now()
	rows := []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "What motivates this person?", Timestamp: now.Add(-2 * time.Minute)},
		{Role: models.ChatRoleAssistant, Content: "Recognition from peers and visible progress.", Timestamp: now.Add(-time.Minute)},
		{Role: models.ChatRoleUser, Content: "How do they handle conflict?", Timestamp: now.Add(-30 * time.Second)},
		{Role: models.ChatRoleAssistant, Content: "They avoid it at first, then address it directly in private.", Timestamp: now},
	}
	for i := range rows {
		rows[i].UserID = userID
		rows[i].ProfileID = profileID
		rows[i].Type = "chat"
		if err := s.messages.Insert(ctx, &rows[i]); err != nil {
			return fmt.Errorf("insert history row %d: %w", i, err)
		}
	}
	return nil
}

// ClearUserData removes every row owned by userID
func (s *ReportSeeder) ClearUserData(ctx context.Context, userID string) error {
	for _, table := range []string{s.tables.ChatMessages, s.tables.SavedReports, s.tables.UsageCounters} {
		if _, err := s.pool.Exec(ctx, "DELETE FROM "+table+" WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
