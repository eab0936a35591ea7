package grok

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"h1nted/internal/domain/models"
	"h1nted/internal/domain/models/llm"
	"h1nted/internal/domain/repositories"
	"h1nted/internal/domain/services"
	"h1nted/internal/httputil"
)

// Turn is one completed exchange waiting to be persisted
type Turn struct {
	UserID     string
	ProfileID  string
	AuthToken  string
	Mode       llm.Mode
	Branch     string
	Profiling  bool
	Prompt     string
	ImageCount int
	Reports    []models.SavedReport
	StartedAt  time.Time
}

// usageMode picks the billing mode; profiling outranks the carrying mode
func (t *Turn) usageMode() string {
	if t.Profiling {
		return models.UsageModeProfiling
	}
	return string(t.Mode)
}

// userContent is what the chat row shows for the caller's side
func (t *Turn) userContent() string {
	switch {
	case t.Prompt != "" && t.ImageCount > 0:
		return fmt.Sprintf("%s\n[%d image(s) attached]", t.Prompt, t.ImageCount)
	case t.Prompt != "":
		return t.Prompt
	case t.ImageCount > 0:
		return fmt.Sprintf("[%d image(s) attached]", t.ImageCount)
	case t.Mode == llm.ModeCDRs:
		return fmt.Sprintf("[compared %d saved reports]", len(t.Reports))
	}
	return ""
}

// Sink persists completed turns and reports usage
type Sink struct {
	tx             repositories.TransactionManager
	messages       repositories.ChatMessageRepository
	reports        repositories.SavedReportRepository
	usage          services.UsageNotifier
	prompts        *Prompts
	autosaveFolder string
	now            func() time.Time
}

func NewSink(
	tx repositories.TransactionManager,
	messages repositories.ChatMessageRepository,
	reports repositories.SavedReportRepository,
	usage services.UsageNotifier,
	prompts *Prompts,
	autosaveFolder string,
) *Sink {
	return &Sink{
		tx:             tx,
		messages:       messages,
		reports:        reports,
		usage:          usage,
		prompts:        prompts,
		autosaveFolder: autosaveFolder,
		now:            time.Now,
	}
}

// Persist writes the marker (profiling only), user and assistant rows in one
// transaction, then autosaves CDRs results. Usage is reported in every case
// since the upstream call already happened. An autosave failure is logged
// and not returned.
func (s *Sink) Persist(ctx context.Context, turn *Turn, reply string) error {
	logger := httputil.Logger(ctx)
	defer s.usage.Notify(turn.AuthToken, turn.usageMode(), turn.ProfileID)

	rows := s.rows(turn, reply)
	err := s.tx.ExecTx(ctx, func(txCtx context.Context) error {
		for i := range rows {
			if err := s.messages.Insert(txCtx, &rows[i]); err != nil {
				logger.Error("chat row insert failed",
					"role", rows[i].Role,
					"type", rows[i].Type,
					"profile_id", rows[i].ProfileID,
					"content_bytes", len(rows[i].Content),
					"error", err,
				)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist turn: %w", err)
	}

	if turn.Mode == llm.ModeCDRs {
		if err := s.autosave(ctx, turn, reply); err != nil {
			logger.Error("cdrs autosave failed", "folder", s.autosaveFolder, "error", err)
		}
	}

	return nil
}

func (s *Sink) rows(turn *Turn, reply string) []models.ChatMessage {
	started := turn.StartedAt
	if started.IsZero() {
		started = s.now()
	}
	finished := s.now()
	if !finished.After(started) {
		finished = started.Add(time.Microsecond)
	}

	base := models.ChatMessage{UserID: turn.UserID, ProfileID: turn.ProfileID, Type: turn.Branch}
	var rows []models.ChatMessage

	if turn.Profiling {
		marker := base
		marker.Role = models.ChatRoleSystem
		marker.Type = models.MessageTypeSystemMarker
		marker.Content = s.prompts.ProfilingMarker
		marker.Timestamp = started
		rows = append(rows, marker)
	}

	user := base
	user.Role = models.ChatRoleUser
	user.Content = turn.userContent()
	user.Timestamp = started

	assistant := base
	assistant.Role = models.ChatRoleAssistant
	assistant.Content = reply
	assistant.Timestamp = finished

	return append(rows, user, assistant)
}

type autosavedComparison struct {
	Mode            string   `json:"mode"`
	SavedMessageIDs []string `json:"savedMessageIds"`
	Profiles        []string `json:"profiles"`
	Prompt          string   `json:"prompt,omitempty"`
	Result          string   `json:"result"`
	CreatedAt       string   `json:"createdAt"`
}

func (s *Sink) autosave(ctx context.Context, turn *Turn, reply string) error {
	ids := make([]string, len(turn.Reports))
	names := make([]string, len(turn.Reports))
	for i, r := range turn.Reports {
		ids[i] = r.ID
		names[i] = r.ProfileName
	}

	chatJSON, err := json.Marshal(autosavedComparison{
		Mode:            string(llm.ModeCDRs),
		SavedMessageIDs: ids,
		Profiles:        names,
		Prompt:          turn.Prompt,
		Result:          reply,
		CreatedAt:       s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return s.reports.Insert(ctx, &models.SavedReport{
		UserID:      turn.UserID,
		ProfileName: "CDRs: " + strings.Join(names, " vs "),
		ChatJSON:    chatJSON,
		Folder:      s.autosaveFolder,
	})
}
