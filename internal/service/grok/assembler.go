package grok

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"h1nted/internal/config"
	"h1nted/internal/domain"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/models/llm"
	"h1nted/internal/domain/repositories"
	"h1nted/internal/domain/services"
	"h1nted/internal/service/formula"
)

// FormulaSource loads formula documents
type FormulaSource interface {
	Load(ctx context.Context, bucket, key string) (*formula.Document, error)
}

// AssemblerConfig locates formulas and bounds history and images
type AssemblerConfig struct {
	HistoryWindow          time.Duration
	MaxImages              int
	ProfilingFormulaBucket string
	ProfilingFormulaKey    string
	CDRsFormulaBucket      string
	CDRsFormulaKey         string
}

// Assembled is the conversation for one upstream call plus what the sink
// needs afterwards
type Assembled struct {
	Conversation *llm.Conversation
	Meta         services.ContextMeta
	Reports      []models.SavedReport
}

// Assembler builds the role-tagged messages for each mode
type Assembler struct {
	history  repositories.ChatMessageRepository
	reports  repositories.SavedReportRepository
	formulas FormulaSource
	prompts  *Prompts
	cfg      AssemblerConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewAssembler(
	history repositories.ChatMessageRepository,
	reports repositories.SavedReportRepository,
	formulas FormulaSource,
	prompts *Prompts,
	cfg AssemblerConfig,
	logger *slog.Logger,
) *Assembler {
	return &Assembler{
		history:  history,
		reports:  reports,
		formulas: formulas,
		prompts:  prompts,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Assemble dispatches on the validated request: profiling, CDRs, or
// chat/image with history.
func (a *Assembler) Assemble(ctx context.Context, userID, profileID string, v *Validated) (*Assembled, error) {
	var (
		out *Assembled
		err error
	)
	switch {
	case v.Profiling:
		out, err = a.profiling(ctx, v)
	case v.Mode == llm.ModeCDRs:
		out, err = a.cdrs(ctx, userID, v)
	default:
		out, err = a.chat(ctx, userID, profileID, v)
	}
	if err != nil {
		return nil, err
	}

	out.Meta.Branch = v.Branch
	out.Meta.ProfilingSignature = out.Conversation.Has(llm.OriginProfiling)
	return out, nil
}

// profiling embeds the formula workbook. History is not replayed: the
// formula defines the whole task.
func (a *Assembler) profiling(ctx context.Context, v *Validated) (*Assembled, error) {
	doc, err := a.formulas.Load(ctx, a.cfg.ProfilingFormulaBucket, a.cfg.ProfilingFormulaKey)
	if err != nil {
		return nil, domain.Internal("failed to load profiling formula", err)
	}

	conv := llm.NewConversation(v.Mode)
	if err := appendAll(conv,
		llm.TextMessage(llm.RoleSystem, llm.OriginInstruction, a.prompts.Language(v.Language)),
		llm.TextMessage(llm.RoleSystem, llm.OriginProfiling, a.prompts.Profiling(doc.Text, v.Language)),
	); err != nil {
		return nil, err
	}

	prompt := v.Prompt
	if prompt == "" {
		prompt = a.prompts.ProfilingDefaultPrompt
	}

	parts := []llm.ContentPart{llm.TextPart(prompt)}
	for _, img := range v.Images {
		parts = append(parts, llm.ImagePart(img.DataURL(), llm.ImageDetailHigh))
	}

	room := a.cfg.MaxImages - len(v.Images)
	for i, img := range doc.Images {
		if i >= room {
			a.logger.Warn("formula images dropped over ceiling",
				"dropped", len(doc.Images)-i,
				"max_images", a.cfg.MaxImages,
			)
			break
		}
		url := "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
		parts = append(parts, llm.ImagePart(url, llm.ImageDetailAuto))
	}

	if err := conv.Append(llm.Message{Role: llm.RoleUser, Origin: llm.OriginPrompt, Parts: parts}); err != nil {
		return nil, err
	}

	return &Assembled{Conversation: conv}, nil
}

// cdrs compares saved reports. The conversation type keeps history and
// profiling context out.
func (a *Assembler) cdrs(ctx context.Context, userID string, v *Validated) (*Assembled, error) {
	meta := services.ContextMeta{CDRsFormula: services.FormulaNone}
	instruction := a.prompts.CDRsFallback

	if a.cfg.CDRsFormulaKey != "" {
		doc, err := a.formulas.Load(ctx, a.cfg.CDRsFormulaBucket, a.cfg.CDRsFormulaKey)
		if err != nil {
			a.logger.Warn("cdrs formula unavailable, using fallback", "key", a.cfg.CDRsFormulaKey, "error", err)
			meta.CDRsFormula = services.FormulaFallback
		} else {
			meta.CDRsFormula = services.FormulaStorage
			instruction = a.prompts.CDRs(doc.Text)
		}
	}

	reports, err := a.reports.GetByIDs(ctx, userID, v.SavedIDs)
	if err != nil {
		return nil, domain.Internal("failed to load saved reports", err)
	}
	if len(reports) < config.MinCDRsReports {
		return nil, domain.NewAPIError(http.StatusBadRequest, domain.CodeCDRsMinItemsNotMet,
			fmt.Sprintf("found %d of the requested saved reports, need at least %d", len(reports), config.MinCDRsReports)).
			WithDetail("found", len(reports))
	}

	blocks := make([]llm.ContentPart, len(reports))
	for i, r := range reports {
		blocks[i] = llm.TextPart(a.prompts.Report(i+1, len(reports), r.ProfileName, string(r.ChatJSON)))
	}

	prompt := v.Prompt
	if prompt == "" {
		prompt = a.prompts.CDRsDefaultPrompt
	}

	conv := llm.NewConversation(llm.ModeCDRs)
	if err := appendAll(conv,
		llm.TextMessage(llm.RoleSystem, llm.OriginInstruction, a.prompts.Language(v.Language)),
		llm.TextMessage(llm.RoleSystem, llm.OriginInstruction, instruction),
		llm.Message{Role: llm.RoleUser, Origin: llm.OriginReport, Parts: blocks},
		promptMessage(prompt, v.Images),
	); err != nil {
		return nil, err
	}

	return &Assembled{Conversation: conv, Meta: meta, Reports: reports}, nil
}

// chat replays the profile's recent conversation before the new prompt
func (a *Assembler) chat(ctx context.Context, userID, profileID string, v *Validated) (*Assembled, error) {
	rows, err := a.history.ListRecent(ctx, userID, profileID, a.now().Add(-a.cfg.HistoryWindow))
	if err != nil {
		return nil, domain.Internal("failed to load chat history", err)
	}

	conv := llm.NewConversation(v.Mode)
	if err := conv.Append(llm.TextMessage(llm.RoleSystem, llm.OriginInstruction, a.prompts.Language(v.Language))); err != nil {
		return nil, err
	}

	for _, row := range rows {
		role, ok := historyRole(row.Role)
		if !ok || row.Content == "" {
			continue
		}
		if err := conv.Append(llm.TextMessage(role, llm.OriginHistory, row.Content)); err != nil {
			return nil, err
		}
	}

	if err := conv.Append(promptMessage(v.Prompt, v.Images)); err != nil {
		return nil, err
	}

	return &Assembled{
		Conversation: conv,
		Meta:         services.ContextMeta{HistoryCount: conv.Count(llm.OriginHistory)},
	}, nil
}

func historyRole(role string) (llm.Role, bool) {
	switch role {
	case models.ChatRoleUser:
		return llm.RoleUser, true
	case models.ChatRoleAssistant:
		return llm.RoleAssistant, true
	}
	return "", false
}

// promptMessage is plain text without images, multi-part with them
func promptMessage(prompt string, images []Image) llm.Message {
	if len(images) == 0 {
		return llm.TextMessage(llm.RoleUser, llm.OriginPrompt, prompt)
	}

	parts := make([]llm.ContentPart, 0, len(images)+1)
	if prompt != "" {
		parts = append(parts, llm.TextPart(prompt))
	}
	for _, img := range images {
		parts = append(parts, llm.ImagePart(img.DataURL(), llm.ImageDetailHigh))
	}
	return llm.Message{Role: llm.RoleUser, Origin: llm.OriginPrompt, Parts: parts}
}

func appendAll(conv *llm.Conversation, msgs ...llm.Message) error {
	for _, m := range msgs {
		if err := conv.Append(m); err != nil {
			return err
		}
	}
	return nil
}
