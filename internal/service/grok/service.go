package grok

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"h1nted/internal/config"
	"h1nted/internal/domain"
	"h1nted/internal/domain/models/llm"
	"h1nted/internal/domain/services"
	"h1nted/internal/httputil"
	"h1nted/internal/service/xai"
)

// Service implements services.GrokService
type Service struct {
	validator *Validator
	assembler *Assembler
	client    *xai.Client
	sink      *Sink
	logger    *slog.Logger
}

func NewService(
	validator *Validator,
	assembler *Assembler,
	client *xai.Client,
	sink *Sink,
	logger *slog.Logger,
) services.GrokService {
	return &Service{
		validator: validator,
		assembler: assembler,
		client:    client,
		sink:      sink,
		logger:    logger,
	}
}

// Complete runs validation, assembly, the upstream call and relay setup.
// Only CDRs requests with stream=true ask the upstream for an event stream.
func (s *Service) Complete(ctx context.Context, req *services.GrokRequest) (*services.GrokOutcome, error) {
	startedAt := time.Now()
	logger := httputil.Logger(ctx)

	v, err := s.validator.Validate(req)
	if err != nil {
		return nil, err
	}

	asm, err := s.assembler.Assemble(ctx, req.UserID, req.ProfileID, v)
	if err != nil {
		return nil, err
	}
	outcome := &services.GrokOutcome{Meta: asm.Meta}

	logger.Info("grok request assembled",
		"branch", asm.Meta.Branch,
		"messages", asm.Conversation.Len(),
		"history_count", asm.Meta.HistoryCount,
		"images", len(v.Images),
		"cdrs_formula", asm.Meta.CDRsFormula,
	)

	turn := &Turn{
		UserID:     req.UserID,
		ProfileID:  req.ProfileID,
		AuthToken:  req.AuthToken,
		Mode:       v.Mode,
		Branch:     v.Branch,
		Profiling:  v.Profiling,
		Prompt:     v.Prompt,
		ImageCount: len(v.Images),
		Reports:    asm.Reports,
		StartedAt:  startedAt,
	}

	stream := v.Mode == llm.ModeCDRs && req.Stream
	resp, err := s.client.Do(ctx, s.client.BuildRequest(asm.Conversation.Messages(), stream))
	if err != nil {
		return outcome, upstreamFailure(err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "text/event-stream" && resp.StatusCode < http.StatusMultipleChoices:
		outcome.Stream = &streamRelay{resp: resp, sink: s.sink, turn: turn}
		return outcome, nil

	case mediaType == "application/json":
		defer resp.Body.Close()
		result, err := s.readCompletion(resp)
		if err != nil {
			return outcome, err
		}
		if err := s.sink.Persist(ctx, turn, result); err != nil {
			return outcome, domain.Internal("failed to save conversation", err)
		}
		outcome.Response = &services.GrokResponse{Result: result, Model: s.client.Model()}
		return outcome, nil

	default:
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, config.UpstreamSnippetBytes))
		logger.Error("unexpected upstream content type",
			"status", resp.StatusCode,
			"content_type", resp.Header.Get("Content-Type"),
		)
		return outcome, domain.NewAPIError(http.StatusInternalServerError, domain.CodeUpstreamBadResponse,
			"upstream returned an unexpected response").
			WithDetail("status", resp.StatusCode).
			WithDetail("contentType", resp.Header.Get("Content-Type")).
			WithDetail("snippet", string(body))
	}
}

// readCompletion maps a JSON reply to its text or an UPSTREAM_* error
func (s *Service) readCompletion(resp *http.Response) (string, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxUpstreamBodyBytes))
	if err != nil {
		return "", domain.Internal("failed to read upstream response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ue := xai.ParseError(resp.StatusCode, body, config.UpstreamSnippetBytes)
		return "", domain.NewAPIError(http.StatusInternalServerError, domain.CodeUpstreamError,
			"upstream request failed").
			WithDetail("upstream", ue)
	}

	result, err := xai.ParseCompletion(body)
	if err != nil {
		return "", &domain.APIError{
			Status:  http.StatusInternalServerError,
			Code:    domain.CodeUpstreamBadResponse,
			Message: "upstream returned an unreadable completion",
			Details: map[string]any{"snippet": xai.Snippet(body, config.UpstreamSnippetBytes)},
			Err:     err,
		}
	}
	return result, nil
}

func upstreamFailure(err error) error {
	switch {
	case errors.Is(err, xai.ErrTimeout):
		return &domain.APIError{
			Status:  http.StatusGatewayTimeout,
			Code:    domain.CodeUpstreamTimeout,
			Message: "upstream did not respond in time",
			Err:     err,
		}
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("request canceled: %w", err)
	default:
		return domain.Internal("upstream request failed", err)
	}
}
