package grok

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"h1nted/internal/domain"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/services"
	"h1nted/internal/service/formula"
	"h1nted/internal/service/xai"
)

type serviceFixture struct {
	svc      services.GrokService
	history  *fakeHistory
	reports  *fakeReports
	notifier *fakeNotifier
}

func newServiceFixture(t *testing.T, upstream http.HandlerFunc, attemptTimeout time.Duration) *serviceFixture {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	f := &serviceFixture{
		history:  &fakeHistory{},
		reports:  twoReports(),
		notifier: &fakeNotifier{},
	}
	prompts := mustPrompts()
	client := xai.NewClient(xai.Config{
		APIKey:         "k",
		BaseURL:        srv.URL,
		Model:          "grok-3",
		Retries:        0,
		Budget:         2 * attemptTimeout,
		AttemptTimeout: attemptTimeout,
		BackoffBase:    time.Millisecond,
	}, nil, discardLogger())

	cfg := testAssemblerConfig()
	cfg.CDRsFormulaKey = ""
	formulas := &fakeFormulas{}
	f.svc = NewService(
		NewValidator(4, 1<<20, "English"),
		NewAssembler(f.history, f.reports, formulas, prompts, cfg, discardLogger()),
		client,
		NewSink(fakeTx{}, f.history, f.reports, f.notifier, prompts, "Autosaved"),
		discardLogger(),
	)
	return f
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

const okCompletion = `{"choices":[{"message":{"role":"assistant","content":"hello back"}}]}`

func TestCompleteChat(t *testing.T) {
	f := newServiceFixture(t, jsonReply(http.StatusOK, okCompletion), time.Second)

	out, err := f.svc.Complete(context.Background(), &services.GrokRequest{
		ProfileID: "p1", Prompt: "hello", UserID: "u1", AuthToken: "tok",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out.Response == nil || out.Response.Result != "hello back" || out.Response.Model != "grok-3" {
		t.Fatalf("Response = %+v", out.Response)
	}
	if out.Stream != nil {
		t.Errorf("Stream set for a JSON reply")
	}

	rows := f.history.Inserted()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Role != models.ChatRoleUser || rows[0].Content != "hello" {
		t.Errorf("user row = %+v", rows[0])
	}
	if rows[1].Role != models.ChatRoleAssistant || rows[1].Content != "hello back" {
		t.Errorf("assistant row = %+v", rows[1])
	}
	if !rows[1].Timestamp.After(rows[0].Timestamp) {
		t.Errorf("assistant timestamp not after user timestamp")
	}

	calls := f.notifier.Calls()
	if len(calls) != 1 || calls[0] != (usageCall{"tok", "chat", "p1"}) {
		t.Errorf("usage calls = %+v", calls)
	}
}

func TestCompleteProfilingWritesMarker(t *testing.T) {
	f := newServiceFixture(t, jsonReply(http.StatusOK, okCompletion), time.Second)
	f.svc.(*Service).assembler.formulas = &fakeFormulas{docs: map[string]*formula.Document{
		"formulas/profiling.xlsx": {Text: "## Traits\nOpenness | 1-10"},
	}}

	out, err := f.svc.Complete(context.Background(), &services.GrokRequest{
		ProfileID: "p1", Profiling: true, UserID: "u1", AuthToken: "tok",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !out.Meta.ProfilingSignature || out.Meta.Branch != BranchProfiling {
		t.Errorf("meta = %+v", out.Meta)
	}

	rows := f.history.Inserted()
	if len(rows) != 3 || rows[0].Type != models.MessageTypeSystemMarker {
		t.Fatalf("rows = %+v, want marker first", rows)
	}
	if calls := f.notifier.Calls(); len(calls) != 1 || calls[0].mode != models.UsageModeProfiling {
		t.Errorf("usage calls = %+v", calls)
	}
}

// TestCompleteUpstreamFailures verifies error mapping after assembly
func TestCompleteUpstreamFailures(t *testing.T) {
	tests := []struct {
		name       string
		upstream   http.HandlerFunc
		wantStatus int
		wantCode   string
	}{
		{
			name:       "json error reply",
			upstream:   jsonReply(http.StatusBadRequest, `{"error":{"message":"bad model","code":"invalid_model"}}`),
			wantStatus: http.StatusInternalServerError,
			wantCode:   domain.CodeUpstreamError,
		},
		{
			name:       "completion without choices",
			upstream:   jsonReply(http.StatusOK, `{"choices":[]}`),
			wantStatus: http.StatusInternalServerError,
			wantCode:   domain.CodeUpstreamBadResponse,
		},
		{
			name: "html reply",
			upstream: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte("<html>gateway</html>"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   domain.CodeUpstreamBadResponse,
		},
		{
			name: "no headers before timeout",
			upstream: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   domain.CodeUpstreamTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, tt.upstream, 100*time.Millisecond)

			out, err := f.svc.Complete(context.Background(), &services.GrokRequest{
				ProfileID: "p1", Prompt: "hello", UserID: "u1",
			})
			var apiErr *domain.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Complete() error = %v, want *domain.APIError", err)
			}
			if apiErr.Status != tt.wantStatus || apiErr.Code != tt.wantCode {
				t.Errorf("got %d %s, want %d %s", apiErr.Status, apiErr.Code, tt.wantStatus, tt.wantCode)
			}
			if out == nil || out.Meta.Branch != BranchChat {
				t.Errorf("outcome meta missing after assembly: %+v", out)
			}
			if rows := f.history.Inserted(); len(rows) != 0 {
				t.Errorf("persisted %d rows on failure", len(rows))
			}
		})
	}
}

// TestCompleteValidationFailsBeforeUpstream covers rejected requests that
// must never reach the upstream API
func TestCompleteValidationFailsBeforeUpstream(t *testing.T) {
	oversized := base64.StdEncoding.EncodeToString(make([]byte, 1<<20+1))

	tests := []struct {
		name       string
		req        services.GrokRequest
		wantStatus int
		wantCode   string
	}{
		{
			name:       "nothing to send",
			req:        services.GrokRequest{ProfileID: "p1"},
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.CodePayloadInvalid,
		},
		{
			name:       "oversized image",
			req:        services.GrokRequest{ProfileID: "p1", Mode: "image", Images: []string{oversized}},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   domain.CodePayloadTooLarge,
		},
		{
			name:       "cdrs with one saved report",
			req:        services.GrokRequest{ProfileID: "p1", Mode: "cdrs", SavedMessageIDs: []string{"a"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.CodeCDRsMinItemsNotMet,
		},
		{
			name:       "image mode with saved reports",
			req:        services.GrokRequest{ProfileID: "p1", Mode: "image", SavedMessageIDs: []string{"a", "b"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.CodeModeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			f := newServiceFixture(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }, time.Second)

			req := tt.req
			req.UserID = "u1"
			out, err := f.svc.Complete(context.Background(), &req)

			var apiErr *domain.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *domain.APIError", err)
			}
			if apiErr.Status != tt.wantStatus || apiErr.Code != tt.wantCode {
				t.Errorf("got %d %s, want %d %s", apiErr.Status, apiErr.Code, tt.wantStatus, tt.wantCode)
			}
			if out != nil {
				t.Errorf("outcome = %+v, want nil before assembly", out)
			}
			if calls.Load() != 0 {
				t.Errorf("upstream called for an invalid request")
			}
		})
	}
}

type recordingWriter struct {
	events []string
	failAt int
}

func (w *recordingWriter) WriteEvent(data []byte) error {
	if w.failAt > 0 && len(w.events)+1 >= w.failAt {
		return errors.New("client gone")
	}
	w.events = append(w.events, string(data))
	return nil
}

func sseUpstream(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Stream {
			t.Errorf("upstream wanted a stream request, got stream=%v err=%v", req.Stream, err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{
			`{"choices":[{"delta":{"content":"Alice and "}}]}`,
			`{"choices":[{"delta":{"content":"Bob differ."}}]}`,
			`[DONE]`,
		} {
			w.Write([]byte("data: " + chunk + "\n\n"))
		}
	}
}

// TestCompleteCDRsStream verifies relay, persistence and autosave
func TestCompleteCDRsStream(t *testing.T) {
	f := newServiceFixture(t, sseUpstream(t), time.Second)

	out, err := f.svc.Complete(context.Background(), &services.GrokRequest{
		ProfileID: "p1", Mode: "cdrs", SavedMessageIDs: []string{"r1", "r2"}, Stream: true,
		UserID: "u1", AuthToken: "tok",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out.Stream == nil {
		t.Fatalf("Stream = nil, want relay")
	}
	if out.Meta.CDRsFormula != services.FormulaNone {
		t.Errorf("CDRsFormula = %s, want none", out.Meta.CDRsFormula)
	}

	w := &recordingWriter{}
	if err := out.Stream.Relay(context.Background(), w); err != nil {
		t.Fatalf("Relay() error = %v", err)
	}
	if len(w.events) != 3 || w.events[2] != "[DONE]" {
		t.Errorf("events = %q", w.events)
	}

	rows := f.history.Inserted()
	if len(rows) != 2 || rows[1].Content != "Alice and Bob differ." {
		t.Fatalf("rows = %+v", rows)
	}

	saved := f.reports.Saved()
	if len(saved) != 1 || saved[0].Folder != "Autosaved" {
		t.Fatalf("autosave = %+v", saved)
	}
	if !strings.Contains(string(saved[0].ChatJSON), "Alice and Bob differ.") {
		t.Errorf("autosave body = %s", saved[0].ChatJSON)
	}
	if calls := f.notifier.Calls(); len(calls) != 1 || calls[0].mode != "cdrs" {
		t.Errorf("usage calls = %+v", calls)
	}
}

func TestRelayClientDisconnectSkipsPersistence(t *testing.T) {
	f := newServiceFixture(t, sseUpstream(t), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	out, err := f.svc.Complete(ctx, &services.GrokRequest{
		ProfileID: "p1", Mode: "cdrs", SavedMessageIDs: []string{"r1", "r2"}, Stream: true, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	cancel()

	if err := out.Stream.Relay(ctx, &recordingWriter{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Relay() error = %v, want context.Canceled", err)
	}
	if rows := f.history.Inserted(); len(rows) != 0 {
		t.Errorf("persisted %d rows after disconnect", len(rows))
	}
	if saved := f.reports.Saved(); len(saved) != 0 {
		t.Errorf("autosaved after disconnect")
	}
}

func TestRelayWriteFailureSkipsPersistence(t *testing.T) {
	f := newServiceFixture(t, sseUpstream(t), time.Second)

	out, err := f.svc.Complete(context.Background(), &services.GrokRequest{
		ProfileID: "p1", Mode: "cdrs", SavedMessageIDs: []string{"r1", "r2"}, Stream: true, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if err := out.Stream.Relay(context.Background(), &recordingWriter{failAt: 2}); err == nil {
		t.Errorf("Relay() error = nil, want write failure")
	}
	if rows := f.history.Inserted(); len(rows) != 0 {
		t.Errorf("persisted %d rows after write failure", len(rows))
	}
}

func TestCompleteCDRsWithoutStreamAutosaves(t *testing.T) {
	f := newServiceFixture(t, jsonReply(http.StatusOK, okCompletion), time.Second)

	out, err := f.svc.Complete(context.Background(), &services.GrokRequest{
		ProfileID: "p1", Mode: "cdrs", SavedMessageIDs: []string{"r1", "r2"}, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out.Response == nil || out.Response.Result != "hello back" {
		t.Fatalf("Response = %+v", out.Response)
	}
	if saved := f.reports.Saved(); len(saved) != 1 || saved[0].ProfileName != "CDRs: Alice vs Bob" {
		t.Errorf("autosave = %+v", saved)
	}
}

func TestSinkAutosaveFailureIsNotReturned(t *testing.T) {
	history := &fakeHistory{}
	reports := twoReports()
	reports.insertErr = errors.New("disk full")
	notifier := &fakeNotifier{}
	sink := NewSink(fakeTx{}, history, reports, notifier, mustPrompts(), "Autosaved")

	err := sink.Persist(context.Background(), &Turn{
		UserID: "u1", ProfileID: "p1", Mode: "cdrs", Branch: BranchCDRs,
	}, "result")
	if err != nil {
		t.Fatalf("Persist() error = %v, want nil", err)
	}
	if len(history.Inserted()) != 2 {
		t.Errorf("chat rows not written")
	}
}

func TestSinkInsertFailureStillReportsUsage(t *testing.T) {
	history := &fakeHistory{insertErr: errors.New("db down")}
	notifier := &fakeNotifier{}
	sink := NewSink(fakeTx{}, history, twoReports(), notifier, mustPrompts(), "Autosaved")

	err := sink.Persist(context.Background(), &Turn{UserID: "u1", ProfileID: "p1", Mode: "chat", Prompt: "x"}, "y")
	if err == nil {
		t.Fatalf("Persist() error = nil, want insert failure")
	}
	if len(notifier.Calls()) != 1 {
		t.Errorf("usage not reported after failed insert")
	}
}
