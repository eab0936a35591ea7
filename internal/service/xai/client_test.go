package xai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"h1nted/internal/domain/models/llm"
)

func testClient(url string, retries int, budget, attemptTimeout time.Duration) *Client {
	return NewClient(Config{
		APIKey:         "test-key",
		BaseURL:        url,
		Model:          "grok-3",
		Retries:        retries,
		Budget:         budget,
		AttemptTimeout: attemptTimeout,
		BackoffBase:    time.Millisecond,
		Temperature:    0.7,
		MaxTokens:      64,
	}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func simpleRequest(c *Client) openai.ChatCompletionRequest {
	return c.BuildRequest([]llm.Message{llm.TextMessage(llm.RoleUser, llm.OriginPrompt, "hi")}, false)
}

// TestDoRetriesTooManyRequests retries 429 up to the retry limit
func TestDoRetriesTooManyRequests(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		retries      int
		wantStatus   int
		wantAttempts int32
	}{
		{"succeeds after one 429", 1, 2, http.StatusOK, 2},
		{"succeeds on last attempt", 2, 2, http.StatusOK, 3},
		{"surfaces 429 when attempts run out", 5, 2, http.StatusTooManyRequests, 3},
		{"no retries configured", 1, 0, http.StatusTooManyRequests, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= tt.failures {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
			}))
			defer srv.Close()

			c := testClient(srv.URL, tt.retries, 5*time.Second, time.Second)
			resp, err := c.Do(context.Background(), simpleRequest(c))
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := calls.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

// TestDoDoesNotRetryClientErrors stops on a non-retriable status
func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3, 5*time.Second, time.Second)
	resp, err := c.Do(context.Background(), simpleRequest(c))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest || calls.Load() != 1 {
		t.Errorf("status = %d after %d calls, want 400 after 1", resp.StatusCode, calls.Load())
	}
}

// TestDoBudgetExhausted returns ErrTimeout when no attempt finishes in budget
func TestDoBudgetExhausted(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := testClient(srv.URL, 2, 80*time.Millisecond, time.Second)
	start := time.Now()
	_, err := c.Do(context.Background(), simpleRequest(c))

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Do() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Do() took %v, budget not enforced", elapsed)
	}
}

// TestDoSurfacesRetriableResponseWhenBudgetRunsOut returns the last 503
// instead of ErrTimeout once the backoff consumes the budget
func TestDoSurfacesRetriableResponseWhenBudgetRunsOut(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3, 100*time.Millisecond, time.Second)
	c.cfg.BackoffBase = 200 * time.Millisecond

	resp, err := c.Do(context.Background(), simpleRequest(c))
	if err != nil {
		t.Fatalf("Do() error = %v, want the 503 response", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "overloaded") {
		t.Errorf("body = %q, want upstream error body", body)
	}
}

// TestDoSurfacesRetriableResponseAfterTimeout keeps the earlier 429 when a
// later attempt produces no response
func TestDoSurfacesRetriableResponseAfterTimeout(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := testClient(srv.URL, 1, 5*time.Second, 50*time.Millisecond)
	resp, err := c.Do(context.Background(), simpleRequest(c))
	if err != nil {
		t.Fatalf("Do() error = %v, want the 429 response", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

// TestDoTransportFailure reports ErrUnavailable when nothing answers
func TestDoTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := testClient(url, 1, 5*time.Second, time.Second)
	_, err := c.Do(context.Background(), simpleRequest(c))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Do() error = %v, want ErrUnavailable", err)
	}
}

// TestDoTimerStopsAtHeaders lets a slow body outlive the attempt timeout
func TestDoTimerStopsAtHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0, 5*time.Second, 50*time.Millisecond)
	resp, err := c.Do(context.Background(), simpleRequest(c))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "data: [DONE]\n\n" {
		t.Errorf("body = %q", body)
	}
}

// TestBuildRequestWireFormat checks the serialized request body
func TestBuildRequestWireFormat(t *testing.T) {
	c := testClient("http://unused", 0, time.Second, time.Second)
	req := c.BuildRequest([]llm.Message{
		llm.TextMessage(llm.RoleSystem, llm.OriginInstruction, "be brief"),
		{
			Role:   llm.RoleUser,
			Origin: llm.OriginPrompt,
			Parts: []llm.ContentPart{
				llm.TextPart("what is this"),
				llm.ImagePart("data:image/png;base64,AAAA", llm.ImageDetailHigh),
			},
		},
	}, true)

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Model       string  `json:"model"`
		Stream      bool    `json:"stream"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Model != "grok-3" || !decoded.Stream || decoded.MaxTokens != 64 {
		t.Errorf("request = %+v", decoded)
	}
	if string(decoded.Messages[0].Content) != `"be brief"` {
		t.Errorf("system content = %s", decoded.Messages[0].Content)
	}

	var parts []map[string]any
	if err := json.Unmarshal(decoded.Messages[1].Content, &parts); err != nil {
		t.Fatalf("user content is not a part array: %s", decoded.Messages[1].Content)
	}
	if len(parts) != 2 || parts[1]["type"] != "image_url" {
		t.Errorf("parts = %v", parts)
	}
}

// TestBackoffBounds keeps jitter within 50% of the exponential step
func TestBackoffBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for n := 1; n <= 4; n++ {
		step := base << (n - 1)
		for i := 0; i < 50; i++ {
			d := backoff(n, base)
			if d < step || d > step+step/2 {
				t.Fatalf("backoff(%d) = %v, want [%v, %v]", n, d, step, step+step/2)
			}
		}
	}
	if backoff(0, base) != 0 {
		t.Errorf("backoff(0) should be zero")
	}
}

// TestBudgetCap never exceeds the remaining time
func TestBudgetCap(t *testing.T) {
	b := NewBudget(50 * time.Millisecond)
	if got := b.Cap(time.Hour); got > 50*time.Millisecond {
		t.Errorf("Cap(1h) = %v", got)
	}
	time.Sleep(60 * time.Millisecond)
	if !b.Exhausted() || b.Cap(time.Second) != 0 {
		t.Errorf("budget should be exhausted")
	}
}
