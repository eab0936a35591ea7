package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrTimeout means no attempt produced response headers before its
	// timer or the shared budget ran out.
	ErrTimeout = errors.New("upstream timed out")

	// ErrUnavailable means every attempt failed without a response.
	ErrUnavailable = errors.New("upstream unavailable")
)

// Config configures the client. Durations are absolute, not milliseconds.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Retries        int
	Budget         time.Duration
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
	Temperature    float32
	MaxTokens      int
}

// Client posts chat-completion requests to the xAI API, which speaks the
// OpenAI wire format.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client. The http.Client must not set Timeout: that
// would cut long streams, and attempts are bounded by their own timer.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

func (c *Client) Model() string {
	return c.cfg.Model
}

// Do sends req with up to Retries extra attempts inside one Budget.
//
// Before each attempt an exhausted budget ends the loop. Retries sleep a
// jittered exponential backoff capped by the remaining budget. Each attempt
// runs under min(AttemptTimeout, remaining); the timer is disarmed once
// headers arrive so a long event stream is not cut off.
//
// 408, 429 and 5xx are retried while attempts remain, as are transport
// errors and attempt timeouts. Any other response is returned for the
// caller to interpret. When the loop ends without one, the last retriable
// response is returned if there was any; ErrTimeout and ErrUnavailable
// mean no response was ever obtained. The caller closes the body.
func (c *Client) Do(ctx context.Context, req openai.ChatCompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	budget := NewBudget(c.cfg.Budget)
	var (
		errs     *multierror.Error
		timedOut bool
		last     *http.Response
	)

	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, budget.Cap(backoff(attempt, c.cfg.BackoffBase))); err != nil {
				return nil, err
			}
		}
		if budget.Exhausted() {
			timedOut = true
			break
		}

		resp, err := c.attempt(ctx, body, budget.Cap(c.cfg.AttemptTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, ErrTimeout) {
				timedOut = true
			}
			errs = multierror.Append(errs, fmt.Errorf("attempt %d: %w", attempt+1, err))
			c.logger.Warn("upstream attempt failed", "attempt", attempt+1, "error", err)
			continue
		}

		if isRetriable(resp.StatusCode) && attempt < c.cfg.Retries {
			last = buffer(resp)
			errs = multierror.Append(errs, fmt.Errorf("attempt %d: status %d", attempt+1, resp.StatusCode))
			c.logger.Warn("upstream attempt retriable", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}

		if attempt > 0 {
			c.logger.Info("upstream responded after retry", "attempt", attempt+1, "status", resp.StatusCode)
		}
		return resp, nil
	}

	if last != nil {
		c.logger.Warn("upstream retries exhausted, surfacing last response",
			"status", last.StatusCode,
			"budget_remaining_ms", budget.Remaining().Milliseconds(),
			"errors", errs.ErrorOrNil(),
		)
		return last, nil
	}

	c.logger.Error("upstream attempts exhausted",
		"timed_out", timedOut,
		"budget_remaining_ms", budget.Remaining().Milliseconds(),
		"errors", errs.ErrorOrNil(),
	)

	if timedOut {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, errs.ErrorOrNil())
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, errs.ErrorOrNil())
}

// attempt performs one POST. The returned body cancels the attempt's
// context when closed.
func (c *Client) attempt(ctx context.Context, body []byte, timeout time.Duration) (*http.Response, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(timeout, cancel)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		timer.Stop()
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if !timer.Stop() {
		// Timer fired first; any response is already unusable
		if resp != nil {
			resp.Body.Close()
		}
		cancel()
		return nil, ErrTimeout
	}
	if err != nil {
		cancel()
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func isRetriable(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

// buffer reads up to 64KB of a retriable response into memory and releases
// the connection, so the response can still be surfaced after later attempts.
func buffer(resp *http.Response) *http.Response {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
	resp.ContentLength = int64(len(data))
	return resp
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.once.Do(c.cancel)
	return err
}
