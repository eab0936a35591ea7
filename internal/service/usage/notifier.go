package usage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"h1nted/internal/domain/models"
)

// Notifier posts usage increments in the background. The grok route calls
// it after every upstream call; failures are logged and never reach the
// caller.
type Notifier struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewNotifier(url string, timeout time.Duration, httpClient *http.Client, logger *slog.Logger) *Notifier {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Notifier{url: url, timeout: timeout, httpClient: httpClient, logger: logger}
}

// Notify sends {mode, profileId} with the caller's bearer token
func (n *Notifier) Notify(authToken, mode, profileID string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.post(ctx, authToken, &models.IncrementUsageRequest{Mode: mode, ProfileID: profileID}); err != nil {
			n.logger.Warn("usage notification failed", "mode", mode, "profile_id", profileID, "error", err)
		}
	}()
}

// Wait blocks until in-flight notifications finish. Called on shutdown.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) post(ctx context.Context, authToken string, body *models.IncrementUsageRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("usage endpoint returned %d", resp.StatusCode)
	}
	return nil
}
