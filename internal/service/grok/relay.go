package grok

import (
	"context"
	"fmt"
	"net/http"

	"h1nted/internal/domain/services"
	"h1nted/internal/httputil"
	"h1nted/internal/service/xai"
)

// streamRelay forwards an upstream event stream and persists the text once
// the stream ends normally
type streamRelay struct {
	resp *http.Response
	sink *Sink
	turn *Turn
}

// Relay re-wraps each upstream data payload as a data event. If the caller
// disconnects or a write fails, nothing is persisted.
func (r *streamRelay) Relay(ctx context.Context, w services.EventWriter) error {
	defer r.resp.Body.Close()
	logger := httputil.Logger(ctx)

	var (
		acc    xai.TextAccumulator
		chunks int
	)
	done, err := xai.ScanEvents(r.resp.Body, func(data []byte) error {
		if err := acc.Add(data); err != nil {
			logger.Debug("skipping undecodable stream chunk", "error", err)
		}
		chunks++
		return w.WriteEvent(data)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Info("client disconnected mid-stream, not persisting", "chunks", chunks)
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("relay stream: %w", err)
	}
	if !done {
		logger.Warn("upstream stream ended without [DONE]", "chunks", chunks)
	}

	// The response is complete; persistence must not die with the request
	if err := r.sink.Persist(context.WithoutCancel(ctx), r.turn, acc.String()); err != nil {
		logger.Error("stream persistence failed", "error", err)
	}
	return nil
}
