package sse

import (
	"log/slog"
	"time"
)

// KeepAliveStrategy sends heartbeats for the life of an SSE response
type KeepAliveStrategy interface {
	// Start begins sending heartbeats through writer. The returned channel
	// closes once the strategy has stopped, either via Stop or a write error.
	Start(writer KeepAliveWriter, logger *slog.Logger) <-chan struct{}

	// Stop terminates the heartbeat. Safe to call multiple times.
	Stop()
}

// KeepAliveWriter writes one heartbeat
type KeepAliveWriter interface {
	WriteKeepAlive() error
}

// TickerKeepAlive writes a heartbeat on a fixed interval
type TickerKeepAlive struct {
	interval time.Duration
	done     chan struct{}
}

func NewTickerKeepAlive(interval time.Duration) *TickerKeepAlive {
	return &TickerKeepAlive{
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the ticker goroutine. A failed write means the client is
// gone, so the goroutine exits on the first error.
func (k *TickerKeepAlive) Start(writer KeepAliveWriter, logger *slog.Logger) <-chan struct{} {
	ticker := time.NewTicker(k.interval)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := writer.WriteKeepAlive(); err != nil {
					logger.Debug("heartbeat write failed, stopping", "error", err)
					return
				}
			case <-k.done:
				return
			}
		}
	}()

	return stopped
}

// Stop terminates the heartbeat
func (k *TickerKeepAlive) Stop() {
	select {
	case <-k.done:
	default:
		close(k.done)
	}
}
