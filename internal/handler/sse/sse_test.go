package sse

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type countingWriter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingWriter) WriteKeepAlive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *countingWriter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestTickerKeepAliveStops verifies heartbeats flow until Stop
func TestTickerKeepAliveStops(t *testing.T) {
	writer := &countingWriter{}
	keepAlive := NewTickerKeepAlive(5 * time.Millisecond)
	stopped := keepAlive.Start(writer, discardLogger())

	time.Sleep(30 * time.Millisecond)
	keepAlive.Stop()
	keepAlive.Stop() // idempotent

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not stop")
	}

	if writer.count() == 0 {
		t.Errorf("expected at least one heartbeat")
	}
}

// TestTickerKeepAliveStopsOnWriteError verifies a dead connection ends the ticker
func TestTickerKeepAliveStopsOnWriteError(t *testing.T) {
	writer := &countingWriter{err: errors.New("broken pipe")}
	keepAlive := NewTickerKeepAlive(time.Millisecond)
	stopped := keepAlive.Start(writer, discardLogger())
	defer keepAlive.Stop()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("keep-alive kept running after write error")
	}

	if writer.count() != 1 {
		t.Errorf("heartbeats after error = %d, want 1", writer.count())
	}
}

// TestWriterFrames checks event and comment framing
func TestWriterFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec, rec)

	if err := w.WriteEvent([]byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteKeepAlive(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteEvent([]byte("x\ny")); err != nil {
		t.Fatal(err)
	}

	want := "data: {\"a\":1}\n\n: heartbeat\n\ndata: x\ndata: y\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}

	w.Close()
	if err := w.WriteKeepAlive(); !errors.Is(err, ErrClosed) {
		t.Errorf("write after Close error = %v", err)
	}
	if strings.Count(rec.Body.String(), "heartbeat") != 1 {
		t.Errorf("write after Close reached the response")
	}
}
