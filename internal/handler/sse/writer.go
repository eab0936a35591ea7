package sse

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrClosed is returned by writes after Close
var ErrClosed = errors.New("sse writer closed")

// Writer serializes SSE frames onto one response. Data events from the relay
// and heartbeat comments from the ticker goroutine share the mutex, so
// frames never interleave.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func NewWriter(w http.ResponseWriter, flusher http.Flusher) *Writer {
	return &Writer{w: w, flusher: flusher}
}

// WriteEvent writes data as one "data:" event. Embedded newlines become
// continuation data lines.
func (s *Writer) WriteEvent(data []byte) error {
	var frame bytes.Buffer
	for _, line := range bytes.Split(data, []byte("\n")) {
		frame.WriteString("data: ")
		frame.Write(line)
		frame.WriteByte('\n')
	}
	frame.WriteByte('\n')
	return s.write(frame.Bytes())
}

// WriteKeepAlive writes a ": heartbeat" comment, which clients ignore
func (s *Writer) WriteKeepAlive() error {
	return s.write([]byte(": heartbeat\n\n"))
}

// Close makes later writes fail. Used once the handler returns, after which
// the ResponseWriter must not be touched.
func (s *Writer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Writer) write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, err := s.w.Write(frame); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}
