package xai

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DoneMarker is the data payload that ends a chat-completion stream
const DoneMarker = "[DONE]"

const maxEventLine = 1 << 20

// ScanEvents reads an upstream event stream and calls fn with every data
// payload, including the final [DONE]. It returns true when [DONE] was seen.
// Comments, event names and ids are skipped.
func ScanEvents(r io.Reader, fn func(data []byte) error) (bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	for scanner.Scan() {
		payload, ok := dataPayload(scanner.Bytes())
		if !ok {
			continue
		}
		if err := fn(payload); err != nil {
			return false, err
		}
		if IsDone(payload) {
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("read event stream: %w", err)
	}
	return false, nil
}

func dataPayload(line []byte) ([]byte, bool) {
	rest, ok := bytes.CutPrefix(line, []byte("data:"))
	if !ok {
		return nil, false
	}
	return bytes.TrimPrefix(rest, []byte(" ")), true
}

func IsDone(payload []byte) bool {
	return string(bytes.TrimSpace(payload)) == DoneMarker
}

// TextAccumulator concatenates choices[0].delta.content across chunks
type TextAccumulator struct {
	b strings.Builder
}

// Add consumes one data payload. [DONE] is ignored.
func (a *TextAccumulator) Add(payload []byte) error {
	if IsDone(payload) {
		return nil
	}

	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return fmt.Errorf("decode stream chunk: %w", err)
	}
	if len(chunk.Choices) > 0 {
		a.b.WriteString(chunk.Choices[0].Delta.Content)
	}
	return nil
}

func (a *TextAccumulator) String() string {
	return a.b.String()
}
