package xai

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when a completion carries no choices
var ErrNoChoices = errors.New("completion has no choices")

// ParseCompletion extracts choices[0].message.content
func ParseCompletion(body []byte) (string, error) {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// UpstreamError is the normalized error reply of the upstream API
type UpstreamError struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ParseError reads an error reply. OpenAI-style {"error": {...}} bodies
// and xAI's flat {"code", "error"} bodies are both understood; anything
// else is reported as a truncated snippet.
func ParseError(status int, body []byte, snippetLen int) *UpstreamError {
	out := &UpstreamError{Status: status}

	var nested openai.ErrorResponse
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error != nil && nested.Error.Message != "" {
		out.Message = nested.Error.Message
		if nested.Error.Code != nil {
			out.Code = fmt.Sprint(nested.Error.Code)
		}
		return out
	}

	var flat struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		out.Code = flat.Code
		out.Message = flat.Error
		return out
	}

	out.Message = Snippet(body, snippetLen)
	return out
}

// Snippet returns at most n bytes of body as text
func Snippet(body []byte, n int) string {
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}
