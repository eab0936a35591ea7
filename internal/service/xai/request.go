package xai

import (
	"github.com/sashabaranov/go-openai"
	"h1nted/internal/domain/models/llm"
)

// BuildRequest converts assembled messages into a chat-completion request
// using the configured model and sampling settings.
func (c *Client) BuildRequest(messages []llm.Message, stream bool) openai.ChatCompletionRequest {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, toOpenAIMessage(m))
	}

	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    out,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      stream,
	}
}

// toOpenAIMessage fills either Content or MultiContent; go-openai refuses
// to marshal a message with both.
func toOpenAIMessage(m llm.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{Role: string(m.Role)}
	if !m.IsMultipart() {
		msg.Content = m.Text
		return msg
	}

	parts := make([]openai.ChatMessagePart, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case llm.PartText:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		case llm.PartImageURL:
			if p.ImageURL == nil {
				continue
			}
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    p.ImageURL.URL,
					Detail: openai.ImageURLDetail(p.ImageURL.Detail),
				},
			})
		}
	}
	msg.MultiContent = parts
	return msg
}
