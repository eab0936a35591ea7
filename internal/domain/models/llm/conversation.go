package llm

import (
	"errors"
	"fmt"
)

// Mode selects how a grok request is assembled
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeImage Mode = "image"
	ModeCDRs  Mode = "cdrs"
)

// ParseMode maps the request field to a Mode. Empty means chat.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeChat:
		return ModeChat, true
	case ModeImage:
		return ModeImage, true
	case ModeCDRs:
		return ModeCDRs, true
	}
	return "", false
}

// ErrOriginNotAllowed is returned when a message origin is barred from the
// conversation's mode.
var ErrOriginNotAllowed = errors.New("message origin not allowed in mode")

// Conversation is the ordered message list for one upstream request.
// A CDRs conversation refuses profiling and history messages, so report
// comparisons never see a profile's earlier chat or formula context.
type Conversation struct {
	mode     Mode
	messages []Message
}

func NewConversation(mode Mode) *Conversation {
	return &Conversation{mode: mode}
}

func (c *Conversation) Mode() Mode {
	return c.mode
}

// Append adds m to the end of the conversation
func (c *Conversation) Append(m Message) error {
	if !c.allows(m.Origin) {
		return fmt.Errorf("%w: %s in %s", ErrOriginNotAllowed, m.Origin, c.mode)
	}
	c.messages = append(c.messages, m)
	return nil
}

func (c *Conversation) allows(origin Origin) bool {
	if c.mode != ModeCDRs {
		return true
	}
	return origin != OriginProfiling && origin != OriginHistory
}

// Messages returns a copy of the messages in order
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// Count returns how many messages carry origin
func (c *Conversation) Count(origin Origin) int {
	n := 0
	for _, m := range c.messages {
		if m.Origin == origin {
			n++
		}
	}
	return n
}

// Has reports whether any message carries origin
func (c *Conversation) Has(origin Origin) bool {
	return c.Count(origin) > 0
}
