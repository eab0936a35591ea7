package llm

// Role is the chat-completion role of a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Origin records which part of the request assembly produced a message.
// Conversations use it to refuse content that must not reach a mode.
type Origin string

const (
	OriginInstruction Origin = "instruction" // language and mode instructions
	OriginProfiling   Origin = "profiling"   // formula spreadsheet context
	OriginHistory     Origin = "history"     // replayed chat rows
	OriginReport      Origin = "report"      // saved reports attached to CDRs
	OriginPrompt      Origin = "prompt"      // the caller's own prompt and images
)

// PartType discriminates ContentPart
type PartType string

const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// ImageDetail values accepted by the upstream vision input
const (
	ImageDetailHigh = "high"
	ImageDetailAuto = "auto"
)

// ContentPart is one element of a multi-part message
type ContentPart struct {
	Type     PartType
	Text     string
	ImageURL *ImageURL
}

// ImageURL points at an image, usually a data URL
type ImageURL struct {
	URL    string
	Detail string
}

// Message is a role-tagged message that lives for one upstream request.
// Exactly one of Text and Parts is used; Parts wins when non-empty.
type Message struct {
	Role   Role
	Origin Origin
	Text   string
	Parts  []ContentPart
}

// TextMessage builds a plain-text message
func TextMessage(role Role, origin Origin, text string) Message {
	return Message{Role: role, Origin: origin, Text: text}
}

// TextPart builds a text content part
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart builds an image content part
func ImagePart(url, detail string) ContentPart {
	return ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: url, Detail: detail}}
}

// IsMultipart reports whether the message should be sent as a part array
func (m Message) IsMultipart() bool {
	return len(m.Parts) > 0
}

// ImageCount returns the number of image parts
func (m Message) ImageCount() int {
	n := 0
	for _, p := range m.Parts {
		if p.Type == PartImageURL {
			n++
		}
	}
	return n
}
