package ir

// Role identifies the author of a message.
type Role string

const (
	// RoleSystem marks instructions supplied by the integrating application.
	RoleSystem Role = "system"
	// RoleUser marks end-user input.
	RoleUser Role = "user"
	// RoleAssistant marks model output.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool/function results fed back to the model.
	RoleTool Role = "tool"
)

// Message holds a role plus ordered content parts.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewTextMessage builds a single-text-part message.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// Text returns the concatenated text content of the message.
func (m Message) Text() string { return Text(m.Parts) }
