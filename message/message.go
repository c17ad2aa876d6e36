package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single turn exchanged with a text oracle.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// Text returns the message content, or the empty string for a nil message.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return m.Content
}

// Split separates system messages from the conversation turns.
// Providers that take the system prompt out of band (Anthropic, Gemini) use it.
func Split(msgs []*Message) (system string, turns []*Message) {
	var parts []string
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if msg.Role == RoleSystem {
			if s := strings.TrimSpace(msg.Content); s != "" {
				parts = append(parts, s)
			}
			continue
		}
		turns = append(turns, msg)
	}
	return strings.Join(parts, "\n\n"), turns
}
