package message

import (
	"testing"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "Hello, world!")

	if msg.Role != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, msg.Role)
	}

	if msg.Content != "Hello, world!" {
		t.Errorf("Expected content 'Hello, world!', got '%s'", msg.Content)
	}

	if msg.ID == "" {
		t.Error("Expected non-empty ID")
	}

	if msg.CreatedAt.IsZero() {
		t.Error("Expected non-zero created time")
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	a := NewMessage(RoleUser, "a")
	b := NewMessage(RoleUser, "b")
	if a.ID == b.ID {
		t.Fatalf("expected distinct IDs, got %q twice", a.ID)
	}
}

func TestTextOnNilMessage(t *testing.T) {
	var msg *Message
	if got := msg.Text(); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestSplitSeparatesSystemPrompt(t *testing.T) {
	msgs := []*Message{
		NewMessage(RoleSystem, "be terse"),
		NewMessage(RoleUser, "question"),
		nil,
		NewMessage(RoleSystem, "  "),
		NewMessage(RoleAssistant, "answer"),
	}
	system, turns := Split(msgs)
	if system != "be terse" {
		t.Fatalf("unexpected system prompt %q", system)
	}
	if len(turns) != 2 || turns[0].Role != RoleUser || turns[1].Role != RoleAssistant {
		t.Fatalf("unexpected turns %#v", turns)
	}
}
