package agent

import "github.com/sweetpotato0/ewa-agent/message"

// GenerateRequest bundles inputs for a single oracle invocation.
type GenerateRequest struct {
	Messages []*message.Message
	// MaxTokens caps the completion length; zero leaves the provider default.
	MaxTokens int64
}

// GenerateResponse captures the oracle reply.
type GenerateResponse struct {
	Message *message.Message
	Model   string
	Usage   Usage
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens,omitempty"`
	CompletionTokens int64 `json:"completion_tokens,omitempty"`
}
