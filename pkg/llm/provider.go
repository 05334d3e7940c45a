package llm

import "context"

// Role represents the role of the message sender (system, user, assistant).
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a model conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider defines the interface for an LLM provider.
type Provider interface {
	// Complete sends the messages to the model and returns the full response text.
	Complete(ctx context.Context, messages []Message) (string, error)
	// Stream sends the messages to the model and returns a channel of response
	// chunks. The channel is closed when the model is done generating.
	Stream(ctx context.Context, messages []Message) (<-chan string, error)
}
