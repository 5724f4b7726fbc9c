// Package oracle wraps the language-model backend used for SQL
// generation and validation judgments.
package oracle

import "context"

// Role values for oracle messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in an oracle conversation.
type Message struct {
	Role    string
	Content string
}

// Client produces free-form completions for a sequence of messages.
// Implementations must honor context cancellation.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
