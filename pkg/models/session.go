package models

import "time"

// UserType fixes which guardrail rule-set applies for a session's lifetime.
type UserType string

const (
	UserTypeUser  UserType = "user"
	UserTypeAdmin UserType = "admin"
)

// Valid reports whether the tier is one of the recognized values.
func (u UserType) Valid() bool {
	return u == UserTypeUser || u == UserTypeAdmin
}

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one entry in a session's append-only history.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// SessionMetadata holds the per-session attributes fixed at creation time.
type SessionMetadata struct {
	ID        string    `json:"session_id"`
	Name      string    `json:"session_name"`
	UserType  UserType  `json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingKind discriminates the two disjoint pending states a session can be
// in while waiting for the user's next message.
type PendingKind int

const (
	// PendingNone means the next user message starts a fresh request.
	PendingNone PendingKind = iota
	// PendingConfirmation means a human_verification decision with non-empty
	// SQL awaits a yes/no reply.
	PendingConfirmation
	// PendingClarification means a clarification decision awaits specifics;
	// a yes/no-shaped reply must not execute anything.
	PendingClarification
	// PendingRegeneration means a structural execution failure was reported
	// and the next turn continues with a regeneration attempt.
	PendingRegeneration
)

// PendingState is the view derived each turn by scanning history backward
// for the latest assistant decision payload. It is recomputed, never stored.
type PendingState struct {
	Kind          PendingKind
	SQL           string
	Feedback      string
	OriginalQuery string
}
