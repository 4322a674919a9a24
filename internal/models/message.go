package models

import "strings"

// Role is the normalized speaker of a chat message.
type Role string

const (
	RoleUser Role = "User"
	RoleAI   Role = "AI"
)

// ParseRole maps the raw role strings seen in history payloads onto the
// two normalized roles. Anything outside the known set is rejected
// rather than kept as a third category.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "human", "user":
		return RoleUser, true
	case "ai", "assistant":
		return RoleAI, true
	}
	return "", false
}

// Message is one normalized chat turn. The timestamp is inherited from
// the enclosing history item and is used only for ordering.
type Message struct {
	Timestamp string `json:"timestamp"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
}

// Conversation is the deduplicated, chronologically ordered message
// sequence of one thread.
type Conversation []Message
