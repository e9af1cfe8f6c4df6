package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who authored a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn of a conversation
type Message struct {
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConversationContext is the per-session state held by the Context Store
type ConversationContext struct {
	SessionID   string           `json:"session_id"`
	UserID      uuid.UUID        `json:"user_id"`
	Messages    []Message        `json:"messages"`
	LastMood    *Mood            `json:"last_mood,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// LastMessages returns up to n of the most recent messages, oldest first.
func (c *ConversationContext) LastMessages(n int) []Message {
	if c == nil || n <= 0 || len(c.Messages) == 0 {
		return nil
	}
	if len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// PreferencesOrDefault returns the cached snapshot or the default preferences.
func (c *ConversationContext) PreferencesOrDefault() UserPreferences {
	if c == nil {
		return DefaultPreferences(uuid.Nil)
	}
	if c.Preferences == nil {
		return DefaultPreferences(c.UserID)
	}
	return *c.Preferences
}
