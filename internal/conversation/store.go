// Package conversation holds per-session assistant state: message history, the last inferred
// mood and a preference snapshot taken when the session is created.
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by Get for unknown or evicted sessions.
var ErrSessionNotFound = errors.New("session not found")

const (
	DefaultTTL         = 30 * time.Minute
	DefaultMaxMessages = 200
)

// PreferenceSource supplies the snapshot cached on a new context. It never fails.
type PreferenceSource interface {
	Get(ctx context.Context, userID uuid.UUID) models.UserPreferences
}

// Store is the Conversation Context Store
type Store interface {
	// GetOrCreate returns the session, creating it with empty history and fetched preferences.
	GetOrCreate(ctx context.Context, sessionID string, userID uuid.UUID) (*models.ConversationContext, error)
	// Get returns ErrSessionNotFound when the session does not exist.
	Get(ctx context.Context, sessionID string) (*models.ConversationContext, error)
	// AppendMessage reports false without error when the session does not exist.
	AppendMessage(ctx context.Context, sessionID string, role models.MessageRole, text string) (bool, error)
	// SetMood reports false without error when the session does not exist.
	SetMood(ctx context.Context, sessionID string, mood models.Mood) (bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// Locker serializes work on one session across goroutines or instances
type Locker interface {
	// Lock blocks until the session is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, sessionID string) (func(), error)
}

// Options tune store retention
type Options struct {
	TTL         time.Duration
	MaxMessages int
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxMessages <= 0 {
		o.MaxMessages = DefaultMaxMessages
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func fetchPreferences(ctx context.Context, src PreferenceSource, userID uuid.UUID) *models.UserPreferences {
	var prefs models.UserPreferences
	if src == nil {
		prefs = models.DefaultPreferences(userID)
	} else {
		prefs = src.Get(ctx, userID)
	}
	return &prefs
}
