package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
)

type memoryEntry struct {
	conv      models.ConversationContext
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory with sliding TTL eviction
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	prefs    PreferenceSource
	opts     Options
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(prefs PreferenceSource, opts Options) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		prefs:    prefs,
		opts:     opts.withDefaults(),
	}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, sessionID string, userID uuid.UUID) (*models.ConversationContext, error) {
	if conv, ok := s.touch(sessionID); ok {
		return conv, nil
	}

	// Preferences are fetched outside the lock; a concurrent creator may win the insert.
	prefs := fetchPreferences(ctx, s.prefs, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	if e, ok := s.live(sessionID, now); ok {
		e.expiresAt = now.Add(s.opts.TTL)
		return cloneContext(&e.conv), nil
	}
	e := &memoryEntry{
		conv: models.ConversationContext{
			SessionID:   sessionID,
			UserID:      userID,
			Messages:    []models.Message{},
			Preferences: prefs,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		expiresAt: now.Add(s.opts.TTL),
	}
	s.sessions[sessionID] = e
	return cloneContext(&e.conv), nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*models.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(sessionID, s.opts.Now())
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneContext(&e.conv), nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, sessionID string, role models.MessageRole, text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	e, ok := s.live(sessionID, now)
	if !ok {
		return false, nil
	}
	e.conv.Messages = append(e.conv.Messages, models.Message{Role: role, Text: text, Timestamp: now})
	if over := len(e.conv.Messages) - s.opts.MaxMessages; over > 0 {
		e.conv.Messages = append([]models.Message(nil), e.conv.Messages[over:]...)
	}
	e.conv.UpdatedAt = now
	e.expiresAt = now.Add(s.opts.TTL)
	return true, nil
}

func (s *MemoryStore) SetMood(_ context.Context, sessionID string, mood models.Mood) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	e, ok := s.live(sessionID, now)
	if !ok {
		return false, nil
	}
	m := mood
	e.conv.LastMood = &m
	e.conv.UpdatedAt = now
	e.expiresAt = now.Add(s.opts.TTL)
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sweep evicts expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	removed := 0
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

func (s *MemoryStore) touch(sessionID string) (*models.ConversationContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	e, ok := s.live(sessionID, now)
	if !ok {
		return nil, false
	}
	e.expiresAt = now.Add(s.opts.TTL)
	return cloneContext(&e.conv), true
}

// live returns the entry when present and unexpired, evicting it otherwise. Caller holds mu.
func (s *MemoryStore) live(sessionID string, now time.Time) (*memoryEntry, bool) {
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		delete(s.sessions, sessionID)
		return nil, false
	}
	return e, true
}

func cloneContext(c *models.ConversationContext) *models.ConversationContext {
	out := *c
	out.Messages = append([]models.Message{}, c.Messages...)
	if c.LastMood != nil {
		m := *c.LastMood
		out.LastMood = &m
	}
	if c.Preferences != nil {
		p := *c.Preferences
		out.Preferences = &p
	}
	return &out
}
