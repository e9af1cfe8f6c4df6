package preferences

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benvon/smart-planner/internal/database"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockReader struct {
	getFunc func(ctx context.Context, userID uuid.UUID) (*models.UserPreferences, error)
}

func (m *mockReader) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserPreferences, error) {
	return m.getFunc(ctx, userID)
}

var _ Reader = (*mockReader)(nil)

func TestServiceGet(t *testing.T) {
	t.Parallel()

	stored := models.DefaultPreferences(uuid.Nil)
	stored.WakeTime = "06:30"

	tests := []struct {
		name     string
		repo     Reader
		wantWake string
	}{
		{name: "nil repo", repo: nil, wantWake: "08:00"},
		{
			name: "stored",
			repo: &mockReader{getFunc: func(context.Context, uuid.UUID) (*models.UserPreferences, error) {
				p := stored
				return &p, nil
			}},
			wantWake: "06:30",
		},
		{
			name: "not found",
			repo: &mockReader{getFunc: func(_ context.Context, id uuid.UUID) (*models.UserPreferences, error) {
				return nil, fmt.Errorf("preferences for user %s: %w", id, database.ErrNotFound)
			}},
			wantWake: "08:00",
		},
		{
			name: "store error",
			repo: &mockReader{getFunc: func(context.Context, uuid.UUID) (*models.UserPreferences, error) {
				return nil, errors.New("connection refused")
			}},
			wantWake: "08:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			userID := uuid.New()
			svc := NewService(tt.repo, time.Second, zap.NewNop())
			got := svc.Get(context.Background(), userID)
			if got.WakeTime != tt.wantWake {
				t.Errorf("WakeTime = %s, want %s", got.WakeTime, tt.wantWake)
			}
			if got.UserID != userID {
				t.Errorf("UserID = %s, want %s", got.UserID, userID)
			}
		})
	}
}

func TestServiceGetAppliesTimeout(t *testing.T) {
	t.Parallel()

	repo := &mockReader{getFunc: func(ctx context.Context, _ uuid.UUID) (*models.UserPreferences, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc := NewService(repo, 20*time.Millisecond, zap.NewNop())

	start := time.Now()
	got := svc.Get(context.Background(), uuid.New())
	if time.Since(start) > time.Second {
		t.Error("lookup was not bounded by the store timeout")
	}
	if got.SleepTime != "23:00" {
		t.Errorf("expected defaults after timeout, got %+v", got)
	}
}
