package database

import (
	"context"
	"time"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
)

// PreferenceRepositoryInterface is the Preference Store read/write contract
type PreferenceRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserPreferences, error)
	Upsert(ctx context.Context, p *models.UserPreferences) error
}

// TimelineRepositoryInterface is the timeline persistence contract
type TimelineRepositoryInterface interface {
	Upsert(ctx context.Context, userID uuid.UUID, timeline *models.DailyTimeline) (*models.StoredTimeline, error)
	GetByUserAndDate(ctx context.Context, userID uuid.UUID, date string) (*models.StoredTimeline, error)
}

// DiscountRepositoryInterface is the Discount Store contract
type DiscountRepositoryInterface interface {
	ListActive(ctx context.Context, category *string, now time.Time) ([]models.Discount, error)
	Create(ctx context.Context, d *models.Discount) error
}

// Ensure concrete types implement the interfaces
var (
	_ PreferenceRepositoryInterface = (*PreferenceRepository)(nil)
	_ TimelineRepositoryInterface   = (*TimelineRepository)(nil)
	_ DiscountRepositoryInterface   = (*DiscountRepository)(nil)
)
