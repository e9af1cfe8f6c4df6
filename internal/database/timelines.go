package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
)

// TimelineRepository persists generated daily timelines
type TimelineRepository struct {
	db *DB
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(db *DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Upsert stores the timeline keyed on (user_id, date), replacing any earlier plan for that day.
func (r *TimelineRepository) Upsert(ctx context.Context, userID uuid.UUID, timeline *models.DailyTimeline) (*models.StoredTimeline, error) {
	date, ok := models.ParseDate(timeline.Date)
	if !ok {
		return nil, fmt.Errorf("invalid timeline date %q", timeline.Date)
	}
	payload, err := json.Marshal(timeline)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timeline: %w", err)
	}

	query := `
		INSERT INTO daily_timelines (id, user_id, date, timeline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, date) DO UPDATE SET
			timeline = EXCLUDED.timeline,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	stored := &models.StoredTimeline{UserID: userID, Date: timeline.Date, Timeline: *timeline}
	now := time.Now().UTC()
	err = r.db.QueryRowContext(ctx, query, uuid.New(), userID, date, payload, now).Scan(
		&stored.ID,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert timeline: %w", err)
	}

	return stored, nil
}

// GetByUserAndDate returns the stored plan for one day, or ErrNotFound.
func (r *TimelineRepository) GetByUserAndDate(ctx context.Context, userID uuid.UUID, date string) (*models.StoredTimeline, error) {
	day, ok := models.ParseDate(date)
	if !ok {
		return nil, fmt.Errorf("invalid date %q", date)
	}

	query := `
		SELECT id, user_id, timeline, created_at, updated_at
		FROM daily_timelines
		WHERE user_id = $1 AND date = $2
	`

	stored := &models.StoredTimeline{Date: date}
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, userID, day).Scan(
		&stored.ID,
		&stored.UserID,
		&payload,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("timeline for %s: %w", date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}

	if err := json.Unmarshal(payload, &stored.Timeline); err != nil {
		return nil, fmt.Errorf("failed to decode stored timeline: %w", err)
	}
	return stored, nil
}
