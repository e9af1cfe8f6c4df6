package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PreferenceRepository handles user preference rows
type PreferenceRepository struct {
	db *DB
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetByUserID returns the stored preferences, or ErrNotFound.
func (r *PreferenceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserPreferences, error) {
	query := `
		SELECT user_id, wake_time, sleep_time, budget_min, budget_max, interests, dietary_restrictions,
		       fitness_level, social_preference, preferred_activities, location_lat, location_lng, location_city
		FROM user_preferences
		WHERE user_id = $1
	`

	p := &models.UserPreferences{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.WakeTime,
		&p.SleepTime,
		&p.BudgetRange.Min,
		&p.BudgetRange.Max,
		pq.Array(&p.Interests),
		pq.Array(&p.DietaryRestrictions),
		&p.FitnessLevel,
		&p.SocialPreference,
		pq.Array(&p.PreferredActivities),
		&p.Location.Lat,
		&p.Location.Lng,
		&p.Location.City,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("preferences for user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	return p, nil
}

// Upsert writes the full preference record.
func (r *PreferenceRepository) Upsert(ctx context.Context, p *models.UserPreferences) error {
	query := `
		INSERT INTO user_preferences (user_id, wake_time, sleep_time, budget_min, budget_max, interests,
		                              dietary_restrictions, fitness_level, social_preference, preferred_activities,
		                              location_lat, location_lng, location_city, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			wake_time = EXCLUDED.wake_time,
			sleep_time = EXCLUDED.sleep_time,
			budget_min = EXCLUDED.budget_min,
			budget_max = EXCLUDED.budget_max,
			interests = EXCLUDED.interests,
			dietary_restrictions = EXCLUDED.dietary_restrictions,
			fitness_level = EXCLUDED.fitness_level,
			social_preference = EXCLUDED.social_preference,
			preferred_activities = EXCLUDED.preferred_activities,
			location_lat = EXCLUDED.location_lat,
			location_lng = EXCLUDED.location_lng,
			location_city = EXCLUDED.location_city,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		p.UserID,
		p.WakeTime,
		p.SleepTime,
		p.BudgetRange.Min,
		p.BudgetRange.Max,
		pq.Array(p.Interests),
		pq.Array(p.DietaryRestrictions),
		p.FitnessLevel,
		p.SocialPreference,
		pq.Array(p.PreferredActivities),
		p.Location.Lat,
		p.Location.Lng,
		p.Location.City,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}

	return nil
}
