package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &DB{DB: sqlDB}, mock
}

func TestPreferenceRepository_GetByUserID(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewPreferenceRepository(db)
	userID := uuid.New()

	columns := []string{"user_id", "wake_time", "sleep_time", "budget_min", "budget_max", "interests",
		"dietary_restrictions", "fitness_level", "social_preference", "preferred_activities",
		"location_lat", "location_lng", "location_city"}
	mock.ExpectQuery(`FROM user_preferences WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			userID.String(), "07:00", "22:30", 200.0, 800.0, []byte("{yemek,spor}"),
			[]byte("{vegan}"), "advanced", "extrovert", []byte("{}"),
			39.92, 32.85, "Ankara",
		))

	prefs, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, prefs.UserID)
	assert.Equal(t, "07:00", prefs.WakeTime)
	assert.Equal(t, []string{"yemek", "spor"}, prefs.Interests)
	assert.Equal(t, []string{"vegan"}, prefs.DietaryRestrictions)
	assert.Equal(t, models.FitnessAdvanced, prefs.FitnessLevel)
	assert.Equal(t, models.SocialExtrovert, prefs.SocialPreference)
	assert.Equal(t, "Ankara", prefs.Location.City)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepository_GetByUserID_NotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewPreferenceRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`FROM user_preferences`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := repo.GetByUserID(context.Background(), userID)
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepository_GetByUserID_Error(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewPreferenceRepository(db)

	mock.ExpectQuery(`FROM user_preferences`).WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByUserID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestPreferenceRepository_Upsert(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewPreferenceRepository(db)
	prefs := models.DefaultPreferences(uuid.New())

	mock.ExpectExec(`INSERT INTO user_preferences (.+) ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(prefs.UserID, "08:00", "23:00", 100.0, 500.0, sqlmock.AnyArg(), sqlmock.AnyArg(),
			"intermediate", "ambivert", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "İstanbul").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Upsert(context.Background(), &prefs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sampleTimeline() *models.DailyTimeline {
	return &models.DailyTimeline{
		Date: "2026-10-14",
		Activities: []models.TimelineActivity{
			{ID: "a1", Title: "Kahvaltı", StartTime: "08:30", EndTime: "09:30", Category: models.CategoryBreakfast},
			{ID: "a2", Title: "Yürüyüş", StartTime: "12:30", EndTime: "13:30", Category: models.CategorySport},
		},
		MoodAnalysis: models.MoodAnalysis{Primary: models.MoodEnergetic},
	}
}

func TestTimelineRepository_Upsert(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewTimelineRepository(db)
	userID := uuid.New()
	rowID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO daily_timelines (.+) ON CONFLICT \(user_id, date\) DO UPDATE (.+) RETURNING id, created_at, updated_at`).
		WithArgs(sqlmock.AnyArg(), userID, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(rowID.String(), now, now))

	stored, err := repo.Upsert(context.Background(), userID, sampleTimeline())
	require.NoError(t, err)
	assert.Equal(t, rowID, stored.ID)
	assert.Equal(t, userID, stored.UserID)
	assert.Equal(t, "2026-10-14", stored.Date)
	assert.Len(t, stored.Timeline.Activities, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineRepository_Upsert_InvalidDate(t *testing.T) {
	t.Parallel()

	db, _ := newMockDB(t)
	repo := NewTimelineRepository(db)
	tl := sampleTimeline()
	tl.Date = "yarın"

	_, err := repo.Upsert(context.Background(), uuid.New(), tl)
	assert.Error(t, err)
}

func TestTimelineRepository_GetByUserAndDate(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewTimelineRepository(db)
	userID := uuid.New()
	payload, err := json.Marshal(sampleTimeline())
	require.NoError(t, err)
	now := time.Now()

	mock.ExpectQuery(`FROM daily_timelines WHERE user_id = \$1 AND date = \$2`).
		WithArgs(userID, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "timeline", "created_at", "updated_at"}).
			AddRow(uuid.New().String(), userID.String(), payload, now, now))

	stored, err := repo.GetByUserAndDate(context.Background(), userID, "2026-10-14")
	require.NoError(t, err)
	assert.Equal(t, "Kahvaltı", stored.Timeline.Activities[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineRepository_GetByUserAndDate_NotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewTimelineRepository(db)

	mock.ExpectQuery(`FROM daily_timelines`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByUserAndDate(context.Background(), uuid.New(), "2026-10-14")
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestDiscountRepository_ListActive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "business_name", "title", "description", "category", "percentage", "valid_until", "created_at"}

	tests := []struct {
		name     string
		category *string
		expect   func(sqlmock.Sqlmock)
		wantLen  int
	}{
		{
			name: "no category",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM discounts WHERE valid_until >= \$1 ORDER BY percentage DESC`).
					WithArgs(now).
					WillReturnRows(sqlmock.NewRows(columns).
						AddRow(uuid.New().String(), "Kahve Durağı", "%30 kahve", "", "kafe", 30.0, now.Add(time.Hour), now).
						AddRow(uuid.New().String(), "Spor Salonu", "%10 üyelik", "", "spor", 10.0, now.Add(24*time.Hour), now))
			},
			wantLen: 2,
		},
		{
			name:     "with category",
			category: strPtr(" Kafe "),
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`WHERE valid_until >= \$1 AND LOWER\(category\) = LOWER\(\$2\)`).
					WithArgs(now, "Kafe").
					WillReturnRows(sqlmock.NewRows(columns).
						AddRow(uuid.New().String(), "Kahve Durağı", "%30 kahve", "", "kafe", 30.0, now.Add(time.Hour), now))
			},
			wantLen: 1,
		},
		{
			name:     "blank category ignored",
			category: strPtr("  "),
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`WHERE valid_until >= \$1 ORDER BY`).
					WithArgs(now).
					WillReturnRows(sqlmock.NewRows(columns))
			},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, mock := newMockDB(t)
			tt.expect(mock)

			got, err := NewDiscountRepository(db).ListActive(context.Background(), tt.category, now)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.wantLen)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDiscountRepository_Create(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	now := time.Now()
	d := &models.Discount{BusinessName: "Kitapçı", Title: "%15 kitap", Category: "kültür", Percentage: 15, ValidUntil: now.Add(48 * time.Hour)}

	mock.ExpectQuery(`INSERT INTO discounts`).
		WithArgs(sqlmock.AnyArg(), "Kitapçı", "%15 kitap", "", "kültür", 15.0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	require.NoError(t, NewDiscountRepository(db).Create(context.Background(), d))
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }
