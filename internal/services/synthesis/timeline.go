package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/metrics"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/parser"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// timelineMaxTokens fits a full day of activities with alternatives.
const timelineMaxTokens = 2500

const timelineInstruction = `You are a Turkish daily planner. Build a realistic plan for one day.
Write titles and descriptions in Turkish.
Respond with only a JSON object of this shape:
{
  "activities": [
    {
      "title": "...", "description": "...",
      "start_time": "HH:MM", "end_time": "HH:MM",
      "category": "breakfast|sport|shopping|entertainment|work|social|other",
      "location": {"name": "...", "address": "...", "lat": 0, "lng": 0},
      "budget": {"min": 0, "max": 0, "currency": "TRY"},
      "discount": {"percentage": 0, "description": "...", "valid_until": "YYYY-MM-DD"},
      "mood": "<mood>",
      "alternatives": [ { same fields, without alternatives } ]
    }
  ],
  "mood_analysis": {"primary": "<mood>", "secondary": "<mood>", "recommendations": ["..."]}
}
Rules:
- at least two activities, including breakfast and a midday activity
- activities must not overlap and must fit between wake and sleep time
- start_time is before end_time, budget.min is at most budget.max
- location, budget, discount and alternatives are optional; omit them rather than inventing values`

// TimelineStore persists generated timelines
type TimelineStore interface {
	Upsert(ctx context.Context, userID uuid.UUID, timeline *models.DailyTimeline) (*models.StoredTimeline, error)
}

// TimelineResult always carries a schema-valid timeline.
type TimelineResult struct {
	Timeline models.DailyTimeline
	Source   Source
	// Err is why a fallback was used.
	Err error
	// PersistErr is set when a generated timeline could not be stored. The timeline is still valid.
	PersistErr error
}

// TimelineSynthesizer builds daily plans
type TimelineSynthesizer struct {
	gen     ai.TextGenerator
	store   TimelineStore
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewTimelineSynthesizer creates a timeline synthesizer. store may be nil to skip persistence.
func NewTimelineSynthesizer(gen ai.TextGenerator, store TimelineStore, cfg Config, log *zap.Logger, m *metrics.Metrics) *TimelineSynthesizer {
	return &TimelineSynthesizer{
		gen:     gen,
		store:   store,
		cfg:     cfg.withDefaults(),
		logger:  logger.Component(log, "timeline"),
		metrics: m,
	}
}

// Synthesize generates, validates and persists the plan for date, or returns DefaultTimeline.
func (s *TimelineSynthesizer) Synthesize(ctx context.Context, userID uuid.UUID, prefs models.UserPreferences, mood models.Mood, date time.Time) TimelineResult {
	day := models.FormatDate(date)

	raw, err := s.gen.Complete(ctx, timelinePrompt(prefs, mood, day),
		ai.WithOperation(ai.OpTimeline),
		ai.WithSystem(timelineInstruction),
		ai.WithMaxTokens(timelineMaxTokens),
		ai.WithJSONObject(),
	)
	if err != nil {
		return s.fallback(day, userID, err)
	}

	res := parser.Timeline.Parse(raw)
	timeline, ok := res.Value()
	if !ok {
		s.logger.Debug("timeline_response_rejected", zap.String("response_preview", logger.Preview(raw, true)))
		return s.fallback(day, userID, res.Err())
	}

	timeline.Date = day
	timeline.FillIDs()
	fillCurrency(timeline.Activities, s.cfg.Currency)
	timeline.ComputeTotals()

	result := TimelineResult{Timeline: timeline, Source: SourceGenerated}
	if s.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()
		if _, err := s.store.Upsert(storeCtx, userID, &result.Timeline); err != nil {
			s.logger.Error("timeline_persist_failed",
				zap.String("user_hash", logger.HashID(userID.String())),
				zap.String("date", day),
				zap.Error(err),
			)
			result.PersistErr = err
		}
	}

	s.logger.Info("timeline_generated",
		zap.String("date", day),
		zap.Int("activities", len(timeline.Activities)),
		zap.Float64("total_budget", timeline.TotalBudget),
	)
	return result
}

func (s *TimelineSynthesizer) fallback(day string, userID uuid.UUID, err error) TimelineResult {
	reason := fallbackReason(err)
	s.metrics.ObserveFallback("timeline", reason)
	s.logger.Warn("timeline_fallback",
		zap.String("user_hash", logger.HashID(userID.String())),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return TimelineResult{Timeline: DefaultTimeline(day, s.cfg.Currency), Source: SourceFallback, Err: err}
}

// DefaultTimeline is the fixed two-activity plan served when generation fails. It is never persisted.
func DefaultTimeline(day, currency string) models.DailyTimeline {
	t := models.DailyTimeline{
		Date: day,
		Activities: []models.TimelineActivity{
			{
				ID:          "default-breakfast",
				Title:       "Kahvaltı",
				Description: "Güne sakin ve besleyici bir kahvaltıyla başla.",
				StartTime:   "08:30",
				EndTime:     "09:30",
				Category:    models.CategoryBreakfast,
				Budget:      &models.Budget{Min: 50, Max: 150, Currency: currency},
				Mood:        models.MoodNeutral,
			},
			{
				ID:          "default-midday",
				Title:       "Öğle yemeği ve kısa yürüyüş",
				Description: "Öğle arasında yemek ye ve yakınlarda kısa bir yürüyüş yap.",
				StartTime:   "12:30",
				EndTime:     "13:30",
				Category:    models.CategoryOther,
				Budget:      &models.Budget{Min: 100, Max: 250, Currency: currency},
				Mood:        models.MoodProductive,
			},
		},
		MoodAnalysis: models.MoodAnalysis{
			Primary:         models.MoodNeutral,
			Secondary:       models.MoodProductive,
			Recommendations: []string{"Gün içinde kısa molalar vermeyi unutma."},
		},
	}
	t.ComputeTotals()
	return t
}

func fillCurrency(activities []models.TimelineActivity, currency string) {
	for i := range activities {
		if b := activities[i].Budget; b != nil && b.Currency == "" {
			b.Currency = currency
		}
		fillCurrency(activities[i].Alternatives, currency)
	}
}

func timelinePrompt(prefs models.UserPreferences, mood models.Mood, day string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", day)
	fmt.Fprintf(&b, "Current mood: %s\n", mood)
	fmt.Fprintf(&b, "Wake time: %s\n", prefs.WakeTime)
	fmt.Fprintf(&b, "Sleep time: %s\n", prefs.SleepTime)
	fmt.Fprintf(&b, "Daily budget: %.0f-%.0f\n", prefs.BudgetRange.Min, prefs.BudgetRange.Max)
	fmt.Fprintf(&b, "Interests: %s\n", joinOrNone(prefs.Interests))
	fmt.Fprintf(&b, "Dietary restrictions: %s\n", joinOrNone(prefs.DietaryRestrictions))
	fmt.Fprintf(&b, "Fitness level: %s\n", prefs.FitnessLevel)
	fmt.Fprintf(&b, "Social preference: %s\n", prefs.SocialPreference)
	fmt.Fprintf(&b, "Preferred activities: %s\n", joinOrNone(prefs.PreferredActivities))
	if prefs.Location.City != "" {
		fmt.Fprintf(&b, "City: %s (%.4f, %.4f)\n", prefs.Location.City, prefs.Location.Lat, prefs.Location.Lng)
	}
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
