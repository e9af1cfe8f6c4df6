package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	fields := map[string]validator.Func{
		"mood":              enumOf(func(s string) bool { return models.Mood(s).IsValid() }),
		"intent":            enumOf(func(s string) bool { return models.IntentType(s).IsValid() }),
		"activity_category": enumOf(func(s string) bool { return models.ActivityCategory(s).IsValid() }),
		"fitness_level":     enumOf(func(s string) bool { return models.FitnessLevel(s).IsValid() }),
		"social_preference": enumOf(func(s string) bool { return models.SocialPreference(s).IsValid() }),
		"clock": enumOf(func(s string) bool {
			_, ok := models.ParseClock(s)
			return ok
		}),
		"iso_date": enumOf(func(s string) bool {
			_, ok := models.ParseDate(s)
			return ok
		}),
	}
	for tag, fn := range fields {
		if err := Validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}

	Validate.RegisterStructValidation(activityRules, models.TimelineActivity{})
	Validate.RegisterStructValidation(timelineRules, models.DailyTimeline{})
}

func enumOf(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return valid(fl.Field().String())
	}
}

// activityRules enforces start < end and that alternatives do not nest.
func activityRules(sl validator.StructLevel) {
	a, ok := sl.Current().Interface().(models.TimelineActivity)
	if !ok {
		return
	}
	start, end := a.StartMinutes(), a.EndMinutes()
	if start >= 0 && end >= 0 && start >= end {
		sl.ReportError(a.EndTime, "end_time", "EndTime", "after_start", a.StartTime)
	}
	for _, alt := range a.Alternatives {
		if len(alt.Alternatives) > 0 {
			sl.ReportError(a.Alternatives, "alternatives", "Alternatives", "single_level", "")
			break
		}
	}
}

// timelineRules rejects overlapping activities. Activities must already be sorted by start time.
func timelineRules(sl validator.StructLevel) {
	t, ok := sl.Current().Interface().(models.DailyTimeline)
	if !ok {
		return
	}
	for i := 1; i < len(t.Activities); i++ {
		prev, cur := t.Activities[i-1], t.Activities[i]
		if prev.EndMinutes() < 0 || cur.StartMinutes() < 0 {
			continue
		}
		if cur.StartMinutes() < prev.EndMinutes() {
			sl.ReportError(t.Activities, "activities", "Activities", "no_overlap", fmt.Sprintf("%d", i))
			return
		}
	}
}

// ValidateTimeline sorts the activities, then checks the whole timeline.
func ValidateTimeline(t *models.DailyTimeline) error {
	if t == nil {
		return fmt.Errorf("timeline is nil")
	}
	t.SortActivities()
	return Validate.Struct(t)
}

// ValidateRecommendations checks every item of a recommendation list.
func ValidateRecommendations(items []models.AIRecommendation) error {
	for i := range items {
		if err := Validate.Struct(items[i]); err != nil {
			return fmt.Errorf("recommendation %d: %w", i, err)
		}
	}
	return nil
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
