package models

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ActivityCategory classifies a timeline activity
type ActivityCategory string

const (
	CategoryBreakfast     ActivityCategory = "breakfast"
	CategorySport         ActivityCategory = "sport"
	CategoryShopping      ActivityCategory = "shopping"
	CategoryEntertainment ActivityCategory = "entertainment"
	CategoryWork          ActivityCategory = "work"
	CategorySocial        ActivityCategory = "social"
	CategoryOther         ActivityCategory = "other"
)

// IsValid reports whether c is a known activity category.
func (c ActivityCategory) IsValid() bool {
	switch c {
	case CategoryBreakfast, CategorySport, CategoryShopping, CategoryEntertainment, CategoryWork, CategorySocial, CategoryOther:
		return true
	default:
		return false
	}
}

// ActivityLocation is where an activity takes place
type ActivityLocation struct {
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng     float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Budget is the expected spend for one activity
type Budget struct {
	Min      float64 `json:"min" validate:"gte=0"`
	Max      float64 `json:"max" validate:"gtefield=Min"`
	Currency string  `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// ActivityDiscount is a deal attached to a single activity
type ActivityDiscount struct {
	Percentage  float64 `json:"percentage" validate:"gt=0,lte=100"`
	Description string  `json:"description"`
	ValidUntil  string  `json:"valid_until,omitempty" validate:"omitempty,iso_date"`
}

// TimelineActivity is one slot of a daily plan. Alternatives are one level deep only.
type TimelineActivity struct {
	ID           string             `json:"id"`
	Title        string             `json:"title" validate:"required"`
	Description  string             `json:"description"`
	StartTime    string             `json:"start_time" validate:"required,clock"`
	EndTime      string             `json:"end_time" validate:"required,clock"`
	Category     ActivityCategory   `json:"category" validate:"required,activity_category"`
	Location     *ActivityLocation  `json:"location,omitempty"`
	Budget       *Budget            `json:"budget,omitempty"`
	Discount     *ActivityDiscount  `json:"discount,omitempty"`
	Mood         Mood               `json:"mood,omitempty" validate:"omitempty,mood"`
	Alternatives []TimelineActivity `json:"alternatives,omitempty" validate:"omitempty,dive"`
}

// StartMinutes returns the start time as minutes after midnight, or -1 if malformed.
func (a TimelineActivity) StartMinutes() int {
	m, ok := ParseClock(a.StartTime)
	if !ok {
		return -1
	}
	return m
}

// EndMinutes returns the end time as minutes after midnight, or -1 if malformed.
func (a TimelineActivity) EndMinutes() int {
	m, ok := ParseClock(a.EndTime)
	if !ok {
		return -1
	}
	return m
}

// MoodAnalysis summarizes the emotional arc the plan is built around
type MoodAnalysis struct {
	Primary         Mood     `json:"primary" validate:"required,mood"`
	Secondary       Mood     `json:"secondary,omitempty" validate:"omitempty,mood"`
	Recommendations []string `json:"recommendations"`
}

// DailyTimeline is a full-day plan for one user. Date, TotalBudget and EstimatedSavings are
// owned by the synthesizer; generated values for them are overwritten.
type DailyTimeline struct {
	Date             string             `json:"date" validate:"omitempty,iso_date"`
	Activities       []TimelineActivity `json:"activities" validate:"min=2,dive"`
	TotalBudget      float64            `json:"total_budget"`
	EstimatedSavings float64            `json:"estimated_savings"`
	MoodAnalysis     MoodAnalysis       `json:"mood_analysis"`
}

// SortActivities orders activities by start time.
func (t *DailyTimeline) SortActivities() {
	sort.SliceStable(t.Activities, func(i, j int) bool {
		return t.Activities[i].StartMinutes() < t.Activities[j].StartMinutes()
	})
}

// ComputeTotals derives TotalBudget (sum of budget maxima) and EstimatedSavings (the discounted
// share of each budget maximum) from the activities.
func (t *DailyTimeline) ComputeTotals() {
	var total, savings float64
	for _, a := range t.Activities {
		if a.Budget == nil {
			continue
		}
		total += a.Budget.Max
		if a.Discount != nil {
			savings += a.Budget.Max * a.Discount.Percentage / 100
		}
	}
	t.TotalBudget = round2(total)
	t.EstimatedSavings = round2(savings)
}

// FillIDs assigns generated ids to activities (and their alternatives) that arrived without one.
func (t *DailyTimeline) FillIDs() {
	for i := range t.Activities {
		if t.Activities[i].ID == "" {
			t.Activities[i].ID = uuid.NewString()
		}
		for j := range t.Activities[i].Alternatives {
			if t.Activities[i].Alternatives[j].ID == "" {
				t.Activities[i].Alternatives[j].ID = uuid.NewString()
			}
		}
	}
}

// StoredTimeline is a persisted timeline row
type StoredTimeline struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	Date      string        `json:"date"`
	Timeline  DailyTimeline `json:"timeline"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
