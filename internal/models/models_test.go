package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{in: "00:00", want: 0, ok: true},
		{in: "08:30", want: 510, ok: true},
		{in: "23:59", want: 1439, ok: true},
		{in: "24:00", ok: false},
		{in: "12:60", ok: false},
		{in: "8:30", ok: false},
		{in: "08-30", ok: false},
		{in: "ab:cd", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseClock(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseClock(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDailyTimelineComputeTotals(t *testing.T) {
	t.Parallel()

	tl := DailyTimeline{
		Activities: []TimelineActivity{
			{Title: "Kahvaltı", Budget: &Budget{Min: 50, Max: 150}, Discount: &ActivityDiscount{Percentage: 20}},
			{Title: "Yürüyüş"},
			{Title: "Sinema", Budget: &Budget{Min: 100, Max: 250}},
		},
	}
	tl.ComputeTotals()

	if tl.TotalBudget != 400 {
		t.Errorf("TotalBudget = %v, want 400", tl.TotalBudget)
	}
	if tl.EstimatedSavings != 30 {
		t.Errorf("EstimatedSavings = %v, want 30", tl.EstimatedSavings)
	}
}

func TestDailyTimelineSortAndFillIDs(t *testing.T) {
	t.Parallel()

	tl := DailyTimeline{
		Activities: []TimelineActivity{
			{ID: "b", StartTime: "12:30", EndTime: "13:30"},
			{StartTime: "08:30", EndTime: "09:30", Alternatives: []TimelineActivity{{Title: "alt"}}},
		},
	}
	tl.SortActivities()
	tl.FillIDs()

	if tl.Activities[0].StartTime != "08:30" {
		t.Errorf("first activity starts at %s, want 08:30", tl.Activities[0].StartTime)
	}
	if tl.Activities[1].ID != "b" {
		t.Errorf("existing id overwritten: %s", tl.Activities[1].ID)
	}
	if _, err := uuid.Parse(tl.Activities[0].ID); err != nil {
		t.Errorf("generated id is not a uuid: %q", tl.Activities[0].ID)
	}
	if tl.Activities[0].Alternatives[0].ID == "" {
		t.Error("alternative id not filled")
	}
}

func TestConversationContextLastMessages(t *testing.T) {
	t.Parallel()

	c := &ConversationContext{Messages: []Message{{Text: "1"}, {Text: "2"}, {Text: "3"}, {Text: "4"}}}
	got := c.LastMessages(3)
	if len(got) != 3 || got[0].Text != "2" || got[2].Text != "4" {
		t.Errorf("LastMessages(3) = %+v", got)
	}
	if got := c.LastMessages(10); len(got) != 4 {
		t.Errorf("LastMessages(10) returned %d messages, want 4", len(got))
	}

	var empty *ConversationContext
	if got := empty.LastMessages(3); got != nil {
		t.Errorf("nil context returned %+v", got)
	}
}

func TestPreferencesOrDefault(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	c := &ConversationContext{UserID: userID}
	prefs := c.PreferencesOrDefault()
	if prefs.UserID != userID || prefs.WakeTime != "08:00" || prefs.SleepTime != "23:00" {
		t.Errorf("unexpected default preferences: %+v", prefs)
	}

	custom := DefaultPreferences(userID)
	custom.WakeTime = "06:00"
	c.Preferences = &custom
	if got := c.PreferencesOrDefault(); got.WakeTime != "06:00" {
		t.Errorf("snapshot ignored, got wake time %s", got.WakeTime)
	}
}

func TestIntentResult(t *testing.T) {
	t.Parallel()

	fb := FallbackIntent()
	if fb.Type != IntentGeneralChat || fb.Confidence != 0.5 || fb.Category != nil {
		t.Errorf("FallbackIntent() = %+v", fb)
	}
	if got := fb.CategoryOr(RecommendationCategoryGeneral); got != "genel" {
		t.Errorf("CategoryOr = %q, want genel", got)
	}
	cat := "restoran"
	r := IntentResult{Type: IntentRecommendationRequest, Category: &cat}
	if got := r.CategoryOr("genel"); got != "restoran" {
		t.Errorf("CategoryOr = %q, want restoran", got)
	}
	if IntentType("weather").IsValid() {
		t.Error("unknown intent reported valid")
	}
}

func TestMoodIsValid(t *testing.T) {
	t.Parallel()

	for _, m := range MoodVocabulary() {
		if !m.IsValid() {
			t.Errorf("vocabulary mood %q reported invalid", m)
		}
	}
	if !MoodNeutral.IsValid() {
		t.Error("neutral should be valid")
	}
	if Mood("angry").IsValid() {
		t.Error("angry should not be valid")
	}
	if len(MoodVocabulary()) != 10 {
		t.Errorf("vocabulary size = %d, want 10", len(MoodVocabulary()))
	}
}
