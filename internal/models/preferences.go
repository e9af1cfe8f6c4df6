package models

import "github.com/google/uuid"

// FitnessLevel describes how demanding sport suggestions may be
type FitnessLevel string

const (
	FitnessBeginner     FitnessLevel = "beginner"
	FitnessIntermediate FitnessLevel = "intermediate"
	FitnessAdvanced     FitnessLevel = "advanced"
)

// IsValid reports whether f is a known fitness level.
func (f FitnessLevel) IsValid() bool {
	return f == FitnessBeginner || f == FitnessIntermediate || f == FitnessAdvanced
}

// SocialPreference describes how social suggested activities should be
type SocialPreference string

const (
	SocialIntrovert SocialPreference = "introvert"
	SocialExtrovert SocialPreference = "extrovert"
	SocialAmbivert  SocialPreference = "ambivert"
)

// IsValid reports whether s is a known social preference.
func (s SocialPreference) IsValid() bool {
	return s == SocialIntrovert || s == SocialExtrovert || s == SocialAmbivert
}

// BudgetRange is a daily spending envelope in the user's currency
type BudgetRange struct {
	Min float64 `json:"min" validate:"gte=0"`
	Max float64 `json:"max" validate:"gtefield=Min"`
}

// Location is the user's home position
type Location struct {
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng  float64 `json:"lng" validate:"gte=-180,lte=180"`
	City string  `json:"city"`
}

// UserPreferences are read once per conversation and treated as immutable within a dispatch cycle
type UserPreferences struct {
	UserID              uuid.UUID        `json:"user_id"`
	WakeTime            string           `json:"wake_time" validate:"clock"`
	SleepTime           string           `json:"sleep_time" validate:"clock"`
	BudgetRange         BudgetRange      `json:"budget_range"`
	Interests           []string         `json:"interests"`
	DietaryRestrictions []string         `json:"dietary_restrictions"`
	FitnessLevel        FitnessLevel     `json:"fitness_level" validate:"fitness_level"`
	SocialPreference    SocialPreference `json:"social_preference" validate:"social_preference"`
	PreferredActivities []string         `json:"preferred_activities"`
	Location            Location         `json:"location"`
}

// DefaultPreferences is used whenever the Preference Store has no record or cannot be reached.
func DefaultPreferences(userID uuid.UUID) UserPreferences {
	return UserPreferences{
		UserID:              userID,
		WakeTime:            "08:00",
		SleepTime:           "23:00",
		BudgetRange:         BudgetRange{Min: 100, Max: 500},
		Interests:           []string{"yemek", "spor", "kültür"},
		DietaryRestrictions: []string{},
		FitnessLevel:        FitnessIntermediate,
		SocialPreference:    SocialAmbivert,
		PreferredActivities: []string{},
		Location:            Location{Lat: 41.0082, Lng: 28.9784, City: "İstanbul"},
	}
}
