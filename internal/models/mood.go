package models

// Mood is the user's emotional state as inferred from a single message
type Mood string

const (
	MoodEnergetic  Mood = "energetic"
	MoodRelaxed    Mood = "relaxed"
	MoodSocial     Mood = "social"
	MoodProductive Mood = "productive"
	MoodCreative   Mood = "creative"
	MoodStressed   Mood = "stressed"
	MoodHappy      Mood = "happy"
	MoodSad        Mood = "sad"
	MoodExcited    Mood = "excited"
	MoodTired      Mood = "tired"
	// MoodNeutral is never produced by the classifier on success; it marks a failed inference.
	MoodNeutral Mood = "neutral"
)

var moodVocabulary = []Mood{
	MoodEnergetic, MoodRelaxed, MoodSocial, MoodProductive, MoodCreative,
	MoodStressed, MoodHappy, MoodSad, MoodExcited, MoodTired,
}

// MoodVocabulary returns the moods the classifier may emit.
func MoodVocabulary() []Mood {
	out := make([]Mood, len(moodVocabulary))
	copy(out, moodVocabulary)
	return out
}

// IsValid reports whether m is a vocabulary mood or neutral.
func (m Mood) IsValid() bool {
	if m == MoodNeutral {
		return true
	}
	for _, v := range moodVocabulary {
		if m == v {
			return true
		}
	}
	return false
}

// MoodEnvelope is the structured shape of a mood classification
type MoodEnvelope struct {
	Mood Mood `json:"mood" validate:"required,mood"`
}
