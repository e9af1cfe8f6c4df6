package models

// IntentType is the routing label produced by intent classification
type IntentType string

const (
	IntentTimelineRequest       IntentType = "timeline_request"
	IntentRecommendationRequest IntentType = "recommendation_request"
	IntentDiscountInquiry       IntentType = "discount_inquiry"
	IntentMoodSupport           IntentType = "mood_support"
	IntentGeneralChat           IntentType = "general_chat"
)

// FallbackConfidence is reported whenever intent classification degrades to general chat.
const FallbackConfidence = 0.5

// IsValid reports whether t is one of the routable intents.
func (t IntentType) IsValid() bool {
	switch t {
	case IntentTimelineRequest, IntentRecommendationRequest, IntentDiscountInquiry, IntentMoodSupport, IntentGeneralChat:
		return true
	default:
		return false
	}
}

// IntentResult is the outcome of classifying one user message
type IntentResult struct {
	Type       IntentType `json:"type" validate:"required,intent"`
	Category   *string    `json:"category,omitempty"`
	Confidence float64    `json:"confidence" validate:"gte=0,lte=1"`
}

// FallbackIntent is the exact result returned when classification cannot complete.
func FallbackIntent() IntentResult {
	return IntentResult{Type: IntentGeneralChat, Confidence: FallbackConfidence}
}

// CategoryOr returns the classified category, or def when none was extracted.
func (r IntentResult) CategoryOr(def string) string {
	if r.Category == nil || *r.Category == "" {
		return def
	}
	return *r.Category
}
