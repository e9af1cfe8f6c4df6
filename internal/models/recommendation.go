package models

// MaxRecommendations is the number of recommendations requested and the cap applied to results.
const MaxRecommendations = 5

// Recommendation categories with special meaning
const (
	RecommendationCategoryGeneral     = "genel"
	RecommendationCategoryMoodSupport = "mood_support"
)

// AIRecommendation is a single generated suggestion
type AIRecommendation struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title" validate:"required"`
	Description        string   `json:"description"`
	Category           string   `json:"category" validate:"required"`
	Rating             float64  `json:"rating" validate:"gte=0,lte=5"`
	Price              float64  `json:"price" validate:"gte=0"`
	DiscountPercentage *float64 `json:"discount_percentage,omitempty" validate:"omitempty,gt=0,lte=100"`
	Location           string   `json:"location,omitempty"`
	ImageURL           string   `json:"image_url,omitempty" validate:"omitempty,url"`
	Tags               []string `json:"tags,omitempty"`
}
