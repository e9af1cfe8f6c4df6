package parser

import (
	"encoding/json"
	"errors"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/validation"
)

const clockPattern = `^([01][0-9]|2[0-3]):[0-5][0-9]$`
const datePattern = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`

const draft07 = "http://json-schema.org/draft-07/schema#"

// Specs for every structured response the engine accepts.
var (
	Intent          = MustCompile(intentDefinition())
	Mood            = MustCompile(moodDefinition())
	Timeline        = MustCompile(timelineDefinition())
	Recommendations = MustCompile(recommendationsDefinition())
	DiscountSummary = MustCompile(discountSummaryDefinition())
)

func intentDefinition() Definition[models.IntentResult] {
	return Definition[models.IntentResult]{
		Name: "intent",
		Kind: KindObject,
		Schema: map[string]any{
			"$schema":  draft07,
			"type":     "object",
			"required": []string{"type", "confidence"},
			"properties": map[string]any{
				"type": map[string]any{
					"type": "string",
					"enum": []string{
						string(models.IntentTimelineRequest),
						string(models.IntentRecommendationRequest),
						string(models.IntentDiscountInquiry),
						string(models.IntentMoodSupport),
						string(models.IntentGeneralChat),
					},
				},
				"category":   map[string]any{"type": []string{"string", "null"}},
				"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			},
		},
		Check: func(r *models.IntentResult) error {
			return validation.Validate.Struct(r)
		},
	}
}

func moodDefinition() Definition[models.MoodEnvelope] {
	return Definition[models.MoodEnvelope]{
		Name: "mood",
		Kind: KindObject,
		Schema: map[string]any{
			"$schema":  draft07,
			"type":     "object",
			"required": []string{"mood"},
			"properties": map[string]any{
				"mood": map[string]any{"type": "string", "enum": moodEnum()},
			},
		},
		Check: func(m *models.MoodEnvelope) error {
			return validation.Validate.Struct(m)
		},
	}
}

func timelineDefinition() Definition[models.DailyTimeline] {
	return Definition[models.DailyTimeline]{
		Name: "timeline",
		Kind: KindObject,
		Schema: map[string]any{
			"$schema":  draft07,
			"type":     "object",
			"required": []string{"activities", "mood_analysis"},
			"properties": map[string]any{
				"date": map[string]any{"type": "string", "pattern": datePattern},
				"activities": map[string]any{
					"type":     "array",
					"minItems": 2,
					"items":    activitySchema(true),
				},
				"total_budget":      map[string]any{"type": "number", "minimum": 0},
				"estimated_savings": map[string]any{"type": "number", "minimum": 0},
				"mood_analysis": map[string]any{
					"type":     "object",
					"required": []string{"primary", "secondary", "recommendations"},
					"properties": map[string]any{
						"primary":         map[string]any{"type": "string", "enum": moodEnum()},
						"secondary":       map[string]any{"type": "string", "enum": moodEnum()},
						"recommendations": map[string]any{"type": "array", "items": map[string]any{"type": "string", "minLength": 1}},
					},
				},
			},
		},
		Check: validation.ValidateTimeline,
	}
}

func activitySchema(withAlternatives bool) map[string]any {
	props := map[string]any{
		"id":          map[string]any{"type": "string"},
		"title":       map[string]any{"type": "string", "minLength": 1},
		"description": map[string]any{"type": "string"},
		"start_time":  map[string]any{"type": "string", "pattern": clockPattern},
		"end_time":    map[string]any{"type": "string", "pattern": clockPattern},
		"category": map[string]any{
			"type": "string",
			"enum": []string{
				string(models.CategoryBreakfast), string(models.CategorySport), string(models.CategoryShopping),
				string(models.CategoryEntertainment), string(models.CategoryWork), string(models.CategorySocial),
				string(models.CategoryOther),
			},
		},
		"location": map[string]any{
			"type":     "object",
			"required": []string{"name", "lat", "lng"},
			"properties": map[string]any{
				"name":    map[string]any{"type": "string"},
				"address": map[string]any{"type": "string"},
				"lat":     map[string]any{"type": "number", "minimum": -90, "maximum": 90},
				"lng":     map[string]any{"type": "number", "minimum": -180, "maximum": 180},
			},
		},
		"budget": map[string]any{
			"type":     "object",
			"required": []string{"min", "max"},
			"properties": map[string]any{
				"min":      map[string]any{"type": "number", "minimum": 0},
				"max":      map[string]any{"type": "number", "minimum": 0},
				"currency": map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
			},
		},
		"discount": map[string]any{
			"type":     "object",
			"required": []string{"percentage"},
			"properties": map[string]any{
				"percentage":  map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 100},
				"description": map[string]any{"type": "string"},
				"valid_until": map[string]any{"type": "string", "pattern": datePattern},
			},
		},
		"mood": map[string]any{"type": "string", "enum": moodEnum()},
	}
	if withAlternatives {
		props["alternatives"] = map[string]any{"type": "array", "items": activitySchema(false)}
	} else {
		props["alternatives"] = map[string]any{"type": "array", "maxItems": 0}
	}
	return map[string]any{
		"type":       "object",
		"required":   []string{"title", "description", "start_time", "end_time", "category"},
		"properties": props,
	}
}

func recommendationsDefinition() Definition[[]models.AIRecommendation] {
	return Definition[[]models.AIRecommendation]{
		Name:    "recommendations",
		Kind:    KindAny,
		Prepare: unwrapRecommendations,
		Schema: map[string]any{
			"$schema":  draft07,
			"type":     "array",
			"minItems": 1,
			"maxItems": models.MaxRecommendations,
			"items": map[string]any{
				"type":     "object",
				"required": []string{"title", "description", "category", "rating", "price", "location", "tags"},
				"properties": map[string]any{
					"id":                  map[string]any{"type": "string"},
					"title":               map[string]any{"type": "string", "minLength": 1},
					"description":         map[string]any{"type": "string"},
					"category":            map[string]any{"type": "string", "minLength": 1},
					"rating":              map[string]any{"type": "number", "minimum": 0, "maximum": 5},
					"price":               map[string]any{"type": "number", "minimum": 0},
					"discount_percentage": map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 100},
					"location":            map[string]any{"type": "string"},
					"image_url":           map[string]any{"type": "string"},
					"tags":                map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
		},
		Check: func(items *[]models.AIRecommendation) error {
			return validation.ValidateRecommendations(*items)
		},
	}
}

// unwrapRecommendations accepts a bare array or {"recommendations": [...]} and keeps the first
// MaxRecommendations items.
func unwrapRecommendations(data []byte) ([]byte, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapper struct {
			Recommendations []json.RawMessage `json:"recommendations"`
		}
		if werr := json.Unmarshal(data, &wrapper); werr != nil || wrapper.Recommendations == nil {
			return nil, errors.New("expected an array or an object with a recommendations array")
		}
		items = wrapper.Recommendations
	}
	if len(items) > models.MaxRecommendations {
		items = items[:models.MaxRecommendations]
	}
	return json.Marshal(items)
}

func discountSummaryDefinition() Definition[models.DiscountSummary] {
	return Definition[models.DiscountSummary]{
		Name: "discount_summary",
		Kind: KindObject,
		Schema: map[string]any{
			"$schema":  draft07,
			"type":     "object",
			"required": []string{"headline"},
			"properties": map[string]any{
				"headline":   map[string]any{"type": "string", "minLength": 1},
				"highlights": map[string]any{"type": "array", "maxItems": 5, "items": map[string]any{"type": "string"}},
			},
		},
		Check: func(s *models.DiscountSummary) error {
			return validation.Validate.Struct(s)
		},
	}
}

func moodEnum() []string {
	vocab := models.MoodVocabulary()
	out := make([]string, 0, len(vocab)+1)
	for _, m := range vocab {
		out = append(out, string(m))
	}
	return append(out, string(models.MoodNeutral))
}
