package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/metrics"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/parser"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const recommendationMaxTokens = 1500

const recommendationInstruction = `You recommend places and activities to users of a Turkish budget planner.
Write titles and descriptions in Turkish and keep prices in the user's budget.
Respond with only a JSON array of exactly %d objects:
[{"title": "...", "description": "...", "category": "...", "rating": 0-5, "price": 0,
  "discount_percentage": 1-100 or omitted, "location": "...", "image_url": "https://..." or omitted, "tags": ["..."]}]`

// PreferenceSource supplies preferences when the caller has no snapshot
type PreferenceSource interface {
	Get(ctx context.Context, userID uuid.UUID) models.UserPreferences
}

// RecommendationResult carries between 0 and MaxRecommendations validated items.
type RecommendationResult struct {
	// Items is never nil; an empty list means nothing is available right now.
	Items  []models.AIRecommendation
	Source Source
	Err    error
}

// RecommendationSynthesizer builds ranked suggestion lists
type RecommendationSynthesizer struct {
	gen     ai.TextGenerator
	prefs   PreferenceSource
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRecommendationSynthesizer creates a recommendation synthesizer.
func NewRecommendationSynthesizer(gen ai.TextGenerator, prefs PreferenceSource, log *zap.Logger, m *metrics.Metrics) *RecommendationSynthesizer {
	return &RecommendationSynthesizer{
		gen:     gen,
		prefs:   prefs,
		logger:  logger.Component(log, "recommendations"),
		metrics: m,
	}
}

// Synthesize asks for MaxRecommendations items for category. prefs may be nil, in which case
// they are read from the preference source.
func (s *RecommendationSynthesizer) Synthesize(ctx context.Context, userID uuid.UUID, category string, mood models.Mood, prefs *models.UserPreferences) RecommendationResult {
	if strings.TrimSpace(category) == "" {
		category = models.RecommendationCategoryGeneral
	}
	p := s.preferences(ctx, userID, prefs)

	raw, err := s.gen.Complete(ctx, recommendationPrompt(p, category, mood),
		ai.WithOperation(ai.OpRecommendations),
		ai.WithSystem(fmt.Sprintf(recommendationInstruction, models.MaxRecommendations)),
		ai.WithMaxTokens(recommendationMaxTokens),
	)
	if err != nil {
		return s.fallback(category, err)
	}

	res := parser.Recommendations.Parse(raw)
	items, ok := res.Value()
	if !ok {
		s.logger.Debug("recommendations_response_rejected", zap.String("response_preview", logger.Preview(raw, true)))
		return s.fallback(category, res.Err())
	}

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
	}
	s.logger.Info("recommendations_generated", zap.String("category", category), zap.Int("count", len(items)))
	return RecommendationResult{Items: items, Source: SourceGenerated}
}

func (s *RecommendationSynthesizer) preferences(ctx context.Context, userID uuid.UUID, prefs *models.UserPreferences) models.UserPreferences {
	if prefs != nil {
		return *prefs
	}
	if s.prefs == nil {
		return models.DefaultPreferences(userID)
	}
	return s.prefs.Get(ctx, userID)
}

func (s *RecommendationSynthesizer) fallback(category string, err error) RecommendationResult {
	reason := fallbackReason(err)
	s.metrics.ObserveFallback("recommendations", reason)
	s.logger.Warn("recommendations_fallback",
		zap.String("category", category),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return RecommendationResult{Items: []models.AIRecommendation{}, Source: SourceFallback, Err: err}
}

func recommendationPrompt(prefs models.UserPreferences, category string, mood models.Mood) string {
	var b strings.Builder
	if category == models.RecommendationCategoryMoodSupport {
		fmt.Fprintf(&b, "Category: activities that help someone who feels %s\n", mood)
	} else {
		fmt.Fprintf(&b, "Category: %s\n", category)
	}
	fmt.Fprintf(&b, "Current mood: %s\n", mood)
	fmt.Fprintf(&b, "Budget: %.0f-%.0f\n", prefs.BudgetRange.Min, prefs.BudgetRange.Max)
	fmt.Fprintf(&b, "Interests: %s\n", joinOrNone(prefs.Interests))
	fmt.Fprintf(&b, "Dietary restrictions: %s\n", joinOrNone(prefs.DietaryRestrictions))
	fmt.Fprintf(&b, "Fitness level: %s\n", prefs.FitnessLevel)
	fmt.Fprintf(&b, "Social preference: %s\n", prefs.SocialPreference)
	if prefs.Location.City != "" {
		fmt.Fprintf(&b, "City: %s\n", prefs.Location.City)
	}
	return b.String()
}
