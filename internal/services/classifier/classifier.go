// Package classifier infers the routing intent and the mood of a single user message.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/parser"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const intentInstruction = `You route messages for a Turkish personal budget and activity planner.
Classify the user's message into exactly one intent:
- timeline_request: the user wants a plan or schedule for the day
- recommendation_request: the user wants suggestions for places, food or activities
- discount_inquiry: the user asks about discounts, deals or campaigns
- mood_support: the user mainly expresses feelings and needs encouragement
- general_chat: anything else

If the message names an activity category (for example "yemek", "spor", "kültür"), return it in lowercase as "category", otherwise null.
Respond with only a JSON object: {"type": "<intent>", "category": "<category or null>", "confidence": <0..1>}`

const moodInstruction = `Infer the emotional state of the user from their message.
Answer with one word from this list: %s.
Respond with only a JSON object: {"mood": "<word>"}`

// Classifier wraps the two classification round-trips.
type Classifier struct {
	gen    ai.TextGenerator
	logger *zap.Logger
}

// New creates a classifier. gen should already enforce the generation timeout.
func New(gen ai.TextGenerator, log *zap.Logger) *Classifier {
	return &Classifier{gen: gen, logger: logger.Component(log, "classifier")}
}

// ClassifyIntent never fails: empty input, transport errors, timeouts and unparseable answers
// all yield models.FallbackIntent().
func (c *Classifier) ClassifyIntent(ctx context.Context, text string) models.IntentResult {
	if strings.TrimSpace(text) == "" {
		return models.FallbackIntent()
	}

	raw, err := c.gen.Complete(ctx, userPrompt(text),
		ai.WithOperation(ai.OpClassifyIntent),
		ai.WithSystem(intentInstruction),
		ai.WithJSONObject(),
		ai.WithMaxTokens(100),
	)
	if err != nil {
		c.logger.Warn("intent_classification_failed", zap.Error(err))
		return models.FallbackIntent()
	}

	res := parser.Intent.Parse(raw)
	intent, ok := res.Value()
	if !ok {
		c.logger.Warn("intent_classification_rejected",
			zap.Error(res.Err()),
			zap.String("response_preview", logger.Sanitize(raw, 200)),
		)
		return models.FallbackIntent()
	}
	intent.Category = normalizeCategory(intent.Category)
	return intent
}

// ClassifyMood returns models.MoodNeutral whenever the mood cannot be inferred.
func (c *Classifier) ClassifyMood(ctx context.Context, text string) models.Mood {
	if strings.TrimSpace(text) == "" {
		return models.MoodNeutral
	}

	raw, err := c.gen.Complete(ctx, userPrompt(text),
		ai.WithOperation(ai.OpClassifyMood),
		ai.WithSystem(fmt.Sprintf(moodInstruction, vocabulary())),
		ai.WithJSONObject(),
		ai.WithMaxTokens(20),
	)
	if err != nil {
		c.logger.Warn("mood_classification_failed", zap.Error(err))
		return models.MoodNeutral
	}

	res := parser.ParseMood(raw)
	mood, ok := res.Value()
	if !ok {
		c.logger.Warn("mood_classification_rejected",
			zap.Error(res.Err()),
			zap.String("response_preview", logger.Sanitize(raw, 200)),
		)
		return models.MoodNeutral
	}
	return mood
}

// Classify runs both classifications concurrently and returns when both are done.
func (c *Classifier) Classify(ctx context.Context, text string) (models.IntentResult, models.Mood) {
	var (
		intent models.IntentResult
		mood   models.Mood
		g      errgroup.Group
	)
	g.Go(func() error {
		intent = c.ClassifyIntent(ctx, text)
		return nil
	})
	g.Go(func() error {
		mood = c.ClassifyMood(ctx, text)
		return nil
	})
	_ = g.Wait()
	return intent, mood
}

func userPrompt(text string) string {
	return "Message: " + text
}

func normalizeCategory(category *string) *string {
	if category == nil {
		return nil
	}
	c := strings.ToLower(strings.TrimSpace(*category))
	if c == "" || c == "null" {
		return nil
	}
	return &c
}

func vocabulary() string {
	vocab := models.MoodVocabulary()
	words := make([]string, len(vocab))
	for i, m := range vocab {
		words[i] = string(m)
	}
	return strings.Join(words, ", ")
}
