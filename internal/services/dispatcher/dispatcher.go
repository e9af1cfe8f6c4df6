// Package dispatcher runs one assistant turn: classify the message, route it to a responder and
// record both sides of the exchange in the conversation context.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-planner/internal/conversation"
	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/metrics"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/synthesis"
	"github.com/benvon/smart-planner/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrMissingUserID is the only error ProcessMessage returns.
var ErrMissingUserID = errors.New("user_id is required")

// ApologyText replaces the reply whenever a turn cannot be completed.
const ApologyText = "Üzgünüm, şu anda teknik bir sorun yaşıyorum. Lütfen biraz sonra tekrar deneyin."

// Defaults for Dependencies left unset
const (
	DefaultLockTimeout  = 45 * time.Second
	DefaultStoreTimeout = 3 * time.Second
)

// Action tells the client which structured panel to render
type Action string

const (
	ActionShowTimeline        Action = "show_timeline"
	ActionShowRecommendations Action = "show_recommendations"
	ActionShowDiscounts       Action = "show_discounts"
	ActionShowMoodSupport     Action = "show_mood_support"
)

// Request is one user utterance
type Request struct {
	UserID uuid.UUID
	Text   string
	// SessionID is optional; a new one is generated when empty.
	SessionID string
}

// Response is the assistant's answer to one Request
type Response struct {
	SessionID       string                    `json:"session_id"`
	ResponseText    string                    `json:"response_text"`
	Timeline        *models.DailyTimeline     `json:"timeline,omitempty"`
	Recommendations []models.AIRecommendation `json:"recommendations,omitempty"`
	Discounts       []models.Discount         `json:"discounts,omitempty"`
	DiscountSummary *models.DiscountSummary   `json:"discount_summary,omitempty"`
	Actions         []Action                  `json:"actions"`
	Intent          models.IntentResult       `json:"intent"`
	Mood            models.Mood               `json:"mood"`
}

// HasAction reports whether a is among the response actions.
func (r *Response) HasAction(a Action) bool {
	for _, got := range r.Actions {
		if got == a {
			return true
		}
	}
	return false
}

// Classifier infers intent and mood
type Classifier interface {
	Classify(ctx context.Context, text string) (models.IntentResult, models.Mood)
}

// TimelineSynthesizer builds daily plans
type TimelineSynthesizer interface {
	Synthesize(ctx context.Context, userID uuid.UUID, prefs models.UserPreferences, mood models.Mood, date time.Time) synthesis.TimelineResult
}

// RecommendationSynthesizer builds suggestion lists
type RecommendationSynthesizer interface {
	Synthesize(ctx context.Context, userID uuid.UUID, category string, mood models.Mood, prefs *models.UserPreferences) synthesis.RecommendationResult
}

// DiscountResponder answers discount inquiries
type DiscountResponder interface {
	Respond(ctx context.Context, category *string, mood models.Mood) synthesis.DiscountResult
}

// ChatResponder answers everything else
type ChatResponder interface {
	Respond(ctx context.Context, history []models.Message) (string, error)
}

// Dependencies wires a Dispatcher. Metrics and Tracer are optional.
type Dependencies struct {
	Store           conversation.Store
	Locker          conversation.Locker
	Classifier      Classifier
	Timeline        TimelineSynthesizer
	Recommendations RecommendationSynthesizer
	Discounts       DiscountResponder
	Chat            ChatResponder

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer

	LockTimeout  time.Duration
	StoreTimeout time.Duration
	// Now supplies the current time; timelines are generated for Now's calendar date.
	Now func() time.Time
}

// Dispatcher is the Response Dispatcher
type Dispatcher struct {
	deps   Dependencies
	logger *zap.Logger
}

// New creates a dispatcher.
func New(deps Dependencies) *Dispatcher {
	if deps.LockTimeout <= 0 {
		deps.LockTimeout = DefaultLockTimeout
	}
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = DefaultStoreTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.Tracer()
	}
	return &Dispatcher{deps: deps, logger: logger.Component(deps.Logger, "dispatcher")}
}

// ProcessMessage runs one turn. Apart from ErrMissingUserID it never returns an error: every
// failure inside the turn becomes ApologyText with no structured payload.
func (d *Dispatcher) ProcessMessage(ctx context.Context, req Request) (*Response, error) {
	if req.UserID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	start := time.Now()
	ctx, span := d.deps.Tracer.Start(ctx, "dispatcher.ProcessMessage",
		trace.WithAttributes(attribute.String("session.id", req.SessionID)),
	)

	resp, err := d.run(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "apology"
		d.logger.Error("dispatch_failed",
			zap.String("session_id", req.SessionID),
			zap.String("user_hash", logger.HashID(req.UserID.String())),
			zap.Error(err),
		)
		resp = apology(req.SessionID, resp)
	}

	span.SetAttributes(
		attribute.String("intent", string(resp.Intent.Type)),
		attribute.String("mood", string(resp.Mood)),
		attribute.String("outcome", outcome),
	)
	telemetry.EndSpan(span, err)
	d.deps.Metrics.ObserveDispatch(string(resp.Intent.Type), outcome, time.Since(start))

	d.logger.Info("dispatch_completed",
		zap.String("session_id", req.SessionID),
		zap.String("intent", string(resp.Intent.Type)),
		zap.String("mood", string(resp.Mood)),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// run holds the session lock for the whole turn. A partial response is returned alongside an
// error so the classified intent and mood survive into the apology.
func (d *Dispatcher) run(ctx context.Context, req Request) (resp *Response, err error) {
	resp = &Response{SessionID: req.SessionID, Intent: models.FallbackIntent(), Mood: models.MoodNeutral}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during dispatch: %v", r)
		}
	}()

	lockCtx, cancel := context.WithTimeout(ctx, d.deps.LockTimeout)
	unlock, err := d.deps.Locker.Lock(lockCtx, req.SessionID)
	cancel()
	if err != nil {
		return resp, err
	}
	defer unlock()

	userStored := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during dispatch: %v", r)
		}
		// The user message is already recorded; pair it with the apology.
		if err != nil && userStored {
			d.appendMessage(ctx, req.SessionID, models.RoleAssistant, ApologyText)
		}
	}()

	conv, err := d.getOrCreate(ctx, req.SessionID, req.UserID)
	if err != nil {
		return resp, err
	}
	userMsg, err := d.appendMessage(ctx, req.SessionID, models.RoleUser, req.Text)
	if err != nil {
		return resp, err
	}
	userStored = true
	conv.Messages = append(conv.Messages, userMsg)

	resp.Intent, resp.Mood = d.deps.Classifier.Classify(ctx, req.Text)
	if resp.Mood != models.MoodNeutral {
		if err := d.setMood(ctx, req.SessionID, resp.Mood); err != nil {
			return resp, err
		}
	}

	if err := d.route(ctx, req, conv, resp); err != nil {
		return resp, err
	}

	if _, err := d.appendMessage(ctx, req.SessionID, models.RoleAssistant, resp.ResponseText); err != nil {
		userStored = false
		return resp, err
	}
	return resp, nil
}

func (d *Dispatcher) route(ctx context.Context, req Request, conv *models.ConversationContext, resp *Response) error {
	prefs := conv.PreferencesOrDefault()
	resp.Actions = []Action{}

	switch resp.Intent.Type {
	case models.IntentTimelineRequest:
		res := d.deps.Timeline.Synthesize(ctx, req.UserID, prefs, resp.Mood, d.deps.Now())
		resp.Timeline = &res.Timeline
		resp.ResponseText = timelineText(res)
		resp.Actions = append(resp.Actions, ActionShowTimeline)

	case models.IntentRecommendationRequest:
		category := resp.Intent.CategoryOr(models.RecommendationCategoryGeneral)
		res := d.deps.Recommendations.Synthesize(ctx, req.UserID, category, resp.Mood, &prefs)
		resp.Recommendations = res.Items
		resp.ResponseText = recommendationText(len(res.Items))
		if len(res.Items) > 0 {
			resp.Actions = append(resp.Actions, ActionShowRecommendations)
		}

	case models.IntentDiscountInquiry:
		res := d.deps.Discounts.Respond(ctx, resp.Intent.Category, resp.Mood)
		resp.Discounts = res.Discounts
		resp.DiscountSummary = &res.Summary
		resp.ResponseText = res.Text()
		if len(res.Discounts) > 0 {
			resp.Actions = append(resp.Actions, ActionShowDiscounts)
		}

	case models.IntentMoodSupport:
		res := d.deps.Recommendations.Synthesize(ctx, req.UserID, models.RecommendationCategoryMoodSupport, resp.Mood, &prefs)
		resp.Recommendations = res.Items
		resp.ResponseText = synthesis.SupportLine(resp.Mood)
		resp.Actions = append(resp.Actions, ActionShowMoodSupport)
		if len(res.Items) > 0 {
			resp.Actions = append(resp.Actions, ActionShowRecommendations)
		}

	default:
		reply, err := d.deps.Chat.Respond(ctx, conv.LastMessages(synthesis.ChatHistoryWindow))
		if err != nil {
			return err
		}
		resp.ResponseText = reply
	}
	return nil
}

func (d *Dispatcher) getOrCreate(ctx context.Context, sessionID string, userID uuid.UUID) (*models.ConversationContext, error) {
	ctx, cancel := context.WithTimeout(ctx, d.deps.StoreTimeout)
	defer cancel()
	conv, err := d.deps.Store.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return conv, nil
}

func (d *Dispatcher) appendMessage(ctx context.Context, sessionID string, role models.MessageRole, text string) (models.Message, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.deps.StoreTimeout)
	defer cancel()
	msg := models.Message{Role: role, Text: text, Timestamp: d.deps.Now()}
	ok, err := d.deps.Store.AppendMessage(ctx, sessionID, role, text)
	if err != nil {
		return msg, fmt.Errorf("failed to append %s message: %w", role, err)
	}
	if !ok {
		d.logger.Warn("append_to_missing_session", zap.String("session_id", sessionID), zap.String("role", string(role)))
	}
	return msg, nil
}

func (d *Dispatcher) setMood(ctx context.Context, sessionID string, mood models.Mood) error {
	ctx, cancel := context.WithTimeout(ctx, d.deps.StoreTimeout)
	defer cancel()
	if _, err := d.deps.Store.SetMood(ctx, sessionID, mood); err != nil {
		return fmt.Errorf("failed to record mood: %w", err)
	}
	return nil
}

func apology(sessionID string, partial *Response) *Response {
	resp := &Response{
		SessionID:    sessionID,
		ResponseText: ApologyText,
		Actions:      []Action{},
		Intent:       models.FallbackIntent(),
		Mood:         models.MoodNeutral,
	}
	if partial != nil {
		resp.Intent = partial.Intent
		resp.Mood = partial.Mood
	}
	return resp
}

func timelineText(res synthesis.TimelineResult) string {
	t := res.Timeline
	if res.Source == synthesis.SourceFallback {
		return "Şu anda sana özel bir plan oluşturamadım, ama güne başlaman için basit bir program hazırladım."
	}
	currency := "TRY"
	for _, a := range t.Activities {
		if a.Budget != nil && a.Budget.Currency != "" {
			currency = a.Budget.Currency
			break
		}
	}
	text := fmt.Sprintf("Bugün için %d etkinlikten oluşan bir plan hazırladım. Tahmini bütçe: %.0f %s.", len(t.Activities), t.TotalBudget, currency)
	if t.EstimatedSavings > 0 {
		text += fmt.Sprintf(" İndirimlerle yaklaşık %.0f %s tasarruf edebilirsin.", t.EstimatedSavings, currency)
	}
	return text
}

func recommendationText(n int) string {
	if n == 0 {
		return "Şu anda sana uygun bir öneri bulamadım. Biraz sonra tekrar dener misin?"
	}
	return fmt.Sprintf("Senin için %d öneri hazırladım.", n)
}
