package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/metrics"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/parser"
	"go.uber.org/zap"
)

const discountInstruction = `Summarize the active discounts below for a Turkish user in a friendly tone.
Write in Turkish. Mention only the discounts listed.
Respond with only a JSON object: {"headline": "...", "highlights": ["...", "..."]} with at most 5 highlights.`

// Fixed headlines used when no summary can be generated
const (
	HeadlineStoreUnavailable = "Şu anda indirimlere ulaşamıyorum. Lütfen biraz sonra tekrar dene."
	HeadlineNoDiscounts      = "Şu an için aktif bir indirim bulamadım."
)

const maxHighlights = 5

// DiscountLister reads the Discount Store
type DiscountLister interface {
	ListActive(ctx context.Context, category *string, now time.Time) ([]models.Discount, error)
}

// DiscountResult pairs the active discounts with a summary that is always set.
type DiscountResult struct {
	Discounts []models.Discount
	Summary   models.DiscountSummary
	Source    Source
	Err       error
}

// DiscountResponder answers discount inquiries
type DiscountResponder struct {
	gen     ai.TextGenerator
	store   DiscountLister
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewDiscountResponder creates a discount responder.
func NewDiscountResponder(gen ai.TextGenerator, store DiscountLister, cfg Config, log *zap.Logger, m *metrics.Metrics) *DiscountResponder {
	return &DiscountResponder{
		gen:     gen,
		store:   store,
		cfg:     cfg.withDefaults(),
		logger:  logger.Component(log, "discounts"),
		metrics: m,
	}
}

// Respond lists discounts still valid now, optionally narrowed to category, and summarizes them.
func (r *DiscountResponder) Respond(ctx context.Context, category *string, mood models.Mood) DiscountResult {
	now := r.cfg.Now()

	storeCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	listed, err := r.store.ListActive(storeCtx, category, now)
	cancel()
	if err != nil {
		r.metrics.ObserveFallback("discounts", "store")
		r.logger.Error("discount_lookup_failed", zap.Error(err))
		return DiscountResult{
			Discounts: []models.Discount{},
			Summary:   models.DiscountSummary{Headline: HeadlineStoreUnavailable, Highlights: []string{}},
			Source:    SourceFallback,
			Err:       err,
		}
	}

	discounts := make([]models.Discount, 0, len(listed))
	for _, d := range listed {
		if d.IsActive(now) {
			discounts = append(discounts, d)
		}
	}
	if len(discounts) == 0 {
		return DiscountResult{
			Discounts: discounts,
			Summary:   models.DiscountSummary{Headline: HeadlineNoDiscounts, Highlights: []string{}},
			Source:    SourceGenerated,
		}
	}

	raw, err := r.gen.Complete(ctx, discountPrompt(discounts, mood),
		ai.WithOperation(ai.OpDiscountSummary),
		ai.WithSystem(discountInstruction),
		ai.WithJSONObject(),
		ai.WithMaxTokens(400),
	)
	if err == nil {
		res := parser.DiscountSummary.Parse(raw)
		if summary, ok := res.Value(); ok {
			if summary.Highlights == nil {
				summary.Highlights = []string{}
			}
			return DiscountResult{Discounts: discounts, Summary: summary, Source: SourceGenerated}
		}
		err = res.Err()
	}

	reason := fallbackReason(err)
	r.metrics.ObserveFallback("discount_summary", reason)
	r.logger.Warn("discount_summary_fallback", zap.String("reason", reason), zap.Error(err))
	return DiscountResult{Discounts: discounts, Summary: DefaultDiscountSummary(discounts), Source: SourceFallback, Err: err}
}

// DefaultDiscountSummary lists the best discounts without any generated text.
func DefaultDiscountSummary(discounts []models.Discount) models.DiscountSummary {
	if len(discounts) == 0 {
		return models.DiscountSummary{Headline: HeadlineNoDiscounts, Highlights: []string{}}
	}
	n := min(len(discounts), maxHighlights)
	highlights := make([]string, 0, n)
	for _, d := range discounts[:n] {
		highlights = append(highlights, fmt.Sprintf("%s: %s (%%%s indirim, %s tarihine kadar)",
			d.BusinessName, d.Title, formatPercent(d.Percentage), models.FormatDate(d.ValidUntil)))
	}
	return models.DiscountSummary{
		Headline:   fmt.Sprintf("Senin için %d aktif indirim buldum.", len(discounts)),
		Highlights: highlights,
	}
}

// Text renders a summary as the assistant's reply.
func (r DiscountResult) Text() string {
	lines := append([]string{r.Summary.Headline}, r.Summary.Highlights...)
	return strings.Join(lines, "\n")
}

func discountPrompt(discounts []models.Discount, mood models.Mood) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User mood: %s\nDiscounts:\n", mood)
	for _, d := range discounts {
		fmt.Fprintf(&b, "- %s | %s | %s | %%%s | until %s\n",
			d.BusinessName, d.Title, d.Category, formatPercent(d.Percentage), models.FormatDate(d.ValidUntil))
	}
	return b.String()
}

func formatPercent(p float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", p), "0"), ".")
}
