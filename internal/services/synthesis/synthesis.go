// Package synthesis turns generator output into validated domain objects, falling back to
// deterministic values whenever the generated answer cannot be trusted.
package synthesis

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/parser"
)

// Source tells callers whether a result came from the generator or from a fallback.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Config is shared by every synthesizer
type Config struct {
	// StoreTimeout bounds each store read or write.
	StoreTimeout time.Duration
	// Currency is applied to generated budgets that omit one.
	Currency string
	Now      func() time.Time
}

func (c Config) withDefaults() Config {
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 3 * time.Second
	}
	if c.Currency == "" {
		c.Currency = "TRY"
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// fallbackReason labels why a component fell back, for metrics.
func fallbackReason(err error) string {
	var failure *parser.Failure
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &failure):
		return string(failure.Reason)
	case ai.IsTimeout(err):
		return "timeout"
	case errors.Is(err, ai.ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "generator"
	}
}
