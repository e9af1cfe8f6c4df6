package ai

import (
	"context"
	"time"

	"github.com/benvon/smart-planner/internal/metrics"
)

// Instrument bounds every call on next with timeout and records its latency. The result also
// implements ChatCompleter when next does.
func Instrument(next TextGenerator, timeout time.Duration, m *metrics.Metrics) TextGenerator {
	base := &instrumented{next: next, timeout: timeout, metrics: m}
	if chat, ok := next.(ChatCompleter); ok {
		return &instrumentedChat{instrumented: base, chat: chat}
	}
	return base
}

type instrumented struct {
	next    TextGenerator
	timeout time.Duration
	metrics *metrics.Metrics
}

func (g *instrumented) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *instrumented) Complete(ctx context.Context, prompt string, opts ...CompletionOption) (string, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	start := time.Now()
	out, err := g.next.Complete(ctx, prompt, opts...)
	g.metrics.ObserveGeneration(ApplyOptions(opts).Operation, err, time.Since(start))
	return out, err
}

type instrumentedChat struct {
	*instrumented
	chat ChatCompleter
}

func (g *instrumentedChat) Chat(ctx context.Context, system string, messages []ChatMessage, opts ...CompletionOption) (string, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	start := time.Now()
	out, err := g.chat.Chat(ctx, system, messages, opts...)
	g.metrics.ObserveGeneration(ApplyOptions(opts).Operation, err, time.Since(start))
	return out, err
}
