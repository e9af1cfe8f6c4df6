package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/smart-planner/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockGenerator struct {
	completeFunc func(ctx context.Context, prompt string, opts ...CompletionOption) (string, error)
}

func (m *mockGenerator) Complete(ctx context.Context, prompt string, opts ...CompletionOption) (string, error) {
	return m.completeFunc(ctx, prompt, opts...)
}

type mockChat struct {
	mockGenerator
	chatFunc func(ctx context.Context, system string, messages []ChatMessage, opts ...CompletionOption) (string, error)
}

func (m *mockChat) Chat(ctx context.Context, system string, messages []ChatMessage, opts ...CompletionOption) (string, error) {
	return m.chatFunc(ctx, system, messages, opts...)
}

func TestInstrumentBoundsCalls(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	gen := Instrument(&mockGenerator{
		completeFunc: func(ctx context.Context, _ string, _ ...CompletionOption) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}, 20*time.Millisecond, m)

	start := time.Now()
	_, err := gen.Complete(context.Background(), "slow", WithOperation("timeline"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call was not bounded, took %v", elapsed)
	}
	if got := testutil.CollectAndCount(m.GenerationDuration); got != 1 {
		t.Errorf("expected one observed series, got %d", got)
	}
}

func TestInstrumentPreservesChat(t *testing.T) {
	t.Parallel()

	plain := Instrument(&mockGenerator{}, time.Second, nil)
	if _, ok := plain.(ChatCompleter); ok {
		t.Error("plain generator must not gain Chat")
	}

	chat := Instrument(&mockChat{
		chatFunc: func(ctx context.Context, system string, messages []ChatMessage, _ ...CompletionOption) (string, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("chat call has no deadline")
			}
			return system + ":" + messages[0].Content, nil
		},
	}, time.Second, nil)

	cc, ok := chat.(ChatCompleter)
	if !ok {
		t.Fatal("chat generator lost Chat")
	}
	out, err := cc.Chat(context.Background(), "sys", []ChatMessage{{Role: "user", Content: "merhaba"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "sys:merhaba" {
		t.Errorf("unexpected output %q", out)
	}
}
