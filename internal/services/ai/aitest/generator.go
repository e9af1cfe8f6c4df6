// Package aitest provides scripted text generators for tests.
package aitest

import (
	"context"
	"sync"

	"github.com/benvon/smart-planner/internal/services/ai"
)

// Response is one scripted completion.
type Response struct {
	Text string
	Err  error
}

// Call records one request a Generator received.
type Call struct {
	Prompt  string
	Options ai.CompletionOptions
}

// Generator is a function-field ai.TextGenerator. When CompleteFunc is nil it answers from
// Responses keyed by operation name and fails with ai.ErrProviderUnavailable otherwise.
type Generator struct {
	CompleteFunc func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error)
	Responses    map[string]Response

	mu    sync.Mutex
	calls []Call
}

// ByOperation builds a Generator answering per operation.
func ByOperation(responses map[string]Response) *Generator {
	return &Generator{Responses: responses}
}

func (g *Generator) Complete(ctx context.Context, prompt string, opts ...ai.CompletionOption) (string, error) {
	o := ai.ApplyOptions(opts)
	g.mu.Lock()
	g.calls = append(g.calls, Call{Prompt: prompt, Options: o})
	g.mu.Unlock()

	if g.CompleteFunc != nil {
		return g.CompleteFunc(ctx, prompt, o)
	}
	if r, ok := g.Responses[o.Operation]; ok {
		return r.Text, r.Err
	}
	return "", ai.ErrProviderUnavailable
}

// Calls returns a copy of every recorded call.
func (g *Generator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CallsFor returns the recorded calls for one operation.
func (g *Generator) CallsFor(operation string) []Call {
	var out []Call
	for _, c := range g.Calls() {
		if c.Options.Operation == operation {
			out = append(out, c)
		}
	}
	return out
}

// ChatGenerator adds role-tagged chat to Generator.
type ChatGenerator struct {
	*Generator
	ChatFunc func(ctx context.Context, system string, messages []ai.ChatMessage) (string, error)
}

func (g *ChatGenerator) Chat(ctx context.Context, system string, messages []ai.ChatMessage, opts ...ai.CompletionOption) (string, error) {
	o := ai.ApplyOptions(opts)
	g.mu.Lock()
	g.calls = append(g.calls, Call{Prompt: system, Options: o})
	g.mu.Unlock()
	return g.ChatFunc(ctx, system, messages)
}

var (
	_ ai.TextGenerator = (*Generator)(nil)
	_ ai.ChatCompleter = (*ChatGenerator)(nil)
)
