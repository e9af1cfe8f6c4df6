package ai

import (
	"context"
	"errors"
)

// ErrProviderUnavailable is returned by every call on a provider that was never configured.
var ErrProviderUnavailable = errors.New("text generation provider is not configured")

// TextGenerator is the Generative Text Service: prompt in, completion out
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, opts ...CompletionOption) (string, error)
}

// ChatCompleter is an optional interface for generators that accept role-tagged history
type ChatCompleter interface {
	TextGenerator
	Chat(ctx context.Context, system string, messages []ChatMessage, opts ...CompletionOption) (string, error)
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Operation names used in logs and metrics
const (
	OpClassifyIntent  = "classify_intent"
	OpClassifyMood    = "classify_mood"
	OpTimeline        = "timeline"
	OpRecommendations = "recommendations"
	OpDiscountSummary = "discount_summary"
	OpChat            = "chat"
)

// CompletionOptions are the per-call knobs a generator honors
type CompletionOptions struct {
	// Operation names the call in logs and metrics (e.g. "classify_intent").
	Operation string
	System    string
	JSON      bool
	MaxTokens int64
}

// CompletionOption mutates CompletionOptions
type CompletionOption func(*CompletionOptions)

// WithOperation labels the call for logging.
func WithOperation(name string) CompletionOption {
	return func(o *CompletionOptions) { o.Operation = name }
}

// WithSystem sets the system instruction.
func WithSystem(system string) CompletionOption {
	return func(o *CompletionOptions) { o.System = system }
}

// WithJSONObject asks the backend to constrain output to a JSON object.
func WithJSONObject() CompletionOption {
	return func(o *CompletionOptions) { o.JSON = true }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int64) CompletionOption {
	return func(o *CompletionOptions) { o.MaxTokens = n }
}

// ApplyOptions folds opts over the defaults.
func ApplyOptions(opts []CompletionOption) CompletionOptions {
	o := CompletionOptions{Operation: "complete"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// UnavailableProvider stands in when no API key is configured, so every caller takes its
// fallback path instead of failing at startup.
type UnavailableProvider struct{}

// Complete always fails with ErrProviderUnavailable.
func (UnavailableProvider) Complete(context.Context, string, ...CompletionOption) (string, error) {
	return "", ErrProviderUnavailable
}

// ProviderConfig carries the settings a provider factory may need
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ProviderFactory creates a generator from configuration
type ProviderFactory func(cfg ProviderConfig) (TextGenerator, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider builds the named provider.
func (r *ProviderRegistry) GetProvider(name string, cfg ProviderConfig) (TextGenerator, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(cfg)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
