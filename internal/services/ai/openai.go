package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/request"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is a transport ceiling; callers bound each call with their own deadline.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRetries keeps SDK-level retries inside the caller's generation timeout.
	DefaultMaxRetries = 1
)

var (
	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = errors.New("no choices in response")
	// ErrEmptyCompletion is returned when the model answered with only whitespace
	ErrEmptyCompletion = errors.New("empty completion")
)

// OpenAIProvider implements TextGenerator and ChatCompleter using the chat completions API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, baseURL, model string, log *zap.Logger, debugMode bool) *OpenAIProvider {
	return NewOpenAIProviderWithClient(apiKey, baseURL, model, &http.Client{Timeout: DefaultTimeout}, log, debugMode)
}

// NewOpenAIProviderWithClient lets tests point the SDK at an httptest server.
func NewOpenAIProviderWithClient(apiKey, baseURL, model string, httpClient *http.Client, log *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(DefaultMaxRetries),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger.Component(log, "openai"),
		debugMode: debugMode,
	}
}

// Complete sends a single-prompt completion.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, opts ...CompletionOption) (string, error) {
	o := ApplyOptions(opts)
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if o.System != "" {
		messages = append(messages, openai.SystemMessage(o.System))
	}
	messages = append(messages, openai.UserMessage(prompt))
	return p.send(ctx, o, messages, prompt)
}

// Chat sends role-tagged history after the system instruction.
func (p *OpenAIProvider) Chat(ctx context.Context, system string, history []ChatMessage, opts ...CompletionOption) (string, error) {
	o := ApplyOptions(opts)
	if o.Operation == "complete" {
		o.Operation = "chat"
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	var preview strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
		preview.WriteString(msg.Role + ": " + msg.Content + "\n")
	}
	return p.send(ctx, o, messages, preview.String())
}

func (p *OpenAIProvider) send(ctx context.Context, o CompletionOptions, messages []openai.ChatCompletionMessageParamUnion, promptForLog string) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if o.JSON {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if o.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(o.MaxTokens)
	}

	fields := p.logFields(ctx, o.Operation)
	if p.debugMode {
		p.logger.Debug("llm_api_request", append(fields,
			zap.Int("prompt_length", len(promptForLog)),
			zap.Int("message_count", len(messages)),
			zap.Bool("json_mode", o.JSON),
			zap.String("prompt_preview", logger.Preview(promptForLog, true)),
		)...)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		p.logger.Debug("llm_api_error", append(fields, zap.Error(err), zap.Duration("latency", latency))...)
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to %s: %w", o.Operation, apiErr)
		}
		return "", fmt.Errorf("failed to %s: %w", o.Operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesInResponse
	}

	content := resp.Choices[0].Message.Content
	if p.debugMode {
		p.logger.Debug("llm_api_response", append(fields,
			zap.Int("response_length", len(content)),
			zap.String("response_preview", logger.Preview(content, true)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)...)
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func (p *OpenAIProvider) logFields(ctx context.Context, operation string) []zap.Field {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("model", p.model),
		zap.String("request_id", request.RequestID(ctx)),
		zap.String("session_id", request.SessionID(ctx)),
	}
	if id, ok := request.UserID(ctx); ok {
		fields = append(fields, zap.String("user", logger.HashID(id.String())))
	}
	return fields
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry, log *zap.Logger, debugMode bool) {
	registry.Register("openai", func(cfg ProviderConfig) (TextGenerator, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, log, debugMode), nil
	})
}

// NewFromConfig resolves the configured provider, falling back to UnavailableProvider when no
// key is set so the engine still serves deterministic fallbacks.
func NewFromConfig(registry *ProviderRegistry, name string, cfg ProviderConfig, log *zap.Logger) TextGenerator {
	if cfg.APIKey == "" {
		logger.Component(log, "ai").Warn("ai_provider_unconfigured", zap.String("provider", name))
		return UnavailableProvider{}
	}
	gen, err := registry.GetProvider(name, cfg)
	if err != nil {
		logger.Component(log, "ai").Error("ai_provider_init_failed", zap.String("provider", name), zap.Error(err))
		return UnavailableProvider{}
	}
	return gen
}
