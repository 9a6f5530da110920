package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// ContentRequest is a provider-agnostic single-turn completion request
type ContentRequest struct {
	Model       string // may carry a "claude/" or "gemini/" prefix; empty uses the default provider
	System      string
	Prompt      string
	Temperature float32 // 0 uses the provider default
	MaxTokens   int     // 0 uses the provider default
}

// ContentResponse is a provider-agnostic completion
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Provider generates content for one AI backend. The model has been
// normalized and defaulted before Generate is called.
type Provider interface {
	Generate(ctx context.Context, model string, request *ContentRequest) (*ContentResponse, error)
	Type() ProviderType
}

// ProviderFactory resolves a model string to a provider and runs calls with
// rate-limit retries. Providers are created lazily and shared across stages.
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	logger       arbor.ILogger
	retry        RetryConfig

	mu           sync.Mutex
	providers    map[ProviderType]Provider
	geminiClient *genai.Client
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	logger arbor.ILogger,
) *ProviderFactory {
	return &ProviderFactory{
		geminiConfig: geminiConfig,
		claudeConfig: claudeConfig,
		llmConfig:    llmConfig,
		logger:       logger,
		retry:        NewRetryConfig(llmConfig.MaxRetries),
		providers:    make(map[ProviderType]Provider),
	}
}

// RegisterProvider installs a provider, replacing any lazily created one.
func (f *ProviderFactory) RegisterProvider(p Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[p.Type()] = p
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-20250514" -> Claude
// - "claude/claude-sonnet-4-20250514" -> Claude (with prefix)
// - "gemini-3-flash" -> Gemini
// - "gemini/gemini-3-flash" -> Gemini (with prefix)
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	model = strings.ToLower(strings.TrimSpace(model))

	switch {
	case model == "":
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	}

	if f.llmConfig.DefaultProvider == common.LLMProviderClaude {
		return ProviderClaude
	}
	return ProviderGemini
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	model = strings.TrimSpace(model)
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// DefaultModel returns the configured model for a provider
func (f *ProviderFactory) DefaultModel(provider ProviderType) string {
	if provider == ProviderClaude {
		return f.claudeConfig.Model
	}
	return f.geminiConfig.Model
}

// ResolveModel returns the provider and bare model name a request would use.
func (f *ProviderFactory) ResolveModel(model string) (ProviderType, string) {
	provider := f.DetectProvider(model)
	name := f.NormalizeModel(model)
	if name == "" {
		name = f.DefaultModel(provider)
	}
	return provider, name
}

// GeminiClient returns the shared Gemini client, creating it if necessary.
func (f *ProviderFactory) GeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.geminiClientLocked(ctx)
}

func (f *ProviderFactory) geminiClientLocked(ctx context.Context) (*genai.Client, error) {
	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	apiKey, err := common.ResolveAPIKey("gemini_api_key", f.geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// provider returns the provider for a type, creating it on first use.
func (f *ProviderFactory) provider(ctx context.Context, t ProviderType) (Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.providers[t]; ok {
		return p, nil
	}

	var p Provider
	switch t {
	case ProviderClaude:
		apiKey, err := common.ResolveAPIKey("anthropic_api_key", f.claudeConfig.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
		}
		p = newClaudeProvider(apiKey, f.claudeConfig)
	default:
		client, err := f.geminiClientLocked(ctx)
		if err != nil {
			return nil, err
		}
		p = newGeminiProvider(client, f.geminiConfig)
	}

	f.providers[t] = p
	return p, nil
}

// GenerateContent runs a request on the provider selected by its model,
// retrying rate-limited calls up to the configured limit.
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	providerType, model := f.ResolveModel(request.Model)

	p, err := f.provider(ctx, providerType)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().
		Str("provider", string(providerType)).
		Str("model", model).
		Int("prompt_len", len(request.Prompt)).
		Msg("Generating content with provider")

	var resp *ContentResponse
	var apiErr error
	for attempt := 0; ; attempt++ {
		resp, apiErr = p.Generate(ctx, model, request)
		if apiErr == nil {
			break
		}
		if attempt >= f.retry.MaxRetries || !IsRateLimitError(apiErr) {
			break
		}

		backoff := f.retry.Backoff(attempt, ExtractRetryDelay(apiErr))
		f.logger.Warn().
			Str("provider", string(providerType)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Rate limited, retrying provider call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("%s call failed: %w", providerType, apiErr)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, fmt.Errorf("%s model %s: %w", providerType, model, ErrEmptyResponse)
	}
	return resp, nil
}

// Close drops the cached providers and clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers = make(map[ProviderType]Provider)
	f.geminiClient = nil
	return nil
}
