package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/arbor"
)

// fakeProvider returns queued responses and records requests
type fakeProvider struct {
	kind      ProviderType
	mu        sync.Mutex
	responses []fakeResponse
	calls     []fakeCall
}

type fakeResponse struct {
	text string
	err  error
}

type fakeCall struct {
	model   string
	request ContentRequest
}

func (p *fakeProvider) Type() ProviderType { return p.kind }

func (p *fakeProvider) Generate(ctx context.Context, model string, request *ContentRequest) (*ContentResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fakeCall{model: model, request: *request})
	if len(p.responses) == 0 {
		return nil, errors.New("no canned response")
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &ContentResponse{Text: r.text, Provider: p.kind, Model: model}, nil
}

func newTestFactory(defaultProvider common.LLMProvider, maxRetries int) *ProviderFactory {
	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = defaultProvider
	cfg.LLM.MaxRetries = maxRetries
	f := NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, arbor.NewLogger())
	f.retry.InitialBackoff = time.Millisecond
	f.retry.MaxBackoff = time.Millisecond
	return f
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name            string
		defaultProvider common.LLMProvider
		model           string
		want            ProviderType
	}{
		{"empty uses gemini default", common.LLMProviderGemini, "", ProviderGemini},
		{"empty uses claude default", common.LLMProviderClaude, "", ProviderClaude},
		{"claude model name", common.LLMProviderGemini, "claude-sonnet-4-20250514", ProviderClaude},
		{"claude prefix", common.LLMProviderGemini, "claude/claude-haiku", ProviderClaude},
		{"anthropic prefix", common.LLMProviderGemini, "Anthropic/claude-haiku", ProviderClaude},
		{"gemini model name", common.LLMProviderClaude, "gemini-3-flash", ProviderGemini},
		{"google prefix", common.LLMProviderClaude, "google/gemini-3-pro", ProviderGemini},
		{"unknown falls back", common.LLMProviderClaude, "my-model", ProviderClaude},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFactory(tt.defaultProvider, 0)
			assert.Equal(t, tt.want, f.DetectProvider(tt.model))
		})
	}
}

func TestResolveModel(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini, 0)

	p, m := f.ResolveModel("")
	assert.Equal(t, ProviderGemini, p)
	assert.Equal(t, "gemini-3-flash-preview", m)

	p, m = f.ResolveModel("claude/claude-sonnet-4-20250514")
	assert.Equal(t, ProviderClaude, p)
	assert.Equal(t, "claude-sonnet-4-20250514", m)

	assert.Equal(t, "gemini-3-pro", f.NormalizeModel("GEMINI/gemini-3-pro"))
}

func TestGenerateContent_RoutesByModel(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini, 0)
	gemini := &fakeProvider{kind: ProviderGemini, responses: []fakeResponse{{text: "from gemini"}}}
	claude := &fakeProvider{kind: ProviderClaude, responses: []fakeResponse{{text: "from claude"}}}
	f.RegisterProvider(gemini)
	f.RegisterProvider(claude)

	resp, err := f.GenerateContent(context.Background(), &ContentRequest{Model: "claude/claude-x", System: "sys", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "from claude", resp.Text)
	require.Len(t, claude.calls, 1)
	assert.Equal(t, "claude-x", claude.calls[0].model)
	assert.Equal(t, "sys", claude.calls[0].request.System)

	resp, err = f.GenerateContent(context.Background(), &ContentRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "from gemini", resp.Text)
	assert.Equal(t, "gemini-3-flash-preview", gemini.calls[0].model)
}

func TestGenerateContent_NoRetryByDefault(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini, 0)
	p := &fakeProvider{kind: ProviderGemini, responses: []fakeResponse{
		{err: errors.New("Error 429, RESOURCE_EXHAUSTED")},
		{text: "never reached"},
	}}
	f.RegisterProvider(p)

	_, err := f.GenerateContent(context.Background(), &ContentRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
	assert.Len(t, p.calls, 1)
}

func TestGenerateContent_RetriesRateLimits(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini, 2)
	p := &fakeProvider{kind: ProviderGemini, responses: []fakeResponse{
		{err: errors.New("Error 429: Please retry in 1s")},
		{err: errors.New("quota exceeded")},
		{text: "finally"},
	}}
	f.RegisterProvider(p)

	resp, err := f.GenerateContent(context.Background(), &ContentRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "finally", resp.Text)
	assert.Len(t, p.calls, 3)
}

func TestGenerateContent_DoesNotRetryOtherErrors(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini, 3)
	p := &fakeProvider{kind: ProviderGemini, responses: []fakeResponse{
		{err: errors.New("invalid argument")},
		{text: "never reached"},
	}}
	f.RegisterProvider(p)

	_, err := f.GenerateContent(context.Background(), &ContentRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Len(t, p.calls, 1)
}

func TestGenerateContent_EmptyResponse(t *testing.T) {
	f := newTestFactory(common.LLMProviderClaude, 0)
	f.RegisterProvider(&fakeProvider{kind: ProviderClaude, responses: []fakeResponse{{text: "  \n"}}})

	_, err := f.GenerateContent(context.Background(), &ContentRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateContent_MissingAPIKey(t *testing.T) {
	for _, env := range []string{"ANALYST_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(env, "")
	}
	f := newTestFactory(common.LLMProviderClaude, 0)

	_, err := f.GenerateContent(context.Background(), &ContentRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Anthropic API key")
}

func TestService(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini, 0)
	p := &fakeProvider{kind: ProviderGemini, responses: []fakeResponse{{text: "one"}, {text: "two"}}}
	f.RegisterProvider(p)
	s := NewService(f, "gemini/gemini-3-pro", arbor.NewLogger())

	assert.Equal(t, "gemini-3-pro", s.Model())

	out, err := s.Generate(context.Background(), "prompt one")
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	out, err = s.GenerateWithSystem(context.Background(), "be terse", "prompt two")
	require.NoError(t, err)
	assert.Equal(t, "two", out)

	require.Len(t, p.calls, 2)
	assert.Empty(t, p.calls[0].request.System)
	assert.Equal(t, "be terse", p.calls[1].request.System)
	assert.Equal(t, "prompt two", p.calls[1].request.Prompt)
}

func TestRetryConfig_Backoff(t *testing.T) {
	c := NewRetryConfig(3)
	assert.Equal(t, DefaultInitialBackoff, c.Backoff(0, 0))
	assert.Equal(t, time.Duration(float64(DefaultInitialBackoff)*1.5), c.Backoff(1, 0))
	assert.Equal(t, DefaultMaxBackoff, c.Backoff(5, 0))
	assert.Equal(t, 15*time.Second, c.Backoff(0, 10*time.Second))

	assert.Equal(t, 0, NewRetryConfig(-1).MaxRetries)
}

func TestExtractRetryDelay(t *testing.T) {
	assert.Equal(t, time.Duration(45.5*float64(time.Second)), ExtractRetryDelay(errors.New("Error 429 Please retry in 45.5s.")))
	assert.Equal(t, 30*time.Second, ExtractRetryDelay(errors.New("retryDelay: 30s")))
	assert.Zero(t, ExtractRetryDelay(errors.New("boom")))
	assert.Zero(t, ExtractRetryDelay(nil))
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(errors.New("status 429")))
	assert.True(t, IsRateLimitError(errors.New("RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New(`{"type":"rate_limit_error"}`)))
	assert.True(t, IsRateLimitError(errors.New("Quota exceeded")))
	assert.False(t, IsRateLimitError(errors.New("bad request")))
	assert.False(t, IsRateLimitError(nil))
}
