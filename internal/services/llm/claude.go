package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/analyst/internal/common"
)

// claudeProvider generates content with the Anthropic Messages API
type claudeProvider struct {
	client  anthropic.Client
	config  *common.ClaudeConfig
	timeout time.Duration
}

func newClaudeProvider(apiKey string, config *common.ClaudeConfig) *claudeProvider {
	return &claudeProvider{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		config:  config,
		timeout: common.ParseDurationOr(config.Timeout, 5*time.Minute),
	}
}

func (p *claudeProvider) Type() ProviderType { return ProviderClaude }

func (p *claudeProvider) Generate(ctx context.Context, model string, request *ContentRequest) (*ContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Prompt)),
		},
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = p.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if request.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: request.System}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    model,
	}, nil
}
