package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/analyst/internal/common"
	"google.golang.org/genai"
)

// geminiProvider generates content with the Gemini API
type geminiProvider struct {
	client  *genai.Client
	config  *common.GeminiConfig
	timeout time.Duration
}

func newGeminiProvider(client *genai.Client, config *common.GeminiConfig) *geminiProvider {
	return &geminiProvider{
		client:  client,
		config:  config,
		timeout: common.ParseDurationOr(config.Timeout, 5*time.Minute),
	}
}

func (p *geminiProvider) Type() ProviderType { return ProviderGemini }

func (p *geminiProvider) Generate(ctx context.Context, model string, request *ContentRequest) (*ContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	temp := request.Temperature
	if temp <= 0 {
		temp = p.config.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if request.System != "" {
		config.SystemInstruction = genai.NewContentFromText(request.System, genai.RoleUser)
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(request.Prompt), config)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates: %w", ErrEmptyResponse)
	}

	return &ContentResponse{
		Text:     resp.Text(),
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}
