package llm

import (
	"context"
	"time"

	"github.com/ternarybob/analyst/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Service implements interfaces.LLMService over a ProviderFactory with a fixed model.
type Service struct {
	factory *ProviderFactory
	model   string
	logger  arbor.ILogger
}

var _ interfaces.LLMService = (*Service)(nil)

// NewService creates an LLM service. An empty model uses the default provider's model.
func NewService(factory *ProviderFactory, model string, logger arbor.ILogger) *Service {
	return &Service{factory: factory, model: model, logger: logger}
}

// Model returns the resolved model name.
func (s *Service) Model() string {
	_, model := s.factory.ResolveModel(s.model)
	return model
}

// Generate sends a single prompt.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	return s.GenerateWithSystem(ctx, "", prompt)
}

// GenerateWithSystem sends a prompt with a system instruction.
func (s *Service) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	started := time.Now()
	resp, err := s.factory.GenerateContent(ctx, &ContentRequest{
		Model:  s.model,
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("model", s.Model()).
			Dur("elapsed", time.Since(started)).
			Msg("LLM call failed")
		return "", err
	}

	s.logger.Debug().
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Int("response_len", len(resp.Text)).
		Dur("elapsed", time.Since(started)).
		Msg("LLM call completed")

	return resp.Text, nil
}
