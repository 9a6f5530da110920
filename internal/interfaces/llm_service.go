package interfaces

import (
	"context"
)

// LLMService generates text completions for the research stages.
//
// Implementations return an error when the provider fails or produces an
// empty response; callers never receive an empty string with a nil error.
type LLMService interface {
	// Generate sends a single user prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithSystem sends a user prompt with a system instruction.
	GenerateWithSystem(ctx context.Context, system, prompt string) (string, error)

	// Model returns the resolved model name used for completions.
	Model() string
}
