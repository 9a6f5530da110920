// Package search provides the web search collaborators used by the news stage.
package search

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/analyst/internal/interfaces"
	"github.com/ternarybob/analyst/internal/services/llm"
	"github.com/ternarybob/arbor"
)

// Provider names accepted by [search] provider.
const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderGemini     = "gemini"
)

// NewService selects the configured search provider. The factory is only
// needed for Gemini grounding.
func NewService(cfg *common.SearchConfig, factory *llm.ProviderFactory, logger arbor.ILogger) (interfaces.SearchService, error) {
	switch cfg.Provider {
	case "", ProviderDuckDuckGo:
		httpClient := &http.Client{Timeout: common.ParseDurationOr(cfg.Timeout, 20*time.Second)}
		return NewDuckDuckGo(httpClient, cfg.BaseURL, cfg.UserAgent, logger), nil
	case ProviderGemini:
		if factory == nil {
			return nil, fmt.Errorf("gemini search requires an LLM provider factory")
		}
		return NewGeminiSearch(factory, "", logger), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
}
