package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/analyst/internal/interfaces"
	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/analyst/internal/services/llm"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiSearch answers queries with Gemini's Google Search grounding tool and
// returns the grounded summary followed by its cited sources.
type GeminiSearch struct {
	factory *llm.ProviderFactory
	model   string
	logger  arbor.ILogger
	timeout time.Duration
}

var _ interfaces.SearchService = (*GeminiSearch)(nil)

// NewGeminiSearch creates a grounded search client. An empty model uses the
// configured Gemini model.
func NewGeminiSearch(factory *llm.ProviderFactory, model string, logger arbor.ILogger) *GeminiSearch {
	return &GeminiSearch{
		factory: factory,
		model:   model,
		logger:  logger,
		timeout: 5 * time.Minute,
	}
}

// Name identifies the provider.
func (g *GeminiSearch) Name() string { return ProviderGemini }

// Search runs one grounded generation.
func (g *GeminiSearch) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	client, err := g.factory.GeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	model := g.model
	if model == "" {
		model = g.factory.DefaultModel(llm.ProviderGemini)
	}

	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	prompt := fmt.Sprintf(`You are a research assistant. Today's date is %s.
Search the web for the most recent news relevant to the query below.
Summarize the key facts in a few short paragraphs and cite your sources.

Query: %s`, time.Now().Format("January 2, 2006"), query)

	searchCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := client.Models.GenerateContent(searchCtx, model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		return nil, fmt.Errorf("grounded search failed: %w", err)
	}

	results := groundedResults(resp, maxResults)

	g.logger.Debug().
		Str("provider", ProviderGemini).
		Str("model", model).
		Str("query", query).
		Int("results", len(results)).
		Msg("Web search completed")

	return results, nil
}

// groundedResults turns a grounded response into search results: the summary
// first, then one entry per distinct web source, capped at maxResults.
func groundedResults(resp *genai.GenerateContentResponse, maxResults int) []models.SearchResult {
	results := []models.SearchResult{}
	if resp == nil || len(resp.Candidates) == 0 {
		return results
	}
	cand := resp.Candidates[0]

	var summary strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				summary.WriteString(part.Text)
			}
		}
	}
	if text := strings.TrimSpace(summary.String()); text != "" {
		results = append(results, models.SearchResult{Title: "Grounded summary", Snippet: text})
	}

	if gm := cand.GroundingMetadata; gm != nil {
		seen := map[string]bool{}
		for _, chunk := range gm.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
				continue
			}
			seen[chunk.Web.URI] = true
			results = append(results, models.SearchResult{
				Title: chunk.Web.Title,
				URL:   chunk.Web.URI,
			})
		}
	}

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}
