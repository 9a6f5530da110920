package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

const resultsPage = `<html><body>
<div class="results">
  <div class="result results_links result--ad">
    <a class="result__a" href="https://ads.example.com">Sponsored</a>
    <a class="result__snippet">Buy now</a>
  </div>
  <div class="result results_links">
    <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fnews.example.com%2Fxyz-earnings&amp;rut=abc">XYZ beats
      earnings estimates</a></h2>
    <a class="result__snippet" href="#"><b>XYZ</b> shares rose 5%   after results.</a>
  </div>
  <div class="result results_links">
    <h2><a class="result__a" href="https://blog.example.com/xyz">XYZ guidance</a></h2>
    <a class="result__snippet">Management raised guidance.</a>
  </div>
  <div class="result results_links">
    <h2><a class="result__a">No link</a></h2>
  </div>
  <div class="result results_links">
    <h2><a class="result__a" href="https://third.example.com">Third</a></h2>
    <a class="result__snippet">Third snippet.</a>
  </div>
</div>
</body></html>`

func newDDG(t *testing.T, handler http.HandlerFunc) *DuckDuckGo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDuckDuckGo(srv.Client(), srv.URL+"/html/", "analyst-test", arbor.NewLogger())
}

func TestDuckDuckGo_Search(t *testing.T) {
	var gotQuery, gotUA string
	d := newDDG(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(resultsPage))
	})

	results, err := d.Search(context.Background(), "XYZ news", 2)
	require.NoError(t, err)

	assert.Equal(t, "XYZ news", gotQuery)
	assert.Equal(t, "analyst-test", gotUA)
	require.Len(t, results, 2)

	assert.Equal(t, "XYZ beats earnings estimates", results[0].Title)
	assert.Equal(t, "https://news.example.com/xyz-earnings", results[0].URL)
	assert.Equal(t, "**XYZ** shares rose 5% after results.", results[0].Snippet)

	assert.Equal(t, "XYZ guidance", results[1].Title)
	assert.Equal(t, "https://blog.example.com/xyz", results[1].URL)
	assert.Equal(t, ProviderDuckDuckGo, d.Name())
}

func TestDuckDuckGo_SkipsAdsAndLinklessResults(t *testing.T) {
	d := newDDG(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultsPage))
	})

	results, err := d.Search(context.Background(), "XYZ", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NotEqual(t, "Sponsored", r.Title)
		assert.NotEqual(t, "No link", r.Title)
	}
}

func TestDuckDuckGo_NoResults(t *testing.T) {
	d := newDDG(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="no-results">No results.</div></body></html>`))
	})

	results, err := d.Search(context.Background(), "zzzz", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestDuckDuckGo_Errors(t *testing.T) {
	d := newDDG(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("anomaly"))
	})

	_, err := d.Search(context.Background(), "XYZ", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 202")

	_, err = d.Search(context.Background(), "  ", 5)
	assert.Error(t, err)
}

func TestResolveRedirect(t *testing.T) {
	assert.Equal(t, "https://a.example.com/x?y=1",
		resolveRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example.com%2Fx%3Fy%3D1&rut=z"))
	assert.Equal(t, "https://b.example.com", resolveRedirect("https://b.example.com"))
	assert.Equal(t, "https://c.example.com/p", resolveRedirect("//c.example.com/p"))
}

func TestFormatResults(t *testing.T) {
	assert.Equal(t, "No results found for query: XYZ", FormatResults("XYZ", nil))

	out := FormatResults("XYZ", []models.SearchResult{
		{Title: "A", Snippet: "first", URL: "https://a"},
		{Title: "B", Snippet: "second", URL: "https://b"},
	})
	assert.Equal(t,
		"1. Title: A\n   Snippet: first\n   URL: https://a\n---\n2. Title: B\n   Snippet: second\n   URL: https://b",
		out)
}

func TestGroundedResults(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "XYZ rallied "}, {Text: "on earnings."}}},
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{URI: "https://a", Title: "Source A"}},
					{Web: &genai.GroundingChunkWeb{URI: "https://a", Title: "Source A again"}},
					{Web: &genai.GroundingChunkWeb{URI: "https://b", Title: "Source B"}},
					{},
				},
			},
		}},
	}

	results := groundedResults(resp, 5)
	require.Len(t, results, 3)
	assert.Equal(t, "XYZ rallied on earnings.", results[0].Snippet)
	assert.Equal(t, "https://a", results[1].URL)
	assert.Equal(t, "Source B", results[2].Title)

	assert.Len(t, groundedResults(resp, 2), 2)
	assert.Empty(t, groundedResults(nil, 5))
}

func TestNewService(t *testing.T) {
	cfg := common.NewDefaultConfig()

	s, err := NewService(&cfg.Search, nil, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, ProviderDuckDuckGo, s.Name())

	cfg.Search.Provider = ProviderGemini
	_, err = NewService(&cfg.Search, nil, arbor.NewLogger())
	assert.Error(t, err)

	cfg.Search.Provider = "bing"
	_, err = NewService(&cfg.Search, nil, arbor.NewLogger())
	assert.Error(t, err)
}
