package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/analyst/internal/agents"
	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/analyst/internal/pipeline"
)

type stubLLM struct{}

func (stubLLM) Model() string { return "stub" }

func (s stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return s.GenerateWithSystem(ctx, "", prompt)
}

func (stubLLM) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	if strings.Contains(system, "Chief Investment Strategist") {
		return "RISK ASSESSMENT: volatile\nSTRATEGY: hold", nil
	}
	return "analysis", nil
}

type stubMarket struct{ bars int }

func (m stubMarket) FetchSeries(ctx context.Context, t common.Ticker) (models.Series, error) {
	s := models.Series{Ticker: t.EODHDSymbol()}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < m.bars; i++ {
		c := 50 + float64(i%17)
		s.Bars = append(s.Bars, models.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000})
	}
	return s, nil
}

func (stubMarket) FetchFundamentals(ctx context.Context, t common.Ticker) (models.Fundamentals, error) {
	return models.Fundamentals{Ticker: t.String(), Name: "Stub Inc"}, nil
}

type stubSearch struct{ err error }

func (stubSearch) Name() string { return "stub" }

func (s stubSearch) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.SearchResult{{Title: "t", Snippet: "s", URL: "https://x"}}, nil
}

func newTestApp(t *testing.T, cfg *common.Config, search stubSearch) *App {
	t.Helper()
	if cfg == nil {
		cfg = common.NewDefaultConfig()
	}
	a, err := New(cfg, arbor.NewLogger(),
		WithLLMService(stubLLM{}),
		WithMarketDataService(stubMarket{bars: 60}),
		WithSearchService(search),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRun(t *testing.T) {
	a := newTestApp(t, nil, stubSearch{})

	result, memo, err := a.Run(context.Background(), RunRequest{Query: "Should I hold?", Tickers: []string{"xyz"}})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, memo)

	assert.True(t, result.Completed())
	assert.Equal(t, result.RunID, memo.RunID)
	assert.Contains(t, memo.Markdown, "**Run:** `"+result.RunID+"`")
	assert.Equal(t, []string{"NASDAQ:XYZ"}, memo.Tickers)
	require.Len(t, memo.Sections, len(agents.SectionTitles))
	assert.Equal(t, "volatile", memo.Sections[4].Body)
}

func TestRun_GraphIsReusedAcrossRuns(t *testing.T) {
	a := newTestApp(t, nil, stubSearch{})

	r1, _, err := a.Run(context.Background(), RunRequest{Query: "q1", Tickers: []string{"AAA"}})
	require.NoError(t, err)
	r2, _, err := a.Run(context.Background(), RunRequest{Query: "q2", Tickers: []string{"BBB"}})
	require.NoError(t, err)

	assert.NotEqual(t, r1.RunID, r2.RunID)
	q1, _ := pipeline.Lookup[string](r1.State, agents.FieldQuery)
	q2, _ := pipeline.Lookup[string](r2.State, agents.FieldQuery)
	assert.Equal(t, "q1", q1)
	assert.Equal(t, "q2", q2)
}

func TestRun_DegradedNews(t *testing.T) {
	a := newTestApp(t, nil, stubSearch{err: errors.New("blocked")})

	result, memo, err := a.Run(context.Background(), RunRequest{Query: "q", Tickers: []string{"XYZ"}})
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.True(t, memo.Sections[3].Unavailable)
	assert.Equal(t, agents.SectionNews, memo.Sections[3].Title)
}

func TestRun_RejectsInvalidRequests(t *testing.T) {
	a := newTestApp(t, nil, stubSearch{})

	tests := []struct {
		name string
		req  RunRequest
	}{
		{"empty query", RunRequest{Tickers: []string{"XYZ"}}},
		{"no tickers", RunRequest{Query: "q"}},
		{"blank ticker", RunRequest{Query: "q", Tickers: []string{""}}},
		{"whitespace ticker", RunRequest{Query: "q", Tickers: []string{"  "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, memo, err := a.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid run request")
			assert.Nil(t, result)
			assert.Nil(t, memo)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	a := newTestApp(t, nil, stubSearch{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, memo, err := a.Run(ctx, RunRequest{Query: "q", Tickers: []string{"XYZ"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, memo)
}

func TestExport(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	cfg.Output.Formats = []string{"md", "html"}
	a := newTestApp(t, cfg, stubSearch{})

	_, memo, err := a.Run(context.Background(), RunRequest{Query: "q", Tickers: []string{"XYZ"}})
	require.NoError(t, err)

	paths, err := a.Export(memo)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}

	cfg.Output.Dir = ""
	paths, err = a.Export(memo)
	assert.NoError(t, err)
	assert.Empty(t, paths)
}

func TestNew_DefaultCollaborators(t *testing.T) {
	t.Setenv("ANALYST_EODHD_API_KEY", "")
	t.Setenv("EODHD_API_KEY", "")

	a, err := New(common.NewDefaultConfig(), arbor.NewLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "duckduckgo", a.SearchService.Name())
	assert.Equal(t, "gemini-3-flash-preview", a.LLMService.Model())
	assert.Equal(t, agents.StageCompile, a.Graph.Terminal())
}

func TestNew_UnknownSearchProvider(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Search.Provider = "bing"

	_, err := New(cfg, arbor.NewLogger(), WithLLMService(stubLLM{}), WithMarketDataService(stubMarket{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown search provider")
}
