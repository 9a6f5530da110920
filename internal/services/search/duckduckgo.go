package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/analyst/internal/interfaces"
	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/arbor"
)

// DefaultDuckDuckGoURL is the JavaScript-free results endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo searches the DuckDuckGo HTML endpoint and scrapes the result list.
type DuckDuckGo struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     arbor.ILogger
}

var _ interfaces.SearchService = (*DuckDuckGo)(nil)

// NewDuckDuckGo creates a DuckDuckGo search client.
func NewDuckDuckGo(httpClient *http.Client, baseURL, userAgent string, logger arbor.ILogger) *DuckDuckGo {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultDuckDuckGoURL
	}
	return &DuckDuckGo{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Name identifies the provider.
func (d *DuckDuckGo) Name() string { return ProviderDuckDuckGo }

// Search fetches one results page and returns up to maxResults organic hits.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}

	reqURL, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search base URL: %w", err)
	}
	params := reqURL.Query()
	params.Set("q", query)
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := parseResults(doc, maxResults)

	d.logger.Debug().
		Str("provider", ProviderDuckDuckGo).
		Str("query", query).
		Int("results", len(results)).
		Msg("Web search completed")

	return results, nil
}

// parseResults extracts organic results, skipping ads and entries without a link.
func parseResults(doc *goquery.Document, maxResults int) []models.SearchResult {
	converter := md.NewConverter("", true, nil)
	results := []models.SearchResult{}

	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if maxResults > 0 && len(results) >= maxResults {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}

		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}

		snippet := ""
		if html, err := s.Find(".result__snippet").First().Html(); err == nil && html != "" {
			if converted, err := converter.ConvertString(html); err == nil {
				snippet = collapseSpace(converted)
			} else {
				snippet = collapseSpace(s.Find(".result__snippet").First().Text())
			}
		}

		results = append(results, models.SearchResult{
			Title:   collapseSpace(link.Text()),
			Snippet: snippet,
			URL:     resolveRedirect(href),
		})
		return true
	})

	return results
}

// resolveRedirect unwraps DuckDuckGo's "/l/?uddg=<target>" redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
