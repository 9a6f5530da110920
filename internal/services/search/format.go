package search

import (
	"fmt"
	"strings"

	"github.com/ternarybob/analyst/internal/models"
)

// FormatResults renders results as numbered Title/Snippet/URL blocks separated
// by "---" lines, the text handed to the news analyst prompt.
func FormatResults(query string, results []models.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %s", query)
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("%d. Title: %s\n   Snippet: %s\n   URL: %s", i+1, r.Title, r.Snippet, r.URL)
	}
	return strings.Join(blocks, "\n---\n")
}
