package interfaces

import (
	"context"

	"github.com/ternarybob/analyst/internal/models"
)

// SearchService runs web searches for news and sentiment.
type SearchService interface {
	// Search returns at most maxResults results. No results is an empty
	// slice with a nil error.
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)

	// Name identifies the provider in logs.
	Name() string
}
