package interfaces

import (
	"context"

	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/analyst/internal/models"
)

// MarketDataService provides daily price history and company fundamentals.
type MarketDataService interface {
	// FetchSeries returns daily bars in ascending date order. An empty
	// history is reported as an error wrapping indicators.ErrInsufficientData.
	FetchSeries(ctx context.Context, ticker common.Ticker) (models.Series, error)

	// FetchFundamentals returns grouped valuation, financial and analyst figures.
	FetchFundamentals(ctx context.Context, ticker common.Ticker) (models.Fundamentals, error)
}
