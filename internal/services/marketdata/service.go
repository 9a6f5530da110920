// Package marketdata adapts the EODHD client to the research pipeline's
// price history and fundamentals models.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/analyst/internal/eodhd"
	"github.com/ternarybob/analyst/internal/indicators"
	"github.com/ternarybob/analyst/internal/interfaces"
	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/arbor"
)

// Group titles, in display order.
const (
	GroupValuation   = "VALUATION"
	GroupFinancials  = "FINANCIALS"
	GroupEstimates   = "ANALYST ESTIMATES"
	GroupPerformance = "PRICE PERFORMANCE"
)

// DefaultHistoryDays is one calendar year of daily bars.
const DefaultHistoryDays = 365

// Service implements interfaces.MarketDataService on top of EODHD.
type Service struct {
	client      *eodhd.Client
	logger      arbor.ILogger
	historyDays int
	now         func() time.Time
}

var _ interfaces.MarketDataService = (*Service)(nil)

// NewService creates a market data service.
func NewService(client *eodhd.Client, historyDays int, logger arbor.ILogger) *Service {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return &Service{
		client:      client,
		logger:      logger,
		historyDays: historyDays,
		now:         time.Now,
	}
}

// FetchSeries returns up to historyDays of daily bars, oldest first.
func (s *Service) FetchSeries(ctx context.Context, ticker common.Ticker) (models.Series, error) {
	symbol := ticker.EODHDSymbol()
	to := s.now().UTC()
	from := to.AddDate(0, 0, -s.historyDays)

	bars, err := s.client.GetEOD(ctx, symbol, eodhd.WithDateRange(from, to))
	if err != nil {
		return models.Series{}, fmt.Errorf("failed to fetch price history for %s: %w", symbol, err)
	}

	series := models.Series{Ticker: ticker.String(), Bars: make([]models.Bar, 0, len(bars))}
	for _, b := range bars {
		series.Bars = append(series.Bars, models.Bar{
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	if series.Len() == 0 {
		return series, fmt.Errorf("no price data found for %s: %w", symbol, indicators.ErrInsufficientData)
	}

	s.logger.Debug().
		Str("symbol", symbol).
		Int("bars", series.Len()).
		Str("from", series.Bars[0].Date.Format("2006-01-02")).
		Str("to", series.Last().Date.Format("2006-01-02")).
		Msg("Fetched price history")

	return series, nil
}

// FetchFundamentals returns VALUATION, FINANCIALS and ANALYST ESTIMATES groups.
func (s *Service) FetchFundamentals(ctx context.Context, ticker common.Ticker) (models.Fundamentals, error) {
	symbol := ticker.EODHDSymbol()

	resp, err := s.client.GetFundamentals(ctx, symbol)
	if err != nil {
		return models.Fundamentals{}, fmt.Errorf("failed to fetch fundamentals for %s: %w", symbol, err)
	}

	f := mapFundamentals(ticker.String(), resp)

	s.logger.Debug().
		Str("symbol", symbol).
		Str("name", f.Name).
		Int("groups", len(f.Groups)).
		Msg("Fetched fundamentals")

	return f, nil
}

func mapFundamentals(ticker string, resp *eodhd.FundamentalsResponse) models.Fundamentals {
	f := models.Fundamentals{Ticker: ticker}
	if resp == nil {
		resp = &eodhd.FundamentalsResponse{}
	}
	if g := resp.General; g != nil {
		f.Name = g.Name
		f.Currency = g.CurrencyCode
	}

	h := resp.Highlights
	if h == nil {
		h = &eodhd.Highlights{}
	}
	v := resp.Valuation
	if v == nil {
		v = &eodhd.Valuation{}
	}
	a := resp.AnalystRatings

	f.Groups = append(f.Groups, models.FundamentalGroup{
		Title: GroupValuation,
		Values: []models.FundamentalValue{
			{Name: "Market Cap", Value: h.MarketCapitalization, Unit: "ccy"},
			{Name: "Enterprise Value", Value: v.EnterpriseValue, Unit: "ccy"},
			{Name: "Trailing P/E", Value: firstSet(v.TrailingPE, h.PERatio), Unit: "x"},
			{Name: "Forward P/E", Value: v.ForwardPE, Unit: "x"},
			{Name: "PEG Ratio", Value: h.PEGRatio},
			{Name: "Price/Book", Value: v.PriceBookMRQ, Unit: "x"},
			{Name: "Price/Sales", Value: v.PriceSalesTTM, Unit: "x"},
			{Name: "EV/EBITDA", Value: v.EnterpriseValueEbitda, Unit: "x"},
		},
	})

	f.Groups = append(f.Groups, models.FundamentalGroup{
		Title: GroupFinancials,
		Values: []models.FundamentalValue{
			{Name: "Revenue Growth (YoY)", Value: percent(h.QuarterlyRevenueGrowthYOY), Unit: "%"},
			{Name: "Earnings Growth (YoY)", Value: percent(h.QuarterlyEarningsGrowthYOY), Unit: "%"},
			{Name: "Gross Margins", Value: percent(ratio(h.GrossProfitTTM, h.RevenueTTM)), Unit: "%"},
			{Name: "Operating Margins", Value: percent(h.OperatingMarginTTM), Unit: "%"},
			{Name: "Profit Margin", Value: percent(h.ProfitMargin), Unit: "%"},
			{Name: "Return on Equity (ROE)", Value: percent(h.ReturnOnEquityTTM), Unit: "%"},
			{Name: "Revenue (TTM)", Value: h.RevenueTTM, Unit: "ccy"},
			{Name: "EBITDA", Value: h.EBITDA, Unit: "ccy"},
		},
	})

	estimates := []models.FundamentalValue{
		{Name: "Target Mean Price", Value: h.WallStreetTargetPrice},
	}
	if a != nil {
		if estimates[0].Value == nil {
			estimates[0].Value = a.TargetPrice
		}
		estimates = append(estimates,
			models.FundamentalValue{Name: "Consensus Rating (1-5)", Value: a.Rating},
			models.FundamentalValue{Name: "Recommendation", Text: recommendation(a.Rating)},
			models.FundamentalValue{Name: "Number of Analyst Opinions", Value: models.Float(float64(a.Opinions())), Unit: "count"},
		)
	}
	f.Groups = append(f.Groups, models.FundamentalGroup{Title: GroupEstimates, Values: estimates})

	return f
}

// recommendation maps the 1 (strong sell) to 5 (strong buy) consensus to a label.
func recommendation(rating *float64) string {
	if rating == nil || *rating <= 0 {
		return ""
	}
	switch r := *rating; {
	case r >= 4.5:
		return "strong buy"
	case r >= 3.5:
		return "buy"
	case r >= 2.5:
		return "hold"
	case r >= 1.5:
		return "sell"
	default:
		return "strong sell"
	}
}

func firstSet(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil && *v != 0 {
			return v
		}
	}
	return nil
}

func percent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(*v * 100)
}

func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return models.Float(*num / *den)
}
