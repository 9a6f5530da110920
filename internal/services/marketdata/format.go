package marketdata

import (
	"fmt"
	"strings"

	"github.com/ternarybob/analyst/internal/models"
)

// Lookbacks in trading rows.
const (
	oneMonthRows  = 22
	sixMonthRows  = 126
	yearRows      = 252
	recentRows    = 5
	notAvailable  = "N/A"
	dateFormatDay = "2006-01-02"
)

// Performance derives the PRICE PERFORMANCE group from a series. Returns are
// measured against the close 22 and 126 rows back (or the first row when the
// window is shorter) and against the first row for YTD. The 52-week range
// covers the last 252 rows.
func Performance(series models.Series) models.FundamentalGroup {
	g := models.FundamentalGroup{Title: GroupPerformance}
	n := series.Len()
	if n == 0 {
		for _, name := range []string{"Current Price", "52 Week High", "52 Week Low", "1 Month Return", "6 Month Return", "YTD Return"} {
			g.Values = append(g.Values, models.FundamentalValue{Name: name})
		}
		return g
	}

	current := series.Last().Close
	high, low := series.Bars[n-1].High, series.Bars[n-1].Low
	for _, b := range series.Tail(yearRows) {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}

	g.Values = []models.FundamentalValue{
		{Name: "Current Price", Value: models.Float(current)},
		{Name: "52 Week High", Value: models.Float(high)},
		{Name: "52 Week Low", Value: models.Float(low)},
		{Name: "1 Month Return", Value: change(current, closeBack(series, oneMonthRows)), Unit: "%"},
		{Name: "6 Month Return", Value: change(current, closeBack(series, sixMonthRows)), Unit: "%"},
		{Name: "YTD Return", Value: change(current, series.Bars[0].Close), Unit: "%"},
	}
	return g
}

// closeBack returns the close `rows` rows before the end, or the first close
// when the series is not longer than that.
func closeBack(series models.Series, rows int) float64 {
	n := series.Len()
	if n > rows {
		return series.Bars[n-rows].Close
	}
	return series.Bars[0].Close
}

func change(current, base float64) *float64 {
	if base == 0 {
		return nil
	}
	return models.Float((current - base) / base * 100)
}

// FormatDataText renders the fundamentals and price summary handed to the
// fundamentals analyst prompt.
func FormatDataText(ticker string, f models.Fundamentals, series models.Series) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Ticker: %s\n", ticker)
	if f.Name != "" {
		fmt.Fprintf(&sb, "Company: %s\n", f.Name)
	}
	if f.Currency != "" {
		fmt.Fprintf(&sb, "Currency: %s\n", f.Currency)
	}

	groups := append(append([]models.FundamentalGroup(nil), f.Groups...), Performance(series))
	for _, g := range groups {
		fmt.Fprintf(&sb, "\n--- %s ---\n", g.Title)
		for _, v := range g.Values {
			fmt.Fprintf(&sb, "%s: %s\n", v.Name, v.Display())
		}
	}

	fmt.Fprintf(&sb, "\n--- RECENT PRICE DATA (Last %d Days) ---\n", recentRows)
	sb.WriteString(FormatRecentBars(series, recentRows))

	return sb.String()
}

// FormatRecentBars renders the last n OHLCV rows as a fixed-width table.
func FormatRecentBars(series models.Series, n int) string {
	if series.Len() == 0 {
		return notAvailable + "\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-10s %10s %10s %10s %10s %12s\n", "Date", "Open", "High", "Low", "Close", "Volume")
	for _, b := range series.Tail(n) {
		fmt.Fprintf(&sb, "%-10s %10.2f %10.2f %10.2f %10.2f %12d\n",
			b.Date.Format(dateFormatDay), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return sb.String()
}
