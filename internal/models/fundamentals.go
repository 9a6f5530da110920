package models

import (
	"fmt"
	"math"
)

// FundamentalValue is one named figure from a fundamentals lookup.
// Text is set for non-numeric values such as analyst recommendations.
type FundamentalValue struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value,omitempty"`
	Text  string   `json:"text,omitempty"`
	Unit  string   `json:"unit,omitempty"` // "", "%", "x", "ccy", "count"
}

// FundamentalGroup is a titled block of values (VALUATION, FINANCIALS, ...).
type FundamentalGroup struct {
	Title  string             `json:"title"`
	Values []FundamentalValue `json:"values"`
}

// Fundamentals is the ancillary lookup result for one ticker, in display order.
type Fundamentals struct {
	Ticker   string             `json:"ticker"`
	Name     string             `json:"name,omitempty"`
	Currency string             `json:"currency,omitempty"`
	Groups   []FundamentalGroup `json:"groups"`
}

// Float is a helper for building optional numeric values.
func Float(v float64) *float64 {
	return &v
}

// Display renders the value for a prompt, "N/A" when absent.
func (v FundamentalValue) Display() string {
	if v.Value == nil {
		if v.Text != "" {
			return v.Text
		}
		return "N/A"
	}
	switch v.Unit {
	case "%":
		return fmt.Sprintf("%.2f%%", *v.Value)
	case "ccy":
		return humanize(*v.Value)
	case "x":
		return fmt.Sprintf("%.2fx", *v.Value)
	case "count":
		return fmt.Sprintf("%.0f", *v.Value)
	default:
		return fmt.Sprintf("%.2f", *v.Value)
	}
}

// Group returns the group with the given title.
func (f Fundamentals) Group(title string) (FundamentalGroup, bool) {
	for _, g := range f.Groups {
		if g.Title == title {
			return g, true
		}
	}
	return FundamentalGroup{}, false
}

func humanize(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
