package eodhd

import (
	"time"
)

// EODData is one daily bar.
type EODData struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is the /eod payload.
type EODResponse []EODData

// FundamentalsResponse is the subset of the /fundamentals payload used for
// research memos. Numeric fields are pointers so that JSON nulls stay absent.
type FundamentalsResponse struct {
	General        *GeneralInfo    `json:"General"`
	Highlights     *Highlights     `json:"Highlights"`
	Valuation      *Valuation      `json:"Valuation"`
	AnalystRatings *AnalystRatings `json:"AnalystRatings"`
}

// GeneralInfo identifies the company.
type GeneralInfo struct {
	Code         string `json:"Code"`
	Name         string `json:"Name"`
	Exchange     string `json:"Exchange"`
	CurrencyCode string `json:"CurrencyCode"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
}

// Highlights holds headline financial figures.
type Highlights struct {
	MarketCapitalization       *float64 `json:"MarketCapitalization"`
	EBITDA                     *float64 `json:"EBITDA"`
	PERatio                    *float64 `json:"PERatio"`
	PEGRatio                   *float64 `json:"PEGRatio"`
	WallStreetTargetPrice      *float64 `json:"WallStreetTargetPrice"`
	ProfitMargin               *float64 `json:"ProfitMargin"`
	OperatingMarginTTM         *float64 `json:"OperatingMarginTTM"`
	ReturnOnEquityTTM          *float64 `json:"ReturnOnEquityTTM"`
	RevenueTTM                 *float64 `json:"RevenueTTM"`
	GrossProfitTTM             *float64 `json:"GrossProfitTTM"`
	QuarterlyRevenueGrowthYOY  *float64 `json:"QuarterlyRevenueGrowthYOY"`
	QuarterlyEarningsGrowthYOY *float64 `json:"QuarterlyEarningsGrowthYOY"`
}

// Valuation holds valuation multiples.
type Valuation struct {
	TrailingPE            *float64 `json:"TrailingPE"`
	ForwardPE             *float64 `json:"ForwardPE"`
	PriceSalesTTM         *float64 `json:"PriceSalesTTM"`
	PriceBookMRQ          *float64 `json:"PriceBookMRQ"`
	EnterpriseValue       *float64 `json:"EnterpriseValue"`
	EnterpriseValueEbitda *float64 `json:"EnterpriseValueEbitda"`
}

// AnalystRatings is the consensus rating on a 1 (strong sell) to 5 (strong buy) scale.
type AnalystRatings struct {
	Rating      *float64 `json:"Rating"`
	TargetPrice *float64 `json:"TargetPrice"`
	StrongBuy   int      `json:"StrongBuy"`
	Buy         int      `json:"Buy"`
	Hold        int      `json:"Hold"`
	Sell        int      `json:"Sell"`
	StrongSell  int      `json:"StrongSell"`
}

// Opinions returns the number of analyst ratings.
func (a *AnalystRatings) Opinions() int {
	if a == nil {
		return 0
	}
	return a.StrongBuy + a.Buy + a.Hold + a.Sell + a.StrongSell
}
