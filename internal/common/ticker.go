// Package common provides shared utilities across the application.
package common

import (
	"strings"
)

// Ticker represents a parsed exchange-qualified ticker.
// Format: EXCHANGE:CODE (e.g., "NASDAQ:AAPL", "ASX:BHP")
type Ticker struct {
	// Exchange is the exchange code (e.g., "NYSE", "NASDAQ", "ASX")
	Exchange string
	// Code is the security code (e.g., "AAPL")
	Code string
	// Raw is the original ticker string
	Raw string
}

// ExchangeToSuffix maps exchange codes to EODHD API suffixes.
var ExchangeToSuffix = map[string]string{
	"NYSE":   ".US",
	"NASDAQ": ".US",
	"AMEX":   ".US",
	"US":     ".US",
	"ASX":    ".AU",
	"LSE":    ".LSE",
	"TSX":    ".TO",
	"XETRA":  ".XETRA",
	"HKEX":   ".HK",
}

// DefaultExchange is the exchange used when parsing tickers without an exchange prefix.
// Overridden via [markets] default_exchange.
var DefaultExchange = "NASDAQ"

// SetDefaultExchange sets the default exchange for parsing tickers.
func SetDefaultExchange(exchange string) {
	if exchange != "" {
		DefaultExchange = strings.ToUpper(exchange)
	}
}

// ParseTicker parses an exchange-qualified ticker string.
// Supports formats:
//   - "NYSE:IBM" -> Exchange="NYSE", Code="IBM"
//   - "NYSE.IBM" -> Exchange="NYSE", Code="IBM" (only for known exchanges)
//   - "ibm"      -> Exchange=DefaultExchange, Code="IBM"
func ParseTicker(ticker string) Ticker {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return Ticker{}
	}

	if idx := strings.Index(ticker, ":"); idx > 0 {
		return Ticker{
			Exchange: strings.ToUpper(ticker[:idx]),
			Code:     strings.ToUpper(ticker[idx+1:]),
			Raw:      ticker,
		}
	}

	// Dotted codes like "BRK.B" stay intact unless the prefix is a known exchange
	if idx := strings.Index(ticker, "."); idx > 0 {
		possibleExchange := strings.ToUpper(ticker[:idx])
		if _, ok := ExchangeToSuffix[possibleExchange]; ok {
			return Ticker{
				Exchange: possibleExchange,
				Code:     strings.ToUpper(ticker[idx+1:]),
				Raw:      ticker,
			}
		}
	}

	return Ticker{
		Exchange: DefaultExchange,
		Code:     strings.ToUpper(ticker),
		Raw:      ticker,
	}
}

// String returns the full exchange-qualified ticker string.
func (t Ticker) String() string {
	if t.Exchange == "" || t.Code == "" {
		return t.Code
	}
	return t.Exchange + ":" + t.Code
}

// EODHDSymbol returns the EODHD API symbol format.
// Example: "NASDAQ:AAPL" -> "AAPL.US"
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	suffix, ok := ExchangeToSuffix[t.Exchange]
	if !ok {
		suffix = ".US"
	}
	return t.Code + suffix
}

// ParseTickers parses a list of ticker strings, dropping blanks and duplicates.
func ParseTickers(tickers []string) []Ticker {
	result := make([]Ticker, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		parsed := ParseTicker(t)
		if parsed.Code == "" || seen[parsed.String()] {
			continue
		}
		seen[parsed.String()] = true
		result = append(result, parsed)
	}
	return result
}
