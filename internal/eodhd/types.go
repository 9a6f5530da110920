// Package eodhd is a small client for the EODHD market data REST API.
package eodhd

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingAPIKey is returned by every call when the client has no API token.
var ErrMissingAPIKey = errors.New("EODHD API key is not configured")

// QueryOption narrows an end-of-day query.
type QueryOption func(*queryParams)

type queryParams struct {
	From   time.Time
	To     time.Time
	Period string // d, w, m
	Order  string // a (asc), d (desc)
}

// WithDateRange limits bars to [from, to]. A zero bound is left open.
func WithDateRange(from, to time.Time) QueryOption {
	return func(p *queryParams) {
		p.From = from
		p.To = to
	}
}

// WithPeriod sets the bar period (d=daily, w=weekly, m=monthly).
func WithPeriod(period string) QueryOption {
	return func(p *queryParams) {
		p.Period = period
	}
}

// WithOrder sets the sort order (a=ascending, d=descending).
func WithOrder(order string) QueryOption {
	return func(p *queryParams) {
		p.Order = order
	}
}

// APIError is a non-200 response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// NotFound reports whether the symbol or endpoint does not exist.
func (e *APIError) NotFound() bool { return e.StatusCode == 404 }

// RateLimitError is returned when the local limiter gives up or the API answers 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("EODHD rate limit exceeded, retry after %v", e.RetryAfter)
}
