package eodhd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL+"/"), WithLogger(arbor.NewLogger()), WithRateLimit(100))
}

func TestGetEOD(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2024-01-02","open":10,"high":11,"low":9.5,"close":10.5,"adjusted_close":10.4,"volume":1000},
			{"date":"2024-01-03","open":10.5,"high":12,"low":10,"close":11.5,"adjusted_close":11.4,"volume":1500}
		]`))
	})

	from := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	bars, err := c.GetEOD(context.Background(), "XYZ.US", WithDateRange(from, to))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "/eod/XYZ.US", gotPath)
	assert.Equal(t, "test-key", gotQuery["api_token"])
	assert.Equal(t, "json", gotQuery["fmt"])
	assert.Equal(t, "2023-01-03", gotQuery["from"])
	assert.Equal(t, "2024-01-03", gotQuery["to"])
	assert.Equal(t, "d", gotQuery["period"])
	assert.Equal(t, "a", gotQuery["order"])

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 11.5, bars[1].Close)
	assert.Equal(t, int64(1500), bars[1].Volume)
}

func TestGetEOD_InvalidDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"date":"not-a-date","close":1}]`))
	})

	_, err := c.GetEOD(context.Background(), "XYZ.US")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestGetFundamentals_NullsStayAbsent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fundamentals/XYZ.US", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"General": {"Code":"XYZ","Name":"XYZ Corp","CurrencyCode":"USD"},
			"Highlights": {"MarketCapitalization": 2500000000, "PEGRatio": null, "ProfitMargin": 0.21},
			"Valuation": {"TrailingPE": 18.5, "ForwardPE": null},
			"AnalystRatings": {"Rating": 4.1, "TargetPrice": 120, "StrongBuy": 3, "Buy": 5, "Hold": 2, "Sell": 0, "StrongSell": 1}
		}`))
	})

	f, err := c.GetFundamentals(context.Background(), "XYZ.US")
	require.NoError(t, err)

	require.NotNil(t, f.General)
	assert.Equal(t, "XYZ Corp", f.General.Name)
	require.NotNil(t, f.Highlights.MarketCapitalization)
	assert.Equal(t, 2.5e9, *f.Highlights.MarketCapitalization)
	assert.Nil(t, f.Highlights.PEGRatio)
	assert.Nil(t, f.Valuation.ForwardPE)
	assert.Equal(t, 11, f.AnalystRatings.Opinions())
}

func TestGet_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Ticker Not Found", http.StatusNotFound)
		})
		_, err := c.GetEOD(context.Background(), "NOPE.US")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, "Ticker Not Found", apiErr.Message)
		assert.Equal(t, "/eod/NOPE.US", apiErr.Endpoint)
		assert.True(t, apiErr.NotFound())
	})

	t.Run("rate limited", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		})
		_, err := c.GetFundamentals(context.Background(), "XYZ.US")
		var rlErr *RateLimitError
		require.True(t, errors.As(err, &rlErr))
		assert.Equal(t, 7*time.Second, rlErr.RetryAfter)
	})

	t.Run("bad json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{`))
		})
		_, err := c.GetFundamentals(context.Background(), "XYZ.US")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode")
	})

	t.Run("missing key", func(t *testing.T) {
		c := NewClient("")
		_, err := c.GetEOD(context.Background(), "XYZ.US")
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.GetEOD(ctx, "XYZ.US")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
