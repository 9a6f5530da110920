package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/analyst/internal/models"
)

var baseDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// seriesFromCloses builds a table with a fixed one-point high/low band around each close.
func seriesFromCloses(closes []float64) models.Series {
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Date:   baseDate.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return models.Series{Ticker: "TEST", Bars: bars}
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// wave is a deterministic non-monotonic series.
func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i)
		out[i] = 100 + 10*math.Sin(x/7) + 3*math.Cos(x/2.3) + 0.05*x
	}
	return out
}

func TestCalculate_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1, 14, 29} {
		_, err := Calculate(seriesFromCloses(linear(n, 100, 1)))
		require.Error(t, err, "rows=%d", n)
		assert.True(t, errors.Is(err, ErrInsufficientData), "rows=%d", n)
	}

	_, err := Calculate(seriesFromCloses(linear(MinRows, 100, 1)))
	assert.NoError(t, err)
}

func TestCalculate_RSIMonotonicSeries(t *testing.T) {
	up, err := Calculate(seriesFromCloses(linear(60, 50, 0.5)))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, up.RSI, 1e-6)

	down, err := Calculate(seriesFromCloses(linear(60, 200, -0.5)))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, down.RSI, 1e-6)
}

func TestCalculate_RSIMatchesWilderSmoothing(t *testing.T) {
	closes := wave(120)
	r, err := Calculate(seriesFromCloses(closes))
	require.NoError(t, err)

	// Seed with the simple average of the first 14 changes, then Wilder smoothing.
	var gain, loss float64
	for i := 1; i <= rsiPeriod; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= rsiPeriod
	loss /= rsiPeriod
	for i := rsiPeriod + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		gain = (gain*(rsiPeriod-1) + g) / rsiPeriod
		loss = (loss*(rsiPeriod-1) + l) / rsiPeriod
	}
	want := 100 * gain / (gain + loss)

	assert.InDelta(t, want, r.RSI, 1e-6)
}

func TestCalculate_MACDOnLinearSeries(t *testing.T) {
	// EMA lag on a unit-slope line is (period-1)/2, so MACD settles at 12.5-5.5 = 7
	// and the histogram decays to zero.
	r, err := Calculate(seriesFromCloses(linear(250, 10, 1)))
	require.NoError(t, err)

	assert.InDelta(t, 7.0, r.MACD, 1e-6)
	assert.InDelta(t, 7.0, r.MACDSignal, 1e-6)
	assert.InDelta(t, 0.0, r.MACDHistogram, 1e-6)
}

func TestCalculate_StochasticMatchesDefinition(t *testing.T) {
	closes := wave(90)
	series := seriesFromCloses(closes)
	r, err := Calculate(series)
	require.NoError(t, err)

	high, low, cl := series.Columns()
	fastK := func(i int) float64 {
		hh, ll := math.Inf(-1), math.Inf(1)
		for j := i - stochFastK + 1; j <= i; j++ {
			hh = math.Max(hh, high[j])
			ll = math.Min(ll, low[j])
		}
		return 100 * (cl[i] - ll) / (hh - ll)
	}
	slowK := func(i int) float64 {
		return (fastK(i) + fastK(i-1) + fastK(i-2)) / 3
	}
	last := len(cl) - 1
	wantK := slowK(last)
	wantD := (slowK(last) + slowK(last-1) + slowK(last-2)) / 3

	assert.InDelta(t, wantK, r.StochK, 1e-6)
	assert.InDelta(t, wantD, r.StochD, 1e-6)
}

func TestCalculate_Idempotent(t *testing.T) {
	series := seriesFromCloses(wave(250))

	first, err := Calculate(series)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Calculate(series)
		require.NoError(t, err)
		assert.Equal(t, math.Float64bits(first.RSI), math.Float64bits(again.RSI))
		assert.Equal(t, math.Float64bits(first.MACDHistogram), math.Float64bits(again.MACDHistogram))
		assert.Equal(t, math.Float64bits(first.StochK), math.Float64bits(again.StochK))
		assert.Equal(t, math.Float64bits(first.StochD), math.Float64bits(again.StochD))
	}
}

func TestCalculate_DoesNotMutateInput(t *testing.T) {
	series := seriesFromCloses(wave(40))
	before := append([]models.Bar(nil), series.Bars...)

	_, err := Calculate(series)
	require.NoError(t, err)
	assert.Equal(t, before, series.Bars)
}

func TestReadingsSignals(t *testing.T) {
	tests := []struct {
		name     string
		readings Readings
		want     []string
	}{
		{
			name:     "overbought bullish",
			readings: Readings{RSI: 82, MACDHistogram: 0.4, StochK: 90, StochD: 85},
			want:     []string{"RSI overbought", "MACD bullish momentum", "Stochastic %K above %D"},
		},
		{
			name:     "oversold bearish",
			readings: Readings{RSI: 21, MACDHistogram: -1.2, StochK: 10, StochD: 15},
			want:     []string{"RSI oversold", "MACD bearish momentum", "Stochastic %K below %D"},
		},
		{
			name:     "neutral",
			readings: Readings{RSI: 50, StochK: 40, StochD: 40},
			want:     []string{"RSI neutral", "MACD flat", "Stochastic %K equals %D"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.readings.Signals())
		})
	}
}

func TestFormatReport(t *testing.T) {
	r := Readings{AsOf: baseDate, Close: 123.456, RSI: 55.123, MACDHistogram: 0.12345, StochK: 61.5, StochD: 58.25}
	out := FormatReport("XYZ", r)

	assert.Contains(t, out, "Technical indicators for XYZ (as of 2024-01-02, close 123.46)")
	assert.Contains(t, out, "- **RSI (14)**: 55.12")
	assert.Contains(t, out, "- **MACD Histogram (12, 26, 9)**: 0.1235")
	assert.Contains(t, out, "- **Stochastic %K (5, 3, 3)**: 61.50")
	assert.Contains(t, out, "- **Stochastic %D (5, 3, 3)**: 58.25")
}
