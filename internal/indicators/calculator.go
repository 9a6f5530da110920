// Package indicators computes the technical readings used by the technicals stage.
package indicators

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/ternarybob/analyst/internal/models"
)

// MinRows is the smallest table that produces fully warmed-up readings.
const MinRows = 30

const (
	rsiPeriod     = 14
	macdFast      = 12
	macdSlow      = 26
	macdSignal    = 9
	stochFastK    = 5
	stochSlowK    = 3
	stochSlowD    = 3
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// ErrInsufficientData is returned for tables shorter than MinRows.
var ErrInsufficientData = errors.New("insufficient K-line data (requires >= 30 data points)")

// Readings are the indicator values at the most recent row.
type Readings struct {
	AsOf          time.Time
	Close         float64
	RSI           float64
	MACD          float64
	MACDSignal    float64
	MACDHistogram float64
	StochK        float64
	StochD        float64
}

// Calculate evaluates RSI(14), MACD(12,26,9) and Stochastic(5,3,3) at the last row.
// It has no side effects; the same table always yields the same readings.
func Calculate(series models.Series) (Readings, error) {
	n := series.Len()
	if n < MinRows {
		return Readings{}, fmt.Errorf("%s: %d rows: %w", series.Ticker, n, ErrInsufficientData)
	}

	high, low, closes := series.Columns()

	rsi := talib.Rsi(closes, rsiPeriod)
	macd, signal, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	slowK, slowD := talib.Stoch(high, low, closes, stochFastK, stochSlowK, talib.SMA, stochSlowD, talib.SMA)

	last := n - 1
	return Readings{
		AsOf:          series.Bars[last].Date,
		Close:         closes[last],
		RSI:           rsi[last],
		MACD:          macd[last],
		MACDSignal:    signal[last],
		MACDHistogram: hist[last],
		StochK:        slowK[last],
		StochD:        slowD[last],
	}, nil
}

// Signals labels the readings with the usual threshold interpretations.
func (r Readings) Signals() []string {
	var signals []string

	switch {
	case r.RSI >= rsiOverbought:
		signals = append(signals, "RSI overbought")
	case r.RSI <= rsiOversold:
		signals = append(signals, "RSI oversold")
	default:
		signals = append(signals, "RSI neutral")
	}

	switch {
	case r.MACDHistogram > 0:
		signals = append(signals, "MACD bullish momentum")
	case r.MACDHistogram < 0:
		signals = append(signals, "MACD bearish momentum")
	default:
		signals = append(signals, "MACD flat")
	}

	switch {
	case r.StochK > r.StochD:
		signals = append(signals, "Stochastic %K above %D")
	case r.StochK < r.StochD:
		signals = append(signals, "Stochastic %K below %D")
	default:
		signals = append(signals, "Stochastic %K equals %D")
	}

	return signals
}

// FormatReport renders the readings as a markdown bullet block.
func FormatReport(ticker string, r Readings) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Technical indicators for %s (as of %s, close %.2f):\n", ticker, r.AsOf.Format("2006-01-02"), r.Close)
	fmt.Fprintf(&sb, "- **RSI (14)**: %.2f\n", r.RSI)
	fmt.Fprintf(&sb, "- **MACD Histogram (12, 26, 9)**: %.4f\n", r.MACDHistogram)
	fmt.Fprintf(&sb, "- **Stochastic %%K (5, 3, 3)**: %.2f\n", r.StochK)
	fmt.Fprintf(&sb, "- **Stochastic %%D (5, 3, 3)**: %.2f\n", r.StochD)
	fmt.Fprintf(&sb, "- **Signals**: %s\n", strings.Join(r.Signals(), "; "))
	return sb.String()
}
