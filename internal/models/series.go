package models

import "time"

// Bar is a single OHLCV row.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is an ordered (oldest first) daily price table for one ticker.
type Series struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of rows.
func (s Series) Len() int {
	return len(s.Bars)
}

// Last returns the most recent row. Callers must check Len first.
func (s Series) Last() Bar {
	return s.Bars[len(s.Bars)-1]
}

// Tail returns the last n rows (all rows when n exceeds the length).
func (s Series) Tail(n int) []Bar {
	if n >= len(s.Bars) {
		return s.Bars
	}
	return s.Bars[len(s.Bars)-n:]
}

// Columns splits the table into high, low and close columns.
func (s Series) Columns() (high, low, close []float64) {
	high = make([]float64, len(s.Bars))
	low = make([]float64, len(s.Bars))
	close = make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		high[i] = b.High
		low[i] = b.Low
		close[i] = b.Close
	}
	return high, low, close
}
