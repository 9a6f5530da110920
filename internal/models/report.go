package models

import "time"

// ReportSection is one titled block of the compiled memo.
type ReportSection struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

// Report is the compiled research memo.
type Report struct {
	RunID       string          `json:"run_id"`
	Title       string          `json:"title"`
	Query       string          `json:"query"`
	Tickers     []string        `json:"tickers"`
	GeneratedAt time.Time       `json:"generated_at"`
	Sections    []ReportSection `json:"sections"`
	Markdown    string          `json:"markdown"`
}
