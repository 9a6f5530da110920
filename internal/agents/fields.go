// Package agents holds the research-memo stages and wires them into the fixed
// memo task graph.
package agents

import (
	"time"

	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/analyst/internal/pipeline"
)

// State fields of the memo pipeline.
const (
	FieldQuery           pipeline.Field = "query"            // input: string
	FieldTickers         pipeline.Field = "tickers"          // input: []common.Ticker
	FieldResearchPlan    pipeline.Field = "research_plan"    // ResearchPlan
	FieldFundamentalData pipeline.Field = "fundamental_data" // string
	FieldKlineData       pipeline.Field = "kline_data"       // map[string]models.Series keyed by Ticker.String()
	FieldNewsAnalysis    pipeline.Field = "news_analysis"    // string
	FieldTechnicalReport pipeline.Field = "technical_report" // string
	FieldRiskAssessment  pipeline.Field = "risk_assessment"  // string
	FieldStrategyAdvice  pipeline.Field = "strategy_advice"  // string
	FieldFinalReport     pipeline.Field = "final_report"     // *models.Report
)

// Stage names.
const (
	StageRouter       = "router"
	StageFundamentals = "fundamentals"
	StageNews         = "news"
	StageTechnicals   = "technicals"
	StageSynthesis    = "synthesis"
	StageCompile      = "compile"
)

// ResearchPlan is the router's normalized view of a request.
type ResearchPlan struct {
	Query   string
	AsOf    time.Time
	Tickers []TickerPlan
}

// TickerPlan is the per-ticker work order.
type TickerPlan struct {
	Ticker    common.Ticker
	NewsQuery string
}

// Symbols returns the display form of every planned ticker.
func (p ResearchPlan) Symbols() []string {
	out := make([]string, len(p.Tickers))
	for i, t := range p.Tickers {
		out[i] = t.Ticker.String()
	}
	return out
}

// Inputs returns the input fields of the memo graph.
func Inputs() []pipeline.Field {
	return []pipeline.Field{FieldQuery, FieldTickers}
}

// NewInputs builds the initial state for one run.
func NewInputs(query string, tickers []common.Ticker) pipeline.Diff {
	return pipeline.Diff{
		FieldQuery:   query,
		FieldTickers: tickers,
	}
}
