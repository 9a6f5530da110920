package agents

import (
	"context"
	"fmt"

	"github.com/ternarybob/analyst/internal/indicators"
	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/analyst/internal/pipeline"
	"github.com/ternarybob/analyst/internal/services/marketdata"
)

// snapshotRows is the number of recent bars shown to the technicals LLM.
const snapshotRows = 5

// NewTechnicalsStage builds the technical specialist. It computes RSI, MACD and
// the stochastic oscillator from the published price history and asks the LLM
// to interpret them. Tickers without enough history get the skip note.
func NewTechnicalsStage(deps Deps) pipeline.Stage {
	deps = deps.withDefaults()

	return pipeline.NewStage(StageTechnicals,
		[]pipeline.Field{FieldResearchPlan, FieldKlineData},
		[]pipeline.Field{FieldTechnicalReport},
		func(ctx context.Context, view pipeline.Snapshot) (pipeline.Diff, error) {
			plan, err := pipeline.MustLookup[ResearchPlan](view, FieldResearchPlan)
			if err != nil {
				return nil, err
			}
			kline, err := pipeline.MustLookup[map[string]models.Series](view, FieldKlineData)
			if err != nil {
				return nil, err
			}

			bodies := make([]string, 0, len(plan.Tickers))
			var failures []*pipeline.Failure

			for _, tp := range plan.Tickers {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				symbol := tp.Ticker.String()

				series := kline[symbol]
				readings, err := indicators.Calculate(series)
				if err != nil {
					failures = append(failures, pipeline.InsufficientData(fmt.Errorf("technicals for %s: %w", symbol, err)))
					bodies = append(bodies, SkippedTechnicals)
					deps.Logger.Warn().
						Str("ticker", symbol).
						Int("bars", series.Len()).
						Msg("Technical analysis skipped")
					continue
				}

				indicatorBlock := indicators.FormatReport(symbol, readings)
				prompt := fmt.Sprintf(technicalsPrompt, symbol, deps.Language,
					indicatorBlock, marketdata.FormatRecentBars(series, snapshotRows))

				analysis, err := deps.LLM.Generate(ctx, prompt)
				if err != nil {
					failures = append(failures, pipeline.CollaboratorFailure(fmt.Errorf("technical analysis for %s: %w", symbol, err)))
					// Keep the computed readings.
					bodies = append(bodies, unavailable("technical interpretation for "+symbol, err)+"\n\n"+indicatorBlock)
					continue
				}

				deps.Logger.Debug().
					Str("ticker", symbol).
					Str("rsi", fmt.Sprintf("%.2f", readings.RSI)).
					Str("macd_hist", fmt.Sprintf("%.4f", readings.MACDHistogram)).
					Msg("Technical analysis completed")
				bodies = append(bodies, analysis)
			}

			diff := pipeline.Diff{FieldTechnicalReport: joinTickers(plan.Symbols(), bodies)}
			return diff, pipeline.Degraded(failures...)
		})
}
