package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/analyst/internal/indicators"
	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/analyst/internal/pipeline"
	"github.com/ternarybob/analyst/internal/services/marketdata"
)

// NewFundamentalsStage builds the data analyst. For each ticker it fetches
// fundamentals and price history, hands the compiled data to the LLM and
// publishes the price history for the technicals stage.
func NewFundamentalsStage(deps Deps) pipeline.Stage {
	deps = deps.withDefaults()

	return pipeline.NewStage(StageFundamentals,
		[]pipeline.Field{FieldResearchPlan},
		[]pipeline.Field{FieldFundamentalData, FieldKlineData},
		func(ctx context.Context, view pipeline.Snapshot) (pipeline.Diff, error) {
			plan, err := pipeline.MustLookup[ResearchPlan](view, FieldResearchPlan)
			if err != nil {
				return nil, err
			}

			symbols := plan.Symbols()
			bodies := make([]string, 0, len(plan.Tickers))
			kline := make(map[string]models.Series, len(plan.Tickers))
			var failures []*pipeline.Failure

			for _, tp := range plan.Tickers {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				symbol := tp.Ticker.String()

				fundamentals, fundErr := deps.Market.FetchFundamentals(ctx, tp.Ticker)
				if fundErr != nil {
					failures = append(failures, pipeline.CollaboratorFailure(fmt.Errorf("fundamentals for %s: %w", symbol, fundErr)))
					fundamentals = models.Fundamentals{Ticker: symbol}
				}

				series, seriesErr := deps.Market.FetchSeries(ctx, tp.Ticker)
				switch {
				case seriesErr == nil:
					kline[symbol] = series
				case errors.Is(seriesErr, indicators.ErrInsufficientData):
					failures = append(failures, pipeline.InsufficientData(seriesErr))
				default:
					failures = append(failures, pipeline.CollaboratorFailure(seriesErr))
				}

				if fundErr != nil && seriesErr != nil {
					deps.Logger.Warn().
						Str("ticker", symbol).
						Err(errors.Join(fundErr, seriesErr)).
						Msg("No market data available for ticker")
					bodies = append(bodies, unavailable("market data for "+symbol, fundErr))
					continue
				}

				data := marketdata.FormatDataText(symbol, fundamentals, series)
				analysis, err := deps.LLM.GenerateWithSystem(ctx,
					fmt.Sprintf(fundamentalsSystem, data, deps.Language),
					fundamentalsUserPrompt(symbol, plan.Query))
				if err != nil {
					failures = append(failures, pipeline.CollaboratorFailure(fmt.Errorf("fundamental analysis for %s: %w", symbol, err)))
					bodies = append(bodies, unavailable("fundamental analysis for "+symbol, err))
					continue
				}

				deps.Logger.Debug().
					Str("ticker", symbol).
					Int("bars", series.Len()).
					Int("analysis_len", len(analysis)).
					Msg("Fundamental analysis completed")
				bodies = append(bodies, analysis)
			}

			diff := pipeline.Diff{
				FieldFundamentalData: joinTickers(symbols, bodies),
				FieldKlineData:       kline,
			}
			return diff, pipeline.Degraded(failures...)
		})
}
